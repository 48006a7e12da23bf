// Package diffutil computes RFC 6902 JSON Patch documents between
// successive game views, used by internal/session to turn a Watch[*V]
// update into either a full snapshot (no prior view) or an incremental
// game_view_diff frame.
package diffutil

import (
	"encoding/json"

	"github.com/wI2L/jsondiff"
)

// Diff returns the JSON Patch transforming prev into next. A nil result
// (with a nil error) means the two values are equivalent and nothing
// should be sent.
func Diff(prev, next any) (json.RawMessage, error) {
	patch, err := jsondiff.Compare(prev, next)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, nil
	}
	return json.Marshal(patch)
}
