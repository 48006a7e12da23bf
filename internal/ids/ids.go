// Package ids defines the opaque identifier types used across the room
// engine, and the generators that mint them. The generators are treated as
// a trusted opaque token factory: callers never inspect the representation
// of a RoomID, UserID or ReconnectToken beyond equality.
package ids

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// RoomID is the short, human-typeable external handle for a room: four
// uppercase letters, 26^4 possibilities.
type RoomID string

// UserID is minted by a room the first time a user joins it, and is stable
// for the room's lifetime regardless of reconnects.
type UserID string

// ReconnectToken is handed to a client on first join and presented later to
// rebind a new connection to the same UserID.
type ReconnectToken string

const (
	roomIDAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	roomIDLength    = 4
	tokenAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	tokenLength     = 16
)

// NewUserID mints a fresh opaque per-room user identifier.
func NewUserID() UserID {
	return UserID(uuid.NewString())
}

// NewRoomID mints a fresh four-letter uppercase room code.
func NewRoomID() RoomID {
	return RoomID(randomString(roomIDAlphabet, roomIDLength))
}

// NewReconnectToken mints a fresh sixteen-character alphanumeric secret.
func NewReconnectToken() ReconnectToken {
	return ReconnectToken(randomString(tokenAlphabet, tokenLength))
}

func randomString(alphabet string, length int) string {
	out := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand.Reader failing is not something callers can
			// meaningfully recover from; the factory is trusted.
			panic(err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out)
}
