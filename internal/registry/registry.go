// Package registry implements the process-wide RoomId -> room-actor
// mapping: a mutex-guarded map with lazy creation. Lookups never block on
// actor work since the actor itself owns all mutation.
package registry

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/gmackie/roomengine/internal/gamecontract"
	"github.com/gmackie/roomengine/internal/ids"
	"github.com/gmackie/roomengine/internal/roomactor"
)

// Registry maps RoomID to the handle of the actor running that room.
// Entries are created lazily on first use and are never removed; room
// reaping is left to a future idle-timeout sweep this repository does
// not implement (see DESIGN.md).
type Registry[S, V, A, C any, P comparable] struct {
	game gamecontract.Game[S, V, A, C, P]
	log  *logrus.Entry

	mu    sync.Mutex
	rooms map[ids.RoomID]roomactor.Handle[S, V, A, C, P]
}

// New creates an empty registry that spawns rooms running game.
func New[S, V, A, C any, P comparable](game gamecontract.Game[S, V, A, C, P], log *logrus.Entry) *Registry[S, V, A, C, P] {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Registry[S, V, A, C, P]{
		game:  game,
		log:   log,
		rooms: make(map[ids.RoomID]roomactor.Handle[S, V, A, C, P]),
	}
}

// GetOrCreate returns the handle for id, spawning a fresh room actor under
// a freshly minted id if this is the first reference to it. Returns the
// resolved RoomID (useful when id is empty and a fresh one is minted) and
// the handle.
func (reg *Registry[S, V, A, C, P]) GetOrCreate(id *ids.RoomID) (ids.RoomID, roomactor.Handle[S, V, A, C, P]) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if id != nil {
		if h, ok := reg.rooms[*id]; ok {
			return *id, h
		}
	}

	roomID := ids.NewRoomID()
	if id != nil {
		roomID = *id
	}
	h := roomactor.NewActor[S, V, A, C, P](reg.game, reg.log.WithField("room", roomID))
	reg.rooms[roomID] = h
	reg.log.WithField("room", roomID).Debug("spawned room actor")
	return roomID, h
}

// Lookup returns the handle for an existing id, or false if no room with
// that id has ever been created.
func (reg *Registry[S, V, A, C, P]) Lookup(id ids.RoomID) (roomactor.Handle[S, V, A, C, P], bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	h, ok := reg.rooms[id]
	return h, ok
}
