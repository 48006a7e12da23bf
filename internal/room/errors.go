package room

import (
	"errors"
	"fmt"

	"github.com/gmackie/roomengine/internal/ids"
)

// Sentinel errors returned by Room operations. Session/actor code switches
// on these with errors.Is; the wire protocol never exposes them as an
// enumerator, only as human-readable messages.
var (
	ErrEmptyLobby            = errors.New("lobby is empty")
	ErrUsernameInUse         = errors.New("username is already in use")
	ErrInvalidReconnectToken = errors.New("invalid reconnect token")
	ErrUserNotLeader         = errors.New("user must be leader")
	ErrUserNotFound          = errors.New("user not found")
	ErrUserIsPlayer          = errors.New("user is currently seated as a player")
	ErrGameAlreadyStarted    = errors.New("game already started")
	ErrGameNotStarted        = errors.New("game has not started")
	ErrInvalidPlayerMapping  = errors.New("invalid player mapping")
	ErrWrongPlayerCount      = errors.New("wrong number of players for this game")
	ErrInvalidCreate         = errors.New("game failed to initialize from config")
	ErrUserNotInGame         = errors.New("user is not seated as a player")
)

// UserIsNotPlayerError is returned by ReassignPlayer when the "from" user
// does not currently hold a seat.
type UserIsNotPlayerError struct {
	User ids.UserID
}

func (e *UserIsNotPlayerError) Error() string {
	return fmt.Sprintf("user %s is not a player", e.User)
}

// UserIsAlreadyPlayerError is returned by ReassignPlayer when the "to" user
// already holds a seat.
type UserIsAlreadyPlayerError struct {
	User ids.UserID
}

func (e *UserIsAlreadyPlayerError) Error() string {
	return fmt.Sprintf("user %s is already a player", e.User)
}
