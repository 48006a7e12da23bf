package room

import "github.com/gmackie/roomengine/internal/ids"

// UserRecord is created on first join and never mutated; it is destroyed
// only by KickUser.
type UserRecord struct {
	UserID   ids.UserID
	Username string
	Token    ids.ReconnectToken
}

// JoinInfo is the sum type accepted by Join: either a fresh username or a
// reconnect token. Construct it with JoinAsUsername or JoinAsReconnect.
type JoinInfo struct {
	username *string
	token    *ids.ReconnectToken
}

// JoinAsUsername requests a fresh UserID under the given username.
func JoinAsUsername(username string) JoinInfo {
	return JoinInfo{username: &username}
}

// JoinAsReconnect requests rebinding to the UserID behind token.
func JoinAsReconnect(token ids.ReconnectToken) JoinInfo {
	return JoinInfo{token: &token}
}

// UserInfoEntry is the per-user projection returned by Room.UserInfo, with
// P the game's player-seat type. Entries are reported for every user ever
// admitted and not kicked, including ones that have since disconnected but
// may still reconnect with their token.
type UserInfoEntry[P comparable] struct {
	UserID    ids.UserID
	Username  string
	Leader    bool
	Connected bool
	PlayerID  *P
}

type phase int

const (
	phaseLobby phase = iota
	phaseGame
)
