// Package room implements the pure, single-threaded room state machine:
// membership, leadership, config, game state, player mapping and the
// read-only queries over them. Nothing in this package is concurrency
// safe on its own — that is the room actor's job (internal/roomactor).
package room

import (
	"fmt"

	"github.com/gmackie/roomengine/internal/gamecontract"
	"github.com/gmackie/roomengine/internal/ids"
)

// Room is the Lobby<->Game state machine for a single room, generic over
// the game it hosts.
type Room[S, V, A, C any, P comparable] struct {
	game gamecontract.Game[S, V, A, C, P]

	users    []ids.UserID
	userData map[ids.UserID]UserRecord

	phase         phase
	config        C
	gameState     S
	playerMapping map[ids.UserID]P
}

// New creates a room in Lobby state with the game's default config.
func New[S, V, A, C any, P comparable](game gamecontract.Game[S, V, A, C, P]) *Room[S, V, A, C, P] {
	return &Room[S, V, A, C, P]{
		game:     game,
		userData: make(map[ids.UserID]UserRecord),
		phase:    phaseLobby,
		config:   game.DefaultConfig(),
	}
}

func (r *Room[S, V, A, C, P]) isLeader(user ids.UserID) bool {
	return len(r.users) > 0 && r.users[0] == user
}

func (r *Room[S, V, A, C, P]) contains(user ids.UserID) bool {
	for _, u := range r.users {
		if u == user {
			return true
		}
	}
	return false
}

func (r *Room[S, V, A, C, P]) removeFromUsers(user ids.UserID) {
	for i, u := range r.users {
		if u == user {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return
		}
	}
}

// Join admits a user by username or reconnects one by token.
func (r *Room[S, V, A, C, P]) Join(info JoinInfo) (UserRecord, error) {
	if info.username != nil {
		for _, rec := range r.userData {
			if rec.Username == *info.username {
				return UserRecord{}, ErrUsernameInUse
			}
		}
		rec := UserRecord{
			UserID:   ids.NewUserID(),
			Username: *info.username,
			Token:    ids.NewReconnectToken(),
		}
		r.userData[rec.UserID] = rec
		r.users = append(r.users, rec.UserID)
		return rec, nil
	}

	for _, rec := range r.userData {
		if rec.Token == *info.token {
			if !r.contains(rec.UserID) {
				r.users = append(r.users, rec.UserID)
			}
			return rec, nil
		}
	}
	return UserRecord{}, ErrInvalidReconnectToken
}

// UpdateConfig replaces the lobby config. Requires the caller to be leader
// and the room to be in Lobby state.
func (r *Room[S, V, A, C, P]) UpdateConfig(user ids.UserID, cfg C) error {
	if !r.isLeader(user) {
		return ErrUserNotLeader
	}
	if r.phase != phaseLobby {
		return ErrGameAlreadyStarted
	}
	r.config = cfg
	return nil
}

// KickUser removes target from the room entirely. Requires the caller to
// be leader; fails if target currently holds a player seat.
func (r *Room[S, V, A, C, P]) KickUser(user, target ids.UserID) error {
	if !r.isLeader(user) {
		return ErrUserNotLeader
	}
	if r.phase == phaseGame {
		if _, ok := r.playerMapping[target]; ok {
			return ErrUserIsPlayer
		}
	}
	if _, ok := r.userData[target]; !ok {
		return ErrUserNotFound
	}
	delete(r.userData, target)
	r.removeFromUsers(target)
	return nil
}

// ReassignPlayer moves a player seat from "from" to "to". Requires the
// caller to be leader and the room to be in Game state.
func (r *Room[S, V, A, C, P]) ReassignPlayer(user, from, to ids.UserID) error {
	if !r.isLeader(user) {
		return ErrUserNotLeader
	}
	if r.phase != phaseGame {
		return ErrGameNotStarted
	}
	if _, ok := r.playerMapping[to]; ok {
		return &UserIsAlreadyPlayerError{User: to}
	}
	pid, ok := r.playerMapping[from]
	if !ok {
		return &UserIsNotPlayerError{User: from}
	}
	delete(r.playerMapping, from)
	r.playerMapping[to] = pid
	return nil
}

// StartGame creates fresh game state from the current config and seats
// players, either from an explicit mapping or, when omitted, by pairing
// users[i] with players[i] in insertion order. Deterministic seating is
// chosen over a shuffle so seating is reproducible from the join order.
func (r *Room[S, V, A, C, P]) StartGame(user ids.UserID, mapping map[ids.UserID]P) error {
	if !r.isLeader(user) {
		return ErrUserNotLeader
	}
	if r.phase != phaseLobby {
		return ErrGameAlreadyStarted
	}

	if mapping != nil {
		for uid := range mapping {
			if !r.contains(uid) {
				return ErrInvalidPlayerMapping
			}
		}
	}

	state, err := r.game.Create(r.config)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCreate, err)
	}
	players := r.game.Players(state)

	finalMapping := make(map[ids.UserID]P, len(r.users))
	if mapping != nil {
		valid := make(map[P]bool, len(players))
		for _, p := range players {
			valid[p] = true
		}
		for uid, pid := range mapping {
			if !valid[pid] {
				return ErrInvalidPlayerMapping
			}
			finalMapping[uid] = pid
		}
	} else {
		if len(players) != len(r.users) {
			return ErrWrongPlayerCount
		}
		for i, uid := range r.users {
			finalMapping[uid] = players[i]
		}
	}

	r.gameState = state
	r.playerMapping = finalMapping
	r.phase = phaseGame
	return nil
}

// ResetToLobby tears down game state and returns to Lobby with the
// default config. Requires the caller to be leader; a no-op error-wise if
// already in Lobby.
func (r *Room[S, V, A, C, P]) ResetToLobby(user ids.UserID) error {
	if !r.isLeader(user) {
		return ErrUserNotLeader
	}
	var zero S
	r.gameState = zero
	r.playerMapping = nil
	r.phase = phaseLobby
	r.config = r.game.DefaultConfig()
	return nil
}

// UserView renders the game view for user: their player view if seated,
// otherwise a spectator view. Requires Game state.
func (r *Room[S, V, A, C, P]) UserView(user ids.UserID) (V, error) {
	var zero V
	if r.phase != phaseGame {
		return zero, ErrGameNotStarted
	}
	var pptr *P
	if pid, ok := r.playerMapping[user]; ok {
		pptr = &pid
	}
	return r.game.View(r.gameState, pptr)
}

// UserAction applies action on behalf of user, who must currently hold a
// player seat. Requires Game state.
func (r *Room[S, V, A, C, P]) UserAction(user ids.UserID, action A) error {
	if r.phase != phaseGame {
		return ErrGameNotStarted
	}
	pid, ok := r.playerMapping[user]
	if !ok {
		return ErrUserNotInGame
	}
	return r.game.DoAction(&r.gameState, pid, action)
}

// UserLeader returns the current leader, or ErrEmptyLobby if no users
// remain.
func (r *Room[S, V, A, C, P]) UserLeader() (ids.UserID, error) {
	if len(r.users) == 0 {
		return "", ErrEmptyLobby
	}
	return r.users[0], nil
}

// UserInfo projects every user ever admitted and not kicked, including
// disconnected users who remain eligible to reconnect with their token.
func (r *Room[S, V, A, C, P]) UserInfo() []UserInfoEntry[P] {
	var leaderID ids.UserID
	hasLeader := len(r.users) > 0
	if hasLeader {
		leaderID = r.users[0]
	}

	out := make([]UserInfoEntry[P], 0, len(r.userData))
	for uid, rec := range r.userData {
		entry := UserInfoEntry[P]{
			UserID:    uid,
			Username:  rec.Username,
			Leader:    hasLeader && uid == leaderID,
			Connected: r.contains(uid),
		}
		if pid, ok := r.playerMapping[uid]; ok {
			p := pid
			entry.PlayerID = &p
		}
		out = append(out, entry)
	}
	return out
}

// Disconnect marks user as no longer actively connected, without
// discarding their record: they remain reachable via reconnect token until
// explicitly kicked by the leader.
func (r *Room[S, V, A, C, P]) Disconnect(user ids.UserID) error {
	if _, ok := r.userData[user]; !ok {
		return ErrUserNotFound
	}
	r.removeFromUsers(user)
	return nil
}

// LobbyInfo returns the current config if in Lobby state.
func (r *Room[S, V, A, C, P]) LobbyInfo() (C, bool) {
	if r.phase == phaseLobby {
		return r.config, true
	}
	var zero C
	return zero, false
}

// AllUserIDs returns every UserID ever admitted and not kicked — the
// superset tracked in userData, used by the actor to know which per-user
// view topics must exist.
func (r *Room[S, V, A, C, P]) AllUserIDs() []ids.UserID {
	out := make([]ids.UserID, 0, len(r.userData))
	for uid := range r.userData {
		out = append(out, uid)
	}
	return out
}

// InGame reports whether the room is currently running a game.
func (r *Room[S, V, A, C, P]) InGame() bool {
	return r.phase == phaseGame
}
