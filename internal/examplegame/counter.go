// Package examplegame is a minimal worked implementation of
// gamecontract.Game, used to exercise and test the generic room engine.
// It is not part of the engine's public surface: concrete games are an
// external collaborator, not something this repository redesigns.
// Counter exists purely so internal/room, internal/roomactor and
// internal/session have something real to drive in their tests and so
// cmd/server has a default game to bind the engine to.
package examplegame

import (
	"fmt"

	"github.com/gmackie/roomengine/internal/gamecontract"
)

// PlayerID identifies one of the counter game's fixed seats.
type PlayerID string

// Config configures a fresh counter game.
type Config struct {
	Max     int `json:"max"`
	Players int `json:"players"`
}

// State is the counter's mutable state: a shared count bounded to [0, Max].
type State struct {
	Count      int `json:"count"`
	Max        int `json:"max"`
	NumPlayers int `json:"numPlayers"`
}

// Action is either "Incr" or "Decr".
type Action string

const (
	ActionIncr Action = "Incr"
	ActionDecr Action = "Decr"
)

// Game is the gamecontract.Game implementation for the counter.
type Game struct{}

var _ gamecontract.Game[State, int, Action, Config, PlayerID] = Game{}

// DefaultConfig returns a single-player counter bounded at 10.
func (Game) DefaultConfig() Config {
	return Config{Max: 10, Players: 1}
}

// Create builds a zeroed counter bounded by cfg.Max, seated for cfg.Players.
func (Game) Create(cfg Config) (State, error) {
	players := cfg.Players
	if players <= 0 {
		players = 1
	}
	max := cfg.Max
	if max <= 0 {
		max = 10
	}
	return State{Count: 0, Max: max, NumPlayers: players}, nil
}

// Players enumerates the fixed p1..pN seats for state's player count.
func (Game) Players(state State) []PlayerID {
	out := make([]PlayerID, state.NumPlayers)
	for i := range out {
		out[i] = PlayerID(fmt.Sprintf("p%d", i+1))
	}
	return out
}

// View exposes the shared count to anyone watching, player or spectator.
func (Game) View(state State, _ *PlayerID) (int, error) {
	return state.Count, nil
}

// DoAction increments or decrements the shared count, rejecting moves that
// would push it outside [0, Max].
func (Game) DoAction(state *State, _ PlayerID, action Action) error {
	switch action {
	case ActionIncr:
		if state.Count+1 > state.Max {
			return &gamecontract.InvalidActionError{Reason: "count too high or low"}
		}
		state.Count++
	case ActionDecr:
		if state.Count-1 < 0 {
			return &gamecontract.InvalidActionError{Reason: "count too high or low"}
		}
		state.Count--
	default:
		return &gamecontract.InvalidActionError{Reason: "unknown action"}
	}
	return nil
}
