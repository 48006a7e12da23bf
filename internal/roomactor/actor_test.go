package roomactor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gmackie/roomengine/internal/examplegame"
	"github.com/gmackie/roomengine/internal/ids"
	"github.com/gmackie/roomengine/internal/room"
)

type counterHandle = Handle[examplegame.State, int, examplegame.Action, examplegame.Config, examplegame.PlayerID]

func newCounterActor() counterHandle {
	return NewActor[examplegame.State, int, examplegame.Action, examplegame.Config, examplegame.PlayerID](examplegame.Game{}, nil)
}

func ctx() context.Context {
	c, _ := context.WithTimeout(context.Background(), 2*time.Second)
	return c
}

func TestActorJoinPublishesUsersTopic(t *testing.T) {
	h := newCounterActor()
	sub := h.WatchUsers()

	initial, err := sub.Changed(ctx())
	require.NoError(t, err)
	require.Empty(t, initial)

	rec, err := h.JoinRoom(ctx(), "alice")
	require.NoError(t, err)

	users, err := sub.Changed(ctx())
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, rec.UserID, users[0].UserID)
	require.True(t, users[0].Leader)
}

func TestActorStartGamePublishesAllThreeTopics(t *testing.T) {
	h := newCounterActor()
	roomSub := h.WatchRoom()
	usersSub := h.WatchUsers()

	_, err := roomSub.Changed(ctx())
	require.NoError(t, err)
	_, err = usersSub.Changed(ctx())
	require.NoError(t, err)

	rec, err := h.JoinRoom(ctx(), "alice")
	require.NoError(t, err)
	_, err = usersSub.Changed(ctx())
	require.NoError(t, err)

	viewSub := h.WatchView(rec.UserID)
	noGameView, err := viewSub.Changed(ctx())
	require.NoError(t, err)
	require.Nil(t, noGameView)

	require.NoError(t, h.StartGame(ctx(), rec.UserID, nil))

	cfg, err := roomSub.Changed(ctx())
	require.NoError(t, err)
	require.Nil(t, cfg, "room topic publishes nil while a game is in progress")

	users, err := usersSub.Changed(ctx())
	require.NoError(t, err)
	require.NotNil(t, users[0].PlayerID)

	view, err := viewSub.Changed(ctx())
	require.NoError(t, err)
	require.NotNil(t, view)
	require.Equal(t, 0, *view)
}

func TestActorDoActionPublishesViewTopic(t *testing.T) {
	h := newCounterActor()
	rec, err := h.JoinRoom(ctx(), "alice")
	require.NoError(t, err)
	require.NoError(t, h.StartGame(ctx(), rec.UserID, nil))

	viewSub := h.WatchView(rec.UserID)
	_, err = viewSub.Changed(ctx())
	require.NoError(t, err)

	action, _ := json.Marshal(examplegame.ActionIncr)
	require.NoError(t, h.DoAction(ctx(), rec.UserID, action))

	view, err := viewSub.Changed(ctx())
	require.NoError(t, err)
	require.Equal(t, 1, *view)
}

func TestActorUpdateConfigParseFailure(t *testing.T) {
	h := newCounterActor()
	rec, err := h.JoinRoom(ctx(), "alice")
	require.NoError(t, err)

	err = h.UpdateConfig(ctx(), rec.UserID, json.RawMessage(`"not an object"`))
	require.ErrorIs(t, err, ErrParseFailure)
}

func TestActorUpdateConfigNotLeaderFails(t *testing.T) {
	h := newCounterActor()
	_, err := h.JoinRoom(ctx(), "alice")
	require.NoError(t, err)
	other, err := h.JoinRoom(ctx(), "bob")
	require.NoError(t, err)

	cfg, _ := json.Marshal(examplegame.Config{Max: 5, Players: 2})
	err = h.UpdateConfig(ctx(), other.UserID, cfg)
	require.ErrorIs(t, err, room.ErrUserNotLeader)
}

func TestActorKickUserDropsViewTopic(t *testing.T) {
	h := newCounterActor()
	leader, err := h.JoinRoom(ctx(), "alice")
	require.NoError(t, err)
	other, err := h.JoinRoom(ctx(), "bob")
	require.NoError(t, err)

	viewSub := h.WatchView(other.UserID)
	_, err = viewSub.Changed(ctx())
	require.NoError(t, err)

	require.NoError(t, h.KickUser(ctx(), leader.UserID, other.UserID))

	// The view topic was recreated fresh on WatchView after the drop; a
	// brand new subscriber should see "no view" immediately since the
	// room never entered Game state.
	freshSub := h.WatchView(other.UserID)
	v, err := freshSub.Changed(ctx())
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestActorReconnectSameUserID(t *testing.T) {
	h := newCounterActor()
	rec, err := h.JoinRoom(ctx(), "alice")
	require.NoError(t, err)

	rec2, err := h.RejoinRoom(ctx(), rec.Token)
	require.NoError(t, err)
	require.Equal(t, rec.UserID, rec2.UserID)
}

func TestActorInvalidActionDoesNotDirtyRoom(t *testing.T) {
	h := newCounterActor()
	rec, err := h.JoinRoom(ctx(), "alice")
	require.NoError(t, err)
	require.NoError(t, h.StartGame(ctx(), rec.UserID, nil))

	// The counter starts at 0; decrementing immediately violates its
	// [0, Max] bound regardless of the configured Max.
	action, _ := json.Marshal(examplegame.ActionDecr)
	err = h.DoAction(ctx(), rec.UserID, action)
	require.Error(t, err)
	require.Contains(t, err.Error(), "count too high or low")
}

func TestActorEnsureUserIDType(t *testing.T) {
	var _ ids.UserID
}

func TestActorDisconnectMarksUserNotConnected(t *testing.T) {
	h := newCounterActor()
	usersSub := h.WatchUsers()
	_, err := usersSub.Changed(ctx())
	require.NoError(t, err)

	rec, err := h.JoinRoom(ctx(), "alice")
	require.NoError(t, err)
	users, err := usersSub.Changed(ctx())
	require.NoError(t, err)
	require.True(t, users[0].Connected)

	require.NoError(t, h.Disconnect(ctx(), rec.UserID))
	users, err = usersSub.Changed(ctx())
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.False(t, users[0].Connected)
}
