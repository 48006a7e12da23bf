// Package roomactor implements the single-writer actor that owns one
// room.Room: a bounded mailbox of requests, each answered on a one-shot
// reply channel, and three families of latest-value broadcast topics that
// are republished after every successful mutation.
package roomactor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/gmackie/roomengine/internal/gamecontract"
	"github.com/gmackie/roomengine/internal/ids"
	"github.com/gmackie/roomengine/internal/room"
)

// ErrParseFailure is returned by UpdateConfig/DoAction when the supplied
// JSON value cannot be decoded into the game's typed Config/Action.
var ErrParseFailure = errors.New("failed to parse payload")

const mailboxCapacity = 32

type dirtyBits struct {
	users, roomCfg, game bool
}

type actorReply struct {
	result any
	err    error
}

type request[S, V, A, C any, P comparable] struct {
	exec  func(*room.Room[S, V, A, C, P]) (any, dirtyBits, error)
	reply chan actorReply
}

// Actor owns exactly one room.Room and serializes every mutation to it
// through reqCh.
type Actor[S, V, A, C any, P comparable] struct {
	room  *room.Room[S, V, A, C, P]
	reqCh chan request[S, V, A, C, P]

	usersTopic *Watch[[]room.UserInfoEntry[P]]
	roomTopic  *Watch[*C]

	viewMu     sync.Mutex
	viewTopics map[ids.UserID]*Watch[*V]

	log *logrus.Entry
}

// Handle is a cheap, cloneable reference to a running Actor. It exposes
// the typed async methods callers use to mutate the room and subscribe to
// its topics; sessions never touch room.Room or Actor directly.
type Handle[S, V, A, C any, P comparable] struct {
	a *Actor[S, V, A, C, P]
}

// NewActor starts a room actor for a fresh lobby hosting game, and returns
// a handle to it.
func NewActor[S, V, A, C any, P comparable](game gamecontract.Game[S, V, A, C, P], log *logrus.Entry) Handle[S, V, A, C, P] {
	r := room.New[S, V, A, C, P](game)
	cfg, _ := r.LobbyInfo()

	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	a := &Actor[S, V, A, C, P]{
		room:       r,
		reqCh:      make(chan request[S, V, A, C, P], mailboxCapacity),
		usersTopic: NewWatch[[]room.UserInfoEntry[P]](nil),
		roomTopic:  NewWatch(&cfg),
		viewTopics: make(map[ids.UserID]*Watch[*V]),
		log:        log,
	}
	go a.run()
	return Handle[S, V, A, C, P]{a: a}
}

func (a *Actor[S, V, A, C, P]) run() {
	for req := range a.reqCh {
		result, dirty, err := req.exec(a.room)

		select {
		case req.reply <- actorReply{result: result, err: err}:
		default:
			// The caller gave up waiting; the room state still reflects
			// the request. Nothing to do.
			a.log.Debug("dropped reply for abandoned request")
		}

		if err == nil {
			a.publish(dirty)
		} else {
			a.log.WithError(err).Debug("room operation failed")
		}
	}
}

func (a *Actor[S, V, A, C, P]) publish(dirty dirtyBits) {
	if dirty.users {
		a.usersTopic.Publish(a.room.UserInfo())
	}
	if dirty.roomCfg {
		if cfg, ok := a.room.LobbyInfo(); ok {
			c := cfg
			a.roomTopic.Publish(&c)
		} else {
			a.roomTopic.Publish(nil)
		}
	}
	if dirty.game {
		for _, uid := range a.room.AllUserIDs() {
			view, err := a.room.UserView(uid)
			var vp *V
			if err == nil {
				v := view
				vp = &v
			}
			a.viewTopicFor(uid).Publish(vp)
		}
	}
}

func (a *Actor[S, V, A, C, P]) viewTopicFor(uid ids.UserID) *Watch[*V] {
	a.viewMu.Lock()
	defer a.viewMu.Unlock()
	t, ok := a.viewTopics[uid]
	if !ok {
		var zero *V
		t = NewWatch(zero)
		a.viewTopics[uid] = t
	}
	return t
}

func (a *Actor[S, V, A, C, P]) dropViewTopic(uid ids.UserID) {
	a.viewMu.Lock()
	defer a.viewMu.Unlock()
	delete(a.viewTopics, uid)
}

func (h Handle[S, V, A, C, P]) call(ctx context.Context, exec func(*room.Room[S, V, A, C, P]) (any, dirtyBits, error)) (any, error) {
	reply := make(chan actorReply, 1)
	req := request[S, V, A, C, P]{exec: exec, reply: reply}

	select {
	case h.a.reqCh <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-reply:
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// JoinRoom admits a fresh user under username.
func (h Handle[S, V, A, C, P]) JoinRoom(ctx context.Context, username string) (room.UserRecord, error) {
	res, err := h.call(ctx, func(r *room.Room[S, V, A, C, P]) (any, dirtyBits, error) {
		rec, err := r.Join(room.JoinAsUsername(username))
		if err != nil {
			return nil, dirtyBits{}, err
		}
		return rec, dirtyBits{users: true}, nil
	})
	if err != nil {
		return room.UserRecord{}, err
	}
	return res.(room.UserRecord), nil
}

// RejoinRoom rebinds a connection to the UserID behind token.
func (h Handle[S, V, A, C, P]) RejoinRoom(ctx context.Context, token ids.ReconnectToken) (room.UserRecord, error) {
	res, err := h.call(ctx, func(r *room.Room[S, V, A, C, P]) (any, dirtyBits, error) {
		rec, err := r.Join(room.JoinAsReconnect(token))
		if err != nil {
			return nil, dirtyBits{}, err
		}
		return rec, dirtyBits{users: true}, nil
	})
	if err != nil {
		return room.UserRecord{}, err
	}
	return res.(room.UserRecord), nil
}

// UpdateConfig decodes raw into the game's Config type and applies it.
func (h Handle[S, V, A, C, P]) UpdateConfig(ctx context.Context, user ids.UserID, raw json.RawMessage) error {
	var cfg C
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	_, err := h.call(ctx, func(r *room.Room[S, V, A, C, P]) (any, dirtyBits, error) {
		if err := r.UpdateConfig(user, cfg); err != nil {
			return nil, dirtyBits{}, err
		}
		return nil, dirtyBits{roomCfg: true}, nil
	})
	return err
}

// StartGame starts the game, with an optional explicit player mapping.
func (h Handle[S, V, A, C, P]) StartGame(ctx context.Context, user ids.UserID, mapping map[ids.UserID]P) error {
	_, err := h.call(ctx, func(r *room.Room[S, V, A, C, P]) (any, dirtyBits, error) {
		if err := r.StartGame(user, mapping); err != nil {
			return nil, dirtyBits{}, err
		}
		return nil, dirtyBits{users: true, roomCfg: true, game: true}, nil
	})
	return err
}

// DoAction decodes raw into the game's Action type and applies it on
// behalf of user.
func (h Handle[S, V, A, C, P]) DoAction(ctx context.Context, user ids.UserID, raw json.RawMessage) error {
	var action A
	if err := json.Unmarshal(raw, &action); err != nil {
		return fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	_, err := h.call(ctx, func(r *room.Room[S, V, A, C, P]) (any, dirtyBits, error) {
		if err := r.UserAction(user, action); err != nil {
			return nil, dirtyBits{}, err
		}
		return nil, dirtyBits{game: true}, nil
	})
	return err
}

// KickUser removes target from the room and tears down its view topic.
func (h Handle[S, V, A, C, P]) KickUser(ctx context.Context, user, target ids.UserID) error {
	_, err := h.call(ctx, func(r *room.Room[S, V, A, C, P]) (any, dirtyBits, error) {
		if err := r.KickUser(user, target); err != nil {
			return nil, dirtyBits{}, err
		}
		return nil, dirtyBits{users: true, game: true}, nil
	})
	if err == nil {
		h.a.dropViewTopic(target)
	}
	return err
}

// ReassignPlayer moves a player seat from "from" to "to".
func (h Handle[S, V, A, C, P]) ReassignPlayer(ctx context.Context, user, from, to ids.UserID) error {
	_, err := h.call(ctx, func(r *room.Room[S, V, A, C, P]) (any, dirtyBits, error) {
		if err := r.ReassignPlayer(user, from, to); err != nil {
			return nil, dirtyBits{}, err
		}
		return nil, dirtyBits{users: true, game: true}, nil
	})
	return err
}

// ResetToLobby tears down the game and returns to Lobby with the default
// config.
func (h Handle[S, V, A, C, P]) ResetToLobby(ctx context.Context, user ids.UserID) error {
	_, err := h.call(ctx, func(r *room.Room[S, V, A, C, P]) (any, dirtyBits, error) {
		if err := r.ResetToLobby(user); err != nil {
			return nil, dirtyBits{}, err
		}
		return nil, dirtyBits{users: true, roomCfg: true, game: true}, nil
	})
	return err
}

// Disconnect marks user as no longer actively connected, leaving their
// record (and reconnect token) intact for a future RejoinRoom.
func (h Handle[S, V, A, C, P]) Disconnect(ctx context.Context, user ids.UserID) error {
	_, err := h.call(ctx, func(r *room.Room[S, V, A, C, P]) (any, dirtyBits, error) {
		if err := r.Disconnect(user); err != nil {
			return nil, dirtyBits{}, err
		}
		return nil, dirtyBits{users: true}, nil
	})
	return err
}

// WatchRoom subscribes to the room config topic.
func (h Handle[S, V, A, C, P]) WatchRoom() *Subscriber[*C] {
	return h.a.roomTopic.Subscribe()
}

// WatchUsers subscribes to the user roster topic.
func (h Handle[S, V, A, C, P]) WatchUsers() *Subscriber[[]room.UserInfoEntry[P]] {
	return h.a.usersTopic.Subscribe()
}

// WatchView subscribes to uid's per-user view topic, creating it lazily if
// this is the first subscription for uid.
func (h Handle[S, V, A, C, P]) WatchView(uid ids.UserID) *Subscriber[*V] {
	return h.a.viewTopicFor(uid).Subscribe()
}
