// Package session implements the per-connection handler: it consumes a
// freshly accepted WebSocket, performs the join/rejoin handshake, and then
// runs the four-source dispatch loop that turns room-actor topic updates
// into outbound frames and client frames into room-actor calls. Reads and
// writes run on separate goroutines so a slow client can't stall the
// actor's fan-out.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/gmackie/roomengine/internal/diffutil"
	"github.com/gmackie/roomengine/internal/gamecontract"
	"github.com/gmackie/roomengine/internal/ids"
	"github.com/gmackie/roomengine/internal/protocol"
	"github.com/gmackie/roomengine/internal/registry"
	"github.com/gmackie/roomengine/internal/room"
	"github.com/gmackie/roomengine/internal/roomactor"
)

const (
	sendQueueCapacity = 32
	readLimitBytes    = 8192
	pongWait          = 60 * time.Second
	pingPeriod        = 30 * time.Second
	writeWait         = 10 * time.Second
	disconnectTimeout = 5 * time.Second
)

// Session owns one accepted WebSocket connection for its entire lifetime.
type Session[S, V, A, C any, P comparable] struct {
	conn *websocket.Conn
	reg  *registry.Registry[S, V, A, C, P]
	log  *logrus.Entry

	sendQueue chan []byte
}

// New wraps a freshly accepted connection. Call Run to drive it; Run
// blocks until the connection closes.
func New[S, V, A, C any, P comparable](conn *websocket.Conn, reg *registry.Registry[S, V, A, C, P], log *logrus.Entry) *Session[S, V, A, C, P] {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Session[S, V, A, C, P]{
		conn:      conn,
		reg:       reg,
		log:       log,
		sendQueue: make(chan []byte, sendQueueCapacity),
	}
}

// Run performs the join/rejoin handshake and, on success, the run loop.
// It returns once the underlying connection is closed.
func (s *Session[S, V, A, C, P]) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbound := s.startReadPump(ctx, cancel)
	go s.writePump(ctx)

	sub, handle, ok := s.handshake(ctx, inbound)
	if !ok {
		return
	}
	defer func() {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer disconnectCancel()
		if err := handle.Disconnect(disconnectCtx, sub.rec.UserID); err != nil {
			s.log.WithError(err).Debug("failed to mark user disconnected")
		}
	}()

	s.send(protocol.NewJoinResponseMsg(sub.room, sub.rec.Token, sub.rec.UserID, sub.rec.Username))
	s.runLoop(ctx, inbound, handle, sub)
}

type subscription struct {
	room ids.RoomID
	rec  room.UserRecord
}

// handshake consumes inbound frames until a valid join_room or
// rejoin_room arrives. Any other message is rejected with an error frame
// but does not end the handshake.
func (s *Session[S, V, A, C, P]) handshake(ctx context.Context, inbound <-chan []byte) (subscription, roomactor.Handle[S, V, A, C, P], bool) {
	for {
		frame, open := <-inbound
		if !open {
			return subscription{}, roomactor.Handle[S, V, A, C, P]{}, false
		}

		msg, err := protocol.ParseClientMessage(frame)
		if err != nil {
			continue
		}

		switch m := msg.(type) {
		case protocol.JoinRoomMsg:
			roomID, handle := s.reg.GetOrCreate(m.Room)
			rec, err := handle.JoinRoom(ctx, m.Username)
			if err != nil {
				s.send(protocol.NewErrorMsg(err.Error()))
				continue
			}
			return subscription{room: roomID, rec: rec}, handle, true

		case protocol.RejoinRoomMsg:
			handle, found := s.reg.Lookup(m.Room)
			if !found {
				s.send(protocol.NewInvalidateTokenMsg(m.Token))
				s.send(protocol.NewErrorMsg("Room does not exist"))
				continue
			}
			rec, err := handle.RejoinRoom(ctx, m.Token)
			if err != nil {
				if errors.Is(err, room.ErrInvalidReconnectToken) {
					s.send(protocol.NewInvalidateTokenMsg(m.Token))
				} else {
					s.send(protocol.NewErrorMsg(err.Error()))
				}
				continue
			}
			return subscription{room: m.Room, rec: rec}, handle, true

		default:
			s.send(protocol.NewErrorMsg("Must join room first"))
		}
	}
}

// runLoop is the per-connection dispatch loop: one inbound frame source
// and three topic-change sources, cooperatively multiplexed with a single
// select.
func (s *Session[S, V, A, C, P]) runLoop(ctx context.Context, inbound <-chan []byte, handle roomactor.Handle[S, V, A, C, P], sub subscription) {
	viewCh := pumpTopic(ctx, handle.WatchView(sub.rec.UserID))
	roomCh := pumpTopic(ctx, handle.WatchRoom())
	usersCh := pumpTopic(ctx, handle.WatchUsers())

	var lastView *V

	for {
		select {
		case frame, open := <-inbound:
			if !open {
				return
			}
			s.dispatchFrame(ctx, handle, sub, frame, &lastView)

		case view, open := <-viewCh:
			if !open {
				return
			}
			s.handleViewUpdate(view, &lastView)

		case cfg, open := <-roomCh:
			if !open {
				return
			}
			if cfg != nil {
				s.send(protocol.NewRoomInfoMsg(*cfg))
			}

		case users, open := <-usersCh:
			if !open {
				return
			}
			s.send(protocol.NewUserInfoMsg(toWireUsers(users)))

		case <-ctx.Done():
			return
		}
	}
}

func (s *Session[S, V, A, C, P]) dispatchFrame(ctx context.Context, handle roomactor.Handle[S, V, A, C, P], sub subscription, frame []byte, lastView **V) {
	msg, err := protocol.ParseClientMessage(frame)
	if err != nil {
		return
	}

	switch m := msg.(type) {
	case protocol.JoinRoomMsg, protocol.RejoinRoomMsg:
		s.send(protocol.NewErrorMsg("You're in a room"))

	case protocol.UpdateConfigMsg:
		if err := handle.UpdateConfig(ctx, sub.rec.UserID, m.Config); err != nil {
			s.send(protocol.NewErrorMsg(err.Error()))
		}

	case protocol.StartGameMsg:
		if err := handle.StartGame(ctx, sub.rec.UserID, nil); err != nil {
			s.send(protocol.NewErrorMsg(err.Error()))
		}

	case protocol.DoActionMsg:
		if err := handle.DoAction(ctx, sub.rec.UserID, m.Action); err != nil {
			var invalid *gamecontract.InvalidActionError
			if errors.As(err, &invalid) {
				s.send(protocol.NewInvalidActionMsg(invalid.Reason))
			} else {
				s.send(protocol.NewErrorMsg(err.Error()))
			}
		}

	case protocol.KickUserMsg:
		if err := handle.KickUser(ctx, sub.rec.UserID, m.User); err != nil {
			s.send(protocol.NewErrorMsg(err.Error()))
		}

	case protocol.ReassignPlayerMsg:
		if err := handle.ReassignPlayer(ctx, sub.rec.UserID, m.FromUser, m.ToUser); err != nil {
			s.send(protocol.NewErrorMsg(err.Error()))
		}

	case protocol.ResetToLobbyMsg:
		if err := handle.ResetToLobby(ctx, sub.rec.UserID); err != nil {
			s.send(protocol.NewErrorMsg(err.Error()))
		}

	case protocol.GameViewRequestMsg:
		if *lastView != nil {
			s.send(protocol.NewGameInfoMsg(**lastView))
		}
	}
}

func (s *Session[S, V, A, C, P]) handleViewUpdate(view *V, lastView **V) {
	switch {
	case view == nil:
		*lastView = nil

	case *lastView == nil:
		v := *view
		*lastView = &v
		s.send(protocol.NewGameInfoMsg(v))

	default:
		diff, err := diffutil.Diff(**lastView, *view)
		if err != nil {
			s.log.WithError(err).Debug("failed to diff game view")
			return
		}
		v := *view
		*lastView = &v
		if diff != nil {
			s.send(protocol.NewGameViewDiffMsg(diff))
		}
	}
}

func toWireUsers[P comparable](entries []room.UserInfoEntry[P]) []protocol.UserInfoEntry {
	out := make([]protocol.UserInfoEntry, len(entries))
	for i, e := range entries {
		item := protocol.UserInfoEntry{ID: e.UserID, Username: e.Username, Leader: e.Leader, Connected: e.Connected}
		if e.PlayerID != nil {
			item.PlayerID = *e.PlayerID
		}
		out[i] = item
	}
	return out
}

// pumpTopic runs sub.Changed in a loop, forwarding each value onto the
// returned channel until ctx is cancelled, at which point the channel is
// closed.
func pumpTopic[T any](ctx context.Context, sub *roomactor.Subscriber[T]) <-chan T {
	out := make(chan T, 1)
	go func() {
		defer close(out)
		for {
			v, err := sub.Changed(ctx)
			if err != nil {
				return
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (s *Session[S, V, A, C, P]) send(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.WithError(err).Error("failed to marshal outbound message")
		return
	}
	select {
	case s.sendQueue <- data:
	default:
		s.log.Warn("send queue full, dropping outbound frame")
	}
}

func (s *Session[S, V, A, C, P]) startReadPump(ctx context.Context, cancel context.CancelFunc) <-chan []byte {
	out := make(chan []byte, 1)
	s.conn.SetReadLimit(readLimitBytes)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go func() {
		defer close(out)
		defer cancel()
		for {
			_, data, err := s.conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case out <- data:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (s *Session[S, V, A, C, P]) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer s.conn.Close()

	for {
		select {
		case data, open := <-s.sendQueue:
			if !open {
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
