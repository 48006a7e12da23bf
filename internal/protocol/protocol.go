// Package protocol defines the tagged JSON wire messages exchanged between
// a client and a session: ClientMessage variants decoded from inbound
// socket frames, and ServerMessage variants encoded onto outbound ones.
// Every message carries its own "type" field, flattened rather than
// payload-wrapped, since this wire format is fixed by an external client
// and not ours to redesign. Game-specific values (config, action, view)
// are tunneled as raw JSON; this package never interprets them.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/gmackie/roomengine/internal/ids"
)

// ClientMessageType is the "type" discriminant of an inbound frame.
type ClientMessageType string

const (
	TypeJoinRoom        ClientMessageType = "join_room"
	TypeRejoinRoom      ClientMessageType = "rejoin_room"
	TypeUpdateConfig    ClientMessageType = "update_config"
	TypeKickUser        ClientMessageType = "kick_user"
	TypeReassignPlayer  ClientMessageType = "reassign_player"
	TypeStartGame       ClientMessageType = "start_game"
	TypeDoAction        ClientMessageType = "do_action"
	TypeGameViewRequest ClientMessageType = "game_view_request"
	TypeResetToLobby    ClientMessageType = "reset_to_lobby"
)

// ServerMessageType is the "type" discriminant of an outbound frame.
type ServerMessageType string

const (
	TypeError          ServerMessageType = "error"
	TypeJoinResponse   ServerMessageType = "join_response"
	TypeInvalidateToken ServerMessageType = "invalidate_token"
	TypeUserInfo       ServerMessageType = "user_info"
	TypeRoomInfo       ServerMessageType = "room_info"
	TypeGameInfo       ServerMessageType = "game_info"
	TypeGameViewDiff   ServerMessageType = "game_view_diff"
	TypeInvalidAction  ServerMessageType = "invalid_action"
)

// ErrUnknownMessageType is returned by ParseClientMessage for a frame whose
// "type" field does not match any known client message. The session drops
// these silently rather than surfacing this error to the client.
var ErrUnknownMessageType = fmt.Errorf("unknown message type")

// ClientMessage is implemented by every inbound message variant.
type ClientMessage interface {
	clientMessage()
}

// JoinRoomMsg requests a fresh UserID in room (or a freshly minted room if
// Room is nil).
type JoinRoomMsg struct {
	Username string      `json:"username"`
	Room     *ids.RoomID `json:"room,omitempty"`
}

func (JoinRoomMsg) clientMessage() {}

// RejoinRoomMsg requests rebinding this connection to the UserID behind
// Token in Room.
type RejoinRoomMsg struct {
	Token ids.ReconnectToken `json:"token"`
	Room  ids.RoomID         `json:"room"`
}

func (RejoinRoomMsg) clientMessage() {}

// UpdateConfigMsg carries a game-specific config value, decoded further
// downstream by the room actor.
type UpdateConfigMsg struct {
	Config json.RawMessage `json:"config"`
}

func (UpdateConfigMsg) clientMessage() {}

// KickUserMsg requests the removal of User from the room.
type KickUserMsg struct {
	User ids.UserID `json:"user"`
}

func (KickUserMsg) clientMessage() {}

// ReassignPlayerMsg requests moving a player seat between two users.
type ReassignPlayerMsg struct {
	FromUser ids.UserID `json:"from_user"`
	ToUser   ids.UserID `json:"to_user"`
}

func (ReassignPlayerMsg) clientMessage() {}

// StartGameMsg requests the lobby transition to Game state.
type StartGameMsg struct{}

func (StartGameMsg) clientMessage() {}

// DoActionMsg carries a game-specific action value.
type DoActionMsg struct {
	Action json.RawMessage `json:"action"`
}

func (DoActionMsg) clientMessage() {}

// GameViewRequestMsg asks the session to resend the sender's last known
// view, if any.
type GameViewRequestMsg struct{}

func (GameViewRequestMsg) clientMessage() {}

// ResetToLobbyMsg requests tearing down the current game and returning to
// Lobby with the default config.
type ResetToLobbyMsg struct{}

func (ResetToLobbyMsg) clientMessage() {}

type typeEnvelope struct {
	Type ClientMessageType `json:"type"`
}

// ParseClientMessage decodes a single inbound JSON frame into its typed
// ClientMessage variant. An unrecognized type or malformed body returns
// ErrUnknownMessageType; the caller should drop the frame rather than
// report the error to the client.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	var env typeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownMessageType, err)
	}

	var (
		msg ClientMessage
		err error
	)
	switch env.Type {
	case TypeJoinRoom:
		var m JoinRoomMsg
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeRejoinRoom:
		var m RejoinRoomMsg
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeUpdateConfig:
		var m UpdateConfigMsg
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeKickUser:
		var m KickUserMsg
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeReassignPlayer:
		var m ReassignPlayerMsg
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeStartGame:
		msg = StartGameMsg{}
	case TypeDoAction:
		var m DoActionMsg
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeGameViewRequest:
		msg = GameViewRequestMsg{}
	case TypeResetToLobby:
		msg = ResetToLobbyMsg{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownMessageType, err)
	}
	return msg, nil
}

// ErrorMsg reports a non-actionable failure to the client.
type ErrorMsg struct {
	Type    ServerMessageType `json:"type"`
	Message string            `json:"message"`
}

// NewErrorMsg builds an ErrorMsg.
func NewErrorMsg(message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, Message: message}
}

// JoinResponseMsg confirms a successful join or rejoin.
type JoinResponseMsg struct {
	Type     ServerMessageType  `json:"type"`
	RoomID   ids.RoomID         `json:"room_id"`
	Token    ids.ReconnectToken `json:"token"`
	UserID   ids.UserID         `json:"user_id"`
	Username string             `json:"username"`
}

// NewJoinResponseMsg builds a JoinResponseMsg.
func NewJoinResponseMsg(roomID ids.RoomID, token ids.ReconnectToken, userID ids.UserID, username string) JoinResponseMsg {
	return JoinResponseMsg{Type: TypeJoinResponse, RoomID: roomID, Token: token, UserID: userID, Username: username}
}

// InvalidateTokenMsg tells the client to forget a stale reconnect token.
type InvalidateTokenMsg struct {
	Type  ServerMessageType  `json:"type"`
	Token ids.ReconnectToken `json:"token"`
}

// NewInvalidateTokenMsg builds an InvalidateTokenMsg.
func NewInvalidateTokenMsg(token ids.ReconnectToken) InvalidateTokenMsg {
	return InvalidateTokenMsg{Type: TypeInvalidateToken, Token: token}
}

// UserInfoEntry is the wire projection of one user in the roster.
type UserInfoEntry struct {
	ID        ids.UserID `json:"id"`
	Username  string     `json:"username"`
	Leader    bool       `json:"leader"`
	Connected bool       `json:"connected"`
	PlayerID  any        `json:"player_id,omitempty"`
}

// UserInfoMsg carries the full user roster.
type UserInfoMsg struct {
	Type  ServerMessageType `json:"type"`
	Users []UserInfoEntry   `json:"users"`
}

// NewUserInfoMsg builds a UserInfoMsg.
func NewUserInfoMsg(users []UserInfoEntry) UserInfoMsg {
	return UserInfoMsg{Type: TypeUserInfo, Users: users}
}

// RoomInfoMsg carries the current lobby config.
type RoomInfoMsg struct {
	Type   ServerMessageType `json:"type"`
	Config any               `json:"config"`
}

// NewRoomInfoMsg builds a RoomInfoMsg.
func NewRoomInfoMsg(config any) RoomInfoMsg {
	return RoomInfoMsg{Type: TypeRoomInfo, Config: config}
}

// GameInfoMsg carries a full game view (sent when the recipient has no
// previously transmitted view to diff against).
type GameInfoMsg struct {
	Type ServerMessageType `json:"type"`
	View any               `json:"view"`
}

// NewGameInfoMsg builds a GameInfoMsg.
func NewGameInfoMsg(view any) GameInfoMsg {
	return GameInfoMsg{Type: TypeGameInfo, View: view}
}

// GameViewDiffMsg carries an RFC 6902 JSON Patch transforming the
// recipient's last known view into its current one.
type GameViewDiffMsg struct {
	Type ServerMessageType `json:"type"`
	Diff json.RawMessage   `json:"diff"`
}

// NewGameViewDiffMsg builds a GameViewDiffMsg.
func NewGameViewDiffMsg(diff json.RawMessage) GameViewDiffMsg {
	return GameViewDiffMsg{Type: TypeGameViewDiff, Diff: diff}
}

// InvalidActionMsg reports a game-rejected action, distinct from ErrorMsg
// so clients can highlight it differently in their UI.
type InvalidActionMsg struct {
	Type    ServerMessageType `json:"type"`
	Message string            `json:"message"`
}

// NewInvalidActionMsg builds an InvalidActionMsg.
func NewInvalidActionMsg(message string) InvalidActionMsg {
	return InvalidActionMsg{Type: TypeInvalidAction, Message: message}
}
