package ws

import (
	"encoding/json"

	"github.com/collab-canvas/backend/internal/model"
)

// MessageType names a wire event.
type MessageType string

const (
	// Client -> Server message types
	MessageTypeJoinRoom     MessageType = "join_room"
	MessageTypeDrawingStart MessageType = "drawing_start"
	MessageTypeDrawingStep  MessageType = "drawing_step"
	MessageTypeDrawingEnd   MessageType = "drawing_end"
	MessageTypeCursorMove   MessageType = "cursor_move"
	MessageTypeUndoRequest  MessageType = "undo_request"
	MessageTypeRedoRequest  MessageType = "redo_request"
	MessageTypeClearCanvas  MessageType = "clear_canvas"

	// Server -> Client message types
	MessageTypeRoomJoined     MessageType = "room_joined"
	MessageTypeUserJoined     MessageType = "user_joined"
	MessageTypeUserLeft       MessageType = "user_left"
	MessageTypeStrokeComplete MessageType = "stroke_complete"
	MessageTypeCursorUpdate   MessageType = "cursor_update"
	MessageTypeUndoPerformed  MessageType = "undo_performed"
	MessageTypeUndoFailed     MessageType = "undo_failed"
	MessageTypeRedoPerformed  MessageType = "redo_performed"
	MessageTypeRedoFailed     MessageType = "redo_failed"
	MessageTypeCanvasCleared  MessageType = "canvas_cleared"
	MessageTypeError          MessageType = "error"
)

// Message is the wire envelope. The payload layout depends on the type.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRoomRequest asks to enter a room. Empty fields get server defaults.
type JoinRoomRequest struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

// RoomJoined is the full snapshot sent to a joiner: its assigned identity,
// the peer list, and the visible history with the shared undo cursor.
type RoomJoined struct {
	RoomID         string         `json:"roomId"`
	User           model.User     `json:"user"`
	Users          []model.User   `json:"users"`
	DrawingHistory []model.Stroke `json:"drawingHistory"`
	HistoryIndex   int            `json:"historyIndex"`
}

// UserJoined notifies a room about a new peer.
type UserJoined struct {
	User  model.User   `json:"user"`
	Users []model.User `json:"users"`
}

// UserLeft notifies a room that a peer disconnected.
type UserLeft struct {
	UserID   string       `json:"userId"`
	Username string       `json:"username"`
	Users    []model.User `json:"users"`
}

// DrawingStartRequest opens an in-flight stroke. The stroke is relayed, not
// committed, until the matching drawing_end arrives.
type DrawingStartRequest struct {
	ID    string      `json:"id"`
	Point model.Point `json:"point"`
	Color string      `json:"color"`
	Width float64     `json:"width"`
	Tool  string      `json:"tool"`
}

// DrawingStepRequest appends a point to an in-flight stroke.
type DrawingStepRequest struct {
	StrokeID string      `json:"strokeId"`
	Point    model.Point `json:"point"`
}

// DrawingStep is the relayed form of a step, tagged with the author.
type DrawingStep struct {
	StrokeID string      `json:"strokeId"`
	UserID   string      `json:"userId"`
	Point    model.Point `json:"point"`
}

// DrawingEndRequest completes a stroke with its full point sequence.
type DrawingEndRequest struct {
	StrokeID string        `json:"strokeId"`
	Points   []model.Point `json:"points"`
	Color    string        `json:"color"`
	Width    float64       `json:"width"`
	Tool     string        `json:"tool"`
}

// StrokeComplete announces a committed stroke and the new history index.
type StrokeComplete struct {
	Stroke       model.Stroke `json:"stroke"`
	HistoryIndex int          `json:"historyIndex"`
}

// CursorMoveRequest reports the sender's pointer position.
type CursorMoveRequest struct {
	Position model.Point `json:"position"`
}

// CursorUpdate relays a peer's pointer position.
type CursorUpdate struct {
	UserID   string      `json:"userId"`
	Username string      `json:"username"`
	Color    string      `json:"color"`
	Position model.Point `json:"position"`
}

// UndoPerformed announces a successful global undo to the whole room.
type UndoPerformed struct {
	InitiatedBy  string       `json:"initiatedBy"`
	HistoryIndex int          `json:"historyIndex"`
	UndoneStroke model.Stroke `json:"undoneStroke"`
}

// RedoPerformed announces a successful global redo to the whole room.
type RedoPerformed struct {
	InitiatedBy  string       `json:"initiatedBy"`
	HistoryIndex int          `json:"historyIndex"`
	RedoneStroke model.Stroke `json:"redoneStroke"`
}

// ActionFailed is sent to the requester only when an undo or redo hits a
// history boundary.
type ActionFailed struct {
	Reason string `json:"reason"`
}

// CanvasCleared announces an irreversible history wipe.
type CanvasCleared struct {
	InitiatedBy  string `json:"initiatedBy"`
	Timestamp    int64  `json:"timestamp"`
	HistoryIndex int    `json:"historyIndex"`
}

// ProtocolError is sent instead of silently dropping an out-of-state event
// when strict protocol mode is enabled.
type ProtocolError struct {
	Reason string `json:"reason"`
}

// encode marshals a typed payload into the wire envelope. Payloads are plain
// structs, so marshaling cannot fail at runtime.
func encode(t MessageType, payload any) []byte {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	data, err := json.Marshal(Message{Type: t, Payload: raw})
	if err != nil {
		return nil
	}
	return data
}
