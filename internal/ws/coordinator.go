package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/collab-canvas/backend/internal/model"
	"github.com/collab-canvas/backend/internal/room"
)

// activityLog records room lifecycle events for diagnostics. Recording is
// best-effort and never feeds back into live state.
type activityLog interface {
	RecordRoomCreated(ctx context.Context, roomID string) error
	RecordRoomClosed(ctx context.Context, roomID string, strokeCount int) error
}

// Coordinator is the authoritative synchronization engine. Every inbound
// client event is applied to the target room's state and turned into the
// broadcast set that keeps all connected sessions consistent. Mutation and
// broadcast enqueue happen inside the room's critical section, so frames
// reach client send queues in exactly the order the room applied the
// mutations.
type Coordinator struct {
	directory *room.Directory
	hubs      *HubManager
	activity  activityLog

	defaultRoom string
	strict      bool
}

// Options configures a Coordinator.
type Options struct {
	// DefaultRoom is joined when a join_room carries no room id.
	DefaultRoom string
	// StrictProtocol answers out-of-state events with an error message
	// instead of silently dropping them.
	StrictProtocol bool
	// Activity is an optional diagnostics recorder.
	Activity activityLog
}

// NewCoordinator creates a coordinator over the given room directory.
func NewCoordinator(directory *room.Directory, opts Options) *Coordinator {
	if opts.DefaultRoom == "" {
		opts.DefaultRoom = "default"
	}
	return &Coordinator{
		directory:   directory,
		hubs:        NewHubManager(),
		activity:    opts.Activity,
		defaultRoom: opts.DefaultRoom,
		strict:      opts.StrictProtocol,
	}
}

// Hubs returns the per-room hub manager.
func (c *Coordinator) Hubs() *HubManager {
	return c.hubs
}

// Close tears down all hubs.
func (c *Coordinator) Close() {
	c.hubs.Close()
}

// NewSession creates the per-connection protocol state for a client.
func (c *Coordinator) NewSession(client sender) *Session {
	return &Session{coord: c, client: client}
}

// Session is the per-connection state machine: unjoined until the first
// join_room, joined until the connection drops. All methods are invoked from
// the connection's read loop, so events on one connection are processed to
// completion in order; cross-connection ordering is serialized by the room.
type Session struct {
	coord  *Coordinator
	client sender
	room   *room.Room
	hub    *Hub
	user   *model.User
	gone   bool
}

// HandleMessage dispatches one decoded wire message.
func (s *Session) HandleMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeJoinRoom:
		s.handleJoin(msg)
	case MessageTypeDrawingStart:
		s.handleDrawingStart(msg)
	case MessageTypeDrawingStep:
		s.handleDrawingStep(msg)
	case MessageTypeDrawingEnd:
		s.handleDrawingEnd(msg)
	case MessageTypeCursorMove:
		s.handleCursorMove(msg)
	case MessageTypeUndoRequest:
		s.handleUndo()
	case MessageTypeRedoRequest:
		s.handleRedo()
	case MessageTypeClearCanvas:
		s.handleClear()
	default:
		s.reject("unknown event type")
	}
}

// joined reports whether the session has entered a room, rejecting the event
// per the strict-protocol policy when it has not.
func (s *Session) joined() bool {
	if s.room == nil {
		s.reject("not in a room")
		return false
	}
	return true
}

// reject surfaces an out-of-state event in strict mode and drops it
// otherwise.
func (s *Session) reject(reason string) {
	if s.coord.strict {
		s.client.Send(encode(MessageTypeError, ProtocolError{Reason: reason}))
	}
}

func (s *Session) handleJoin(msg *Message) {
	if s.room != nil {
		s.reject("already in a room")
		return
	}

	var req JoinRoomRequest
	if err := decode(msg, &req); err != nil {
		s.reject("malformed join_room payload")
		return
	}

	roomID := req.RoomID
	if roomID == "" {
		roomID = s.coord.defaultRoom
	}
	username := req.Username
	if username == "" {
		username = "User_" + shortID(s.client.UserID())
	}

	user := &model.User{ID: s.client.UserID(), Username: username}
	hub := s.coord.hubs.GetOrCreate(roomID)

	// Hub registration, the joiner snapshot, and the peer notice all happen
	// inside the room's critical section: a stroke committed concurrently is
	// either in the snapshot or broadcast to the joiner, never lost between
	// the two.
	rm, _, created := s.coord.directory.Join(roomID, user, func(tx *room.Tx, snap room.JoinSnapshot) {
		hub.Register(s.client)
		s.client.Send(encode(MessageTypeRoomJoined, RoomJoined{
			RoomID:         roomID,
			User:           snap.User,
			Users:          snap.Users,
			DrawingHistory: snap.History,
			HistoryIndex:   snap.HistoryIndex,
		}))
		hub.BroadcastExcept(user.ID, encode(MessageTypeUserJoined, UserJoined{
			User:  snap.User,
			Users: snap.Users,
		}))
	})
	s.room = rm
	s.user = user
	s.hub = hub

	if created {
		s.recordCreated(roomID)
	}
	log.Printf("[Coordinator] %s joined room %s", username, roomID)
}

func (s *Session) handleDrawingStart(msg *Message) {
	if !s.joined() {
		return
	}

	var req DrawingStartRequest
	if err := decode(msg, &req); err != nil {
		return
	}

	// Relay only; the stroke is not committed until drawing_end
	s.hub.BroadcastExcept(s.user.ID, encode(MessageTypeDrawingStart, model.Stroke{
		ID:        req.ID,
		UserID:    s.user.ID,
		Username:  s.user.Username,
		UserColor: s.user.Color,
		Points:    []model.Point{req.Point},
		Color:     req.Color,
		Width:     req.Width,
		Tool:      req.Tool,
		Timestamp: time.Now().UnixMilli(),
	}))
}

func (s *Session) handleDrawingStep(msg *Message) {
	if !s.joined() {
		return
	}

	var req DrawingStepRequest
	if err := decode(msg, &req); err != nil {
		return
	}

	s.hub.BroadcastExcept(s.user.ID, encode(MessageTypeDrawingStep, DrawingStep{
		StrokeID: req.StrokeID,
		UserID:   s.user.ID,
		Point:    req.Point,
	}))
}

func (s *Session) handleDrawingEnd(msg *Message) {
	if !s.joined() {
		return
	}

	var req DrawingEndRequest
	if err := decode(msg, &req); err != nil {
		return
	}

	stroke := model.Stroke{
		ID:        req.StrokeID,
		UserID:    s.user.ID,
		Username:  s.user.Username,
		UserColor: s.user.Color,
		Points:    req.Points,
		Color:     req.Color,
		Width:     req.Width,
		Tool:      req.Tool,
		Timestamp: time.Now().UnixMilli(),
	}

	var index int
	s.room.Update(func(tx *room.Tx) {
		index = tx.AppendStroke(stroke)
		s.hub.Broadcast(encode(MessageTypeStrokeComplete, StrokeComplete{
			Stroke:       stroke,
			HistoryIndex: index,
		}))
	})
	log.Printf("[Coordinator] stroke completed by %s in room %s, history index: %d",
		s.user.Username, s.room.ID, index)
}

func (s *Session) handleCursorMove(msg *Message) {
	if !s.joined() {
		return
	}

	var req CursorMoveRequest
	if err := decode(msg, &req); err != nil {
		return
	}

	s.room.Update(func(tx *room.Tx) {
		tx.UpdateCursor(s.user.ID, req.Position)
		s.hub.BroadcastExcept(s.user.ID, encode(MessageTypeCursorUpdate, CursorUpdate{
			UserID:   s.user.ID,
			Username: s.user.Username,
			Color:    s.user.Color,
			Position: req.Position,
		}))
	})
}

func (s *Session) handleUndo() {
	if !s.joined() {
		return
	}

	var (
		index int
		err   error
	)
	s.room.Update(func(tx *room.Tx) {
		var undone model.Stroke
		undone, index, err = tx.Undo()
		if err != nil {
			s.hub.SendTo(s.user.ID, encode(MessageTypeUndoFailed, ActionFailed{Reason: err.Error()}))
			return
		}
		s.hub.Broadcast(encode(MessageTypeUndoPerformed, UndoPerformed{
			InitiatedBy:  s.user.Username,
			HistoryIndex: index,
			UndoneStroke: undone,
		}))
	})
	if err == nil {
		log.Printf("[Coordinator] undo by %s in room %s, new index: %d", s.user.Username, s.room.ID, index)
	}
}

func (s *Session) handleRedo() {
	if !s.joined() {
		return
	}

	var (
		index int
		err   error
	)
	s.room.Update(func(tx *room.Tx) {
		var redone model.Stroke
		redone, index, err = tx.Redo()
		if err != nil {
			s.hub.SendTo(s.user.ID, encode(MessageTypeRedoFailed, ActionFailed{Reason: err.Error()}))
			return
		}
		s.hub.Broadcast(encode(MessageTypeRedoPerformed, RedoPerformed{
			InitiatedBy:  s.user.Username,
			HistoryIndex: index,
			RedoneStroke: redone,
		}))
	})
	if err == nil {
		log.Printf("[Coordinator] redo by %s in room %s, new index: %d", s.user.Username, s.room.ID, index)
	}
}

func (s *Session) handleClear() {
	if !s.joined() {
		return
	}

	s.room.Update(func(tx *room.Tx) {
		tx.ClearHistory()
		s.hub.Broadcast(encode(MessageTypeCanvasCleared, CanvasCleared{
			InitiatedBy:  s.user.Username,
			Timestamp:    time.Now().UnixMilli(),
			HistoryIndex: -1,
		}))
	})
	log.Printf("[Coordinator] canvas cleared by %s in room %s", s.user.Username, s.room.ID)
}

// Disconnect removes the session from its room, notifies peers, and tears
// the room down when the last member is gone. Safe to call more than once.
func (s *Session) Disconnect() {
	if s.gone {
		return
	}
	s.gone = true

	if s.room == nil {
		return
	}

	roomID := s.room.ID
	var strokes int
	_, destroyed := s.coord.directory.Leave(roomID, s.user.ID, func(tx *room.Tx, users []model.User, _ bool) {
		strokes = tx.StrokeCount()
		s.hub.Unregister(s.user.ID)
		s.hub.BroadcastExcept(s.user.ID, encode(MessageTypeUserLeft, UserLeft{
			UserID:   s.user.ID,
			Username: s.user.Username,
			Users:    users,
		}))
	})
	log.Printf("[Coordinator] %s left room %s", s.user.Username, roomID)

	if destroyed {
		s.coord.hubs.Remove(roomID)
		s.recordClosed(roomID, strokes)
		log.Printf("[Coordinator] room %s deleted (empty)", roomID)
	}
}

func (s *Session) recordCreated(roomID string) {
	if s.coord.activity == nil {
		return
	}
	if err := s.coord.activity.RecordRoomCreated(context.Background(), roomID); err != nil {
		log.Printf("[Coordinator] failed to record room creation: %v", err)
	}
}

func (s *Session) recordClosed(roomID string, strokes int) {
	if s.coord.activity == nil {
		return
	}
	if err := s.coord.activity.RecordRoomClosed(context.Background(), roomID, strokes); err != nil {
		log.Printf("[Coordinator] failed to record room close: %v", err)
	}
}

// decode unmarshals a message payload into a typed request.
func decode(msg *Message, v any) error {
	if len(msg.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(msg.Payload, v)
}

// shortID returns the first four characters of a connection id, used for
// default display names.
func shortID(id string) string {
	if len(id) <= 4 {
		return id
	}
	return id[:4]
}
