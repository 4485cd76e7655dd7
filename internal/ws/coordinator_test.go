package ws

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/collab-canvas/backend/internal/model"
	"github.com/collab-canvas/backend/internal/room"
)

// fakeClient is an in-memory sender capturing everything the coordinator
// broadcasts to it.
type fakeClient struct {
	id     string
	mu     sync.Mutex
	msgs   []Message
	closed bool
}

func newFakeClient(id string) *fakeClient {
	return &fakeClient{id: id}
}

func (f *fakeClient) UserID() string { return f.id }

func (f *fakeClient) Send(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		panic("fakeClient received invalid frame: " + err.Error())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

func (f *fakeClient) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeClient) received(t MessageType) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for _, m := range f.msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeClient) lastOf(t *testing.T, msgType MessageType, v any) {
	t.Helper()
	msgs := f.received(msgType)
	if len(msgs) == 0 {
		t.Fatalf("no %s message received", msgType)
	}
	if err := json.Unmarshal(msgs[len(msgs)-1].Payload, v); err != nil {
		t.Fatalf("failed to decode %s payload: %v", msgType, err)
	}
}

func request(msgType MessageType, payload any) *Message {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return &Message{Type: msgType, Payload: raw}
}

func newTestCoordinator(opts Options) *Coordinator {
	return NewCoordinator(room.NewDirectory(), opts)
}

func join(c *Coordinator, client *fakeClient, roomID, username string) *Session {
	s := c.NewSession(client)
	s.HandleMessage(request(MessageTypeJoinRoom, JoinRoomRequest{RoomID: roomID, Username: username}))
	return s
}

func TestSession_JoinRoom(t *testing.T) {
	coord := newTestCoordinator(Options{})

	alice := newFakeClient("conn-a")
	join(coord, alice, "r1", "alice")

	var joined RoomJoined
	alice.lastOf(t, MessageTypeRoomJoined, &joined)

	if joined.RoomID != "r1" {
		t.Errorf("expected room r1, got %s", joined.RoomID)
	}
	if joined.User.Username != "alice" {
		t.Errorf("expected username alice, got %s", joined.User.Username)
	}
	if joined.User.Color != room.UserColors[0] {
		t.Errorf("expected first palette color, got %s", joined.User.Color)
	}
	if len(joined.DrawingHistory) != 0 {
		t.Errorf("expected empty history, got %d strokes", len(joined.DrawingHistory))
	}
	if joined.HistoryIndex != -1 {
		t.Errorf("expected history index -1, got %d", joined.HistoryIndex)
	}

	bob := newFakeClient("conn-b")
	join(coord, bob, "r1", "bob")

	var notice UserJoined
	alice.lastOf(t, MessageTypeUserJoined, &notice)
	if notice.User.Username != "bob" {
		t.Errorf("peer-joined notice should carry bob, got %s", notice.User.Username)
	}
	if len(notice.Users) != 2 {
		t.Errorf("expected 2 users in peer list, got %d", len(notice.Users))
	}
	if len(bob.received(MessageTypeUserJoined)) != 0 {
		t.Error("joiner should not receive its own user_joined notice")
	}
}

func TestSession_JoinDefaults(t *testing.T) {
	coord := newTestCoordinator(Options{DefaultRoom: "lobby"})

	client := newFakeClient("conn-1234abcd")
	s := coord.NewSession(client)
	s.HandleMessage(request(MessageTypeJoinRoom, JoinRoomRequest{}))

	var joined RoomJoined
	client.lastOf(t, MessageTypeRoomJoined, &joined)
	if joined.RoomID != "lobby" {
		t.Errorf("expected default room lobby, got %s", joined.RoomID)
	}
	if joined.User.Username != "User_conn" {
		t.Errorf("expected generated username User_conn, got %s", joined.User.Username)
	}
}

func TestSession_DrawRelay(t *testing.T) {
	coord := newTestCoordinator(Options{})
	alice := newFakeClient("conn-a")
	bob := newFakeClient("conn-b")
	sa := join(coord, alice, "r1", "alice")
	join(coord, bob, "r1", "bob")

	sa.HandleMessage(request(MessageTypeDrawingStart, DrawingStartRequest{
		ID: "s1", Point: model.Point{X: 1, Y: 1}, Color: "#000", Width: 2, Tool: "pen",
	}))
	sa.HandleMessage(request(MessageTypeDrawingStep, DrawingStepRequest{
		StrokeID: "s1", Point: model.Point{X: 2, Y: 2},
	}))

	var start model.Stroke
	bob.lastOf(t, MessageTypeDrawingStart, &start)
	if start.UserID != "conn-a" || start.Username != "alice" {
		t.Errorf("start notice should carry the author, got %s/%s", start.UserID, start.Username)
	}
	if len(start.Points) != 1 {
		t.Errorf("start notice should carry the first point only, got %d", len(start.Points))
	}

	var step DrawingStep
	bob.lastOf(t, MessageTypeDrawingStep, &step)
	if step.StrokeID != "s1" || step.UserID != "conn-a" {
		t.Errorf("unexpected step relay: %+v", step)
	}

	if len(alice.received(MessageTypeDrawingStart)) != 0 {
		t.Error("author must not receive its own draw-start relay")
	}
	if len(alice.received(MessageTypeDrawingStep)) != 0 {
		t.Error("author must not receive its own draw-step relay")
	}
}

func TestSession_StrokeCompleteBroadcast(t *testing.T) {
	coord := newTestCoordinator(Options{})
	alice := newFakeClient("conn-a")
	bob := newFakeClient("conn-b")
	sa := join(coord, alice, "r1", "alice")
	join(coord, bob, "r1", "bob")

	sa.HandleMessage(request(MessageTypeDrawingEnd, DrawingEndRequest{
		StrokeID: "s1",
		Points:   []model.Point{{X: 1, Y: 1}, {X: 2, Y: 2}},
		Color:    "#000", Width: 2, Tool: "pen",
	}))

	for _, client := range []*fakeClient{alice, bob} {
		var complete StrokeComplete
		client.lastOf(t, MessageTypeStrokeComplete, &complete)
		if complete.Stroke.ID != "s1" {
			t.Errorf("expected stroke s1, got %s", complete.Stroke.ID)
		}
		if complete.HistoryIndex != 0 {
			t.Errorf("expected history index 0, got %d", complete.HistoryIndex)
		}
		if complete.Stroke.UserColor != room.UserColors[0] {
			t.Errorf("stroke should carry the author color, got %s", complete.Stroke.UserColor)
		}
	}
}

// Scenario: A and B share a room, A draws one stroke, B undoes it. Both see
// the undo with index -1, and a late joiner gets an empty canvas.
func TestSession_GlobalUndoScenario(t *testing.T) {
	coord := newTestCoordinator(Options{})
	alice := newFakeClient("conn-a")
	bob := newFakeClient("conn-b")
	sa := join(coord, alice, "r1", "alice")
	sb := join(coord, bob, "r1", "bob")

	sa.HandleMessage(request(MessageTypeDrawingEnd, DrawingEndRequest{
		StrokeID: "s1",
		Points:   []model.Point{{X: 1, Y: 1}, {X: 2, Y: 2}},
	}))

	sb.HandleMessage(&Message{Type: MessageTypeUndoRequest})

	for _, client := range []*fakeClient{alice, bob} {
		var undo UndoPerformed
		client.lastOf(t, MessageTypeUndoPerformed, &undo)
		if undo.InitiatedBy != "bob" {
			t.Errorf("expected initiator bob, got %s", undo.InitiatedBy)
		}
		if undo.HistoryIndex != -1 {
			t.Errorf("expected history index -1, got %d", undo.HistoryIndex)
		}
		if undo.UndoneStroke.ID != "s1" {
			t.Errorf("expected undone stroke s1, got %s", undo.UndoneStroke.ID)
		}
	}

	carol := newFakeClient("conn-c")
	join(coord, carol, "r1", "carol")

	var joined RoomJoined
	carol.lastOf(t, MessageTypeRoomJoined, &joined)
	if len(joined.DrawingHistory) != 0 {
		t.Errorf("late joiner should see an empty canvas, got %d strokes", len(joined.DrawingHistory))
	}
}

func TestSession_UndoFailureGoesToSenderOnly(t *testing.T) {
	coord := newTestCoordinator(Options{})
	alice := newFakeClient("conn-a")
	bob := newFakeClient("conn-b")
	sa := join(coord, alice, "r1", "alice")
	join(coord, bob, "r1", "bob")

	sa.HandleMessage(&Message{Type: MessageTypeUndoRequest})

	var failed ActionFailed
	alice.lastOf(t, MessageTypeUndoFailed, &failed)
	if failed.Reason != "nothing to undo" {
		t.Errorf("unexpected failure reason: %s", failed.Reason)
	}
	if len(bob.received(MessageTypeUndoFailed)) != 0 {
		t.Error("undo failure must not be broadcast to the room")
	}
}

func TestSession_RedoRoundTrip(t *testing.T) {
	coord := newTestCoordinator(Options{})
	alice := newFakeClient("conn-a")
	sa := join(coord, alice, "r1", "alice")

	sa.HandleMessage(request(MessageTypeDrawingEnd, DrawingEndRequest{StrokeID: "s1"}))
	sa.HandleMessage(&Message{Type: MessageTypeUndoRequest})
	sa.HandleMessage(&Message{Type: MessageTypeRedoRequest})

	var redo RedoPerformed
	alice.lastOf(t, MessageTypeRedoPerformed, &redo)
	if redo.HistoryIndex != 0 {
		t.Errorf("expected history index 0 after redo, got %d", redo.HistoryIndex)
	}
	if redo.RedoneStroke.ID != "s1" {
		t.Errorf("expected redone stroke s1, got %s", redo.RedoneStroke.ID)
	}

	// Redo at the top fails to the sender only
	sa.HandleMessage(&Message{Type: MessageTypeRedoRequest})
	var failed ActionFailed
	alice.lastOf(t, MessageTypeRedoFailed, &failed)
	if failed.Reason != "nothing to redo" {
		t.Errorf("unexpected failure reason: %s", failed.Reason)
	}
}

func TestSession_ClearCanvas(t *testing.T) {
	coord := newTestCoordinator(Options{})
	alice := newFakeClient("conn-a")
	bob := newFakeClient("conn-b")
	sa := join(coord, alice, "r1", "alice")
	join(coord, bob, "r1", "bob")

	sa.HandleMessage(request(MessageTypeDrawingEnd, DrawingEndRequest{StrokeID: "s1"}))
	sa.HandleMessage(&Message{Type: MessageTypeClearCanvas})

	var cleared CanvasCleared
	bob.lastOf(t, MessageTypeCanvasCleared, &cleared)
	if cleared.InitiatedBy != "alice" {
		t.Errorf("expected initiator alice, got %s", cleared.InitiatedBy)
	}
	if cleared.HistoryIndex != -1 {
		t.Errorf("expected history index -1, got %d", cleared.HistoryIndex)
	}

	// Clear is irreversible
	sa.HandleMessage(&Message{Type: MessageTypeUndoRequest})
	var failed ActionFailed
	alice.lastOf(t, MessageTypeUndoFailed, &failed)
	if failed.Reason != "nothing to undo" {
		t.Errorf("undo after clear should fail, got %s", failed.Reason)
	}
}

func TestSession_CursorMove(t *testing.T) {
	coord := newTestCoordinator(Options{})
	alice := newFakeClient("conn-a")
	bob := newFakeClient("conn-b")
	sa := join(coord, alice, "r1", "alice")
	join(coord, bob, "r1", "bob")

	sa.HandleMessage(request(MessageTypeCursorMove, CursorMoveRequest{
		Position: model.Point{X: 5, Y: 7},
	}))

	var update CursorUpdate
	bob.lastOf(t, MessageTypeCursorUpdate, &update)
	if update.UserID != "conn-a" || update.Position.X != 5 || update.Position.Y != 7 {
		t.Errorf("unexpected cursor update: %+v", update)
	}
	if len(alice.received(MessageTypeCursorUpdate)) != 0 {
		t.Error("sender must not receive its own cursor update")
	}

	rm, _ := coord.directory.Get("r1")
	users := rm.Users()
	for _, u := range users {
		if u.ID == "conn-a" && (u.CursorPosition.X != 5 || u.CursorPosition.Y != 7) {
			t.Errorf("cursor position not stored: %+v", u.CursorPosition)
		}
	}
}

func TestSession_EventsBeforeJoinAreDropped(t *testing.T) {
	coord := newTestCoordinator(Options{})
	client := newFakeClient("conn-a")
	s := coord.NewSession(client)

	s.HandleMessage(request(MessageTypeDrawingEnd, DrawingEndRequest{StrokeID: "s1"}))
	s.HandleMessage(&Message{Type: MessageTypeUndoRequest})
	s.HandleMessage(&Message{Type: MessageTypeClearCanvas})

	if len(client.msgs) != 0 {
		t.Errorf("unjoined events should be silently dropped, got %d replies", len(client.msgs))
	}
}

func TestSession_StrictProtocolSurfacesViolations(t *testing.T) {
	coord := newTestCoordinator(Options{StrictProtocol: true})
	client := newFakeClient("conn-a")
	s := coord.NewSession(client)

	s.HandleMessage(&Message{Type: MessageTypeUndoRequest})

	var perr ProtocolError
	client.lastOf(t, MessageTypeError, &perr)
	if perr.Reason != "not in a room" {
		t.Errorf("unexpected violation reason: %s", perr.Reason)
	}

	// Duplicate join is a violation too
	s.HandleMessage(request(MessageTypeJoinRoom, JoinRoomRequest{RoomID: "r1", Username: "alice"}))
	s.HandleMessage(request(MessageTypeJoinRoom, JoinRoomRequest{RoomID: "r2", Username: "alice"}))

	var joined RoomJoined
	client.lastOf(t, MessageTypeRoomJoined, &joined)
	if joined.RoomID != "r1" {
		t.Errorf("second join must not move the session, got %s", joined.RoomID)
	}
	if len(client.received(MessageTypeError)) != 2 {
		t.Errorf("expected 2 protocol errors, got %d", len(client.received(MessageTypeError)))
	}
}

func TestSession_DisconnectTeardown(t *testing.T) {
	coord := newTestCoordinator(Options{})
	alice := newFakeClient("conn-a")
	bob := newFakeClient("conn-b")
	sa := join(coord, alice, "r1", "alice")
	sb := join(coord, bob, "r1", "bob")

	sa.HandleMessage(request(MessageTypeDrawingEnd, DrawingEndRequest{StrokeID: "s1"}))

	sa.Disconnect()
	sa.Disconnect() // idempotent

	var left UserLeft
	bob.lastOf(t, MessageTypeUserLeft, &left)
	if left.UserID != "conn-a" || left.Username != "alice" {
		t.Errorf("unexpected user_left payload: %+v", left)
	}
	if len(left.Users) != 1 {
		t.Errorf("expected 1 remaining user, got %d", len(left.Users))
	}

	// Room survives while bob is present
	if _, ok := coord.directory.Get("r1"); !ok {
		t.Fatal("room should still exist")
	}

	sb.Disconnect()
	if _, ok := coord.directory.Get("r1"); ok {
		t.Fatal("room should be destroyed with its last member")
	}
	if coord.hubs.Get("r1") != nil {
		t.Fatal("hub should be removed with the room")
	}

	// A fresh join to the same id sees no prior strokes
	carol := newFakeClient("conn-c")
	join(coord, carol, "r1", "carol")
	var joined RoomJoined
	carol.lastOf(t, MessageTypeRoomJoined, &joined)
	if len(joined.DrawingHistory) != 0 {
		t.Errorf("recreated room must start empty, got %d strokes", len(joined.DrawingHistory))
	}
}

// Stroke commits and their broadcasts happen in one critical section, so
// every observer must see stroke_complete frames with strictly increasing
// history indexes no matter how many sessions draw at once.
func TestSession_ConcurrentStrokeOrdering(t *testing.T) {
	const (
		sessions         = 3
		strokesPerDrawer = 50
	)

	coord := newTestCoordinator(Options{})

	clients := make([]*fakeClient, sessions)
	sess := make([]*Session, sessions)
	for i := 0; i < sessions; i++ {
		clients[i] = newFakeClient("conn-" + string(rune('a'+i)))
		sess[i] = join(coord, clients[i], "r1", "drawer"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			for j := 0; j < strokesPerDrawer; j++ {
				s.HandleMessage(request(MessageTypeDrawingEnd, DrawingEndRequest{
					StrokeID: "s",
					Points:   []model.Point{{X: float64(j), Y: float64(j)}},
				}))
			}
		}(sess[i])
	}
	wg.Wait()

	total := sessions * strokesPerDrawer
	for i, client := range clients {
		msgs := client.received(MessageTypeStrokeComplete)
		if len(msgs) != total {
			t.Fatalf("client %d: expected %d stroke_complete frames, got %d", i, total, len(msgs))
		}
		for j, m := range msgs {
			var complete StrokeComplete
			if err := json.Unmarshal(m.Payload, &complete); err != nil {
				t.Fatalf("client %d: bad stroke_complete payload: %v", i, err)
			}
			if complete.HistoryIndex != j {
				t.Fatalf("client %d: frame %d carries history index %d; broadcasts arrived out of commit order",
					i, j, complete.HistoryIndex)
			}
		}
	}
}

// A client joining while strokes are being committed must see every stroke
// exactly once: either inside its room_joined snapshot or as a later
// stroke_complete broadcast, never in neither and never in both.
func TestSession_JoinDuringCommitLosesNoStrokes(t *testing.T) {
	const strokes = 100

	coord := newTestCoordinator(Options{})
	alice := newFakeClient("conn-a")
	sa := join(coord, alice, "r1", "alice")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for j := 0; j < strokes; j++ {
			sa.HandleMessage(request(MessageTypeDrawingEnd, DrawingEndRequest{
				StrokeID: "s",
				Points:   []model.Point{{X: float64(j)}},
			}))
		}
	}()

	bob := newFakeClient("conn-b")
	join(coord, bob, "r1", "bob")
	<-done

	var joined RoomJoined
	bob.lastOf(t, MessageTypeRoomJoined, &joined)

	seen := len(joined.DrawingHistory)
	for _, m := range bob.received(MessageTypeStrokeComplete) {
		var complete StrokeComplete
		if err := json.Unmarshal(m.Payload, &complete); err != nil {
			t.Fatalf("bad stroke_complete payload: %v", err)
		}
		if complete.HistoryIndex != seen {
			t.Fatalf("expected broadcast for index %d, got %d; stroke lost or duplicated around the join",
				seen, complete.HistoryIndex)
		}
		seen++
	}
	if seen != strokes {
		t.Fatalf("joiner observed %d strokes via snapshot+broadcasts, want %d", seen, strokes)
	}
}

func TestSession_UnknownEventType(t *testing.T) {
	coord := newTestCoordinator(Options{})
	client := newFakeClient("conn-a")
	s := join(coord, client, "r1", "alice")

	s.HandleMessage(&Message{Type: "bogus"})
	if len(client.received(MessageTypeError)) != 0 {
		t.Error("unknown events should be dropped in permissive mode")
	}
}
