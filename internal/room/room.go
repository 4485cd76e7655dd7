// Package room provides the room aggregate and the directory that owns all
// live rooms. A room folds membership and the stroke history into a single
// object so the two can never fall out of lockstep.
package room

import (
	"sync"
	"time"

	"github.com/collab-canvas/backend/internal/history"
	"github.com/collab-canvas/backend/internal/model"
)

// UserColors is the fixed palette assigned round-robin at join time, indexed
// by the room's member count mod the palette size. Colors are not reassigned
// when other members leave.
var UserColors = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FFEAA7",
	"#DDA0DD", "#98D8C8", "#F7DC6F", "#BB8FCE", "#85C1E9",
	"#F8B500", "#00CED1", "#FF69B4", "#32CD32", "#FF4500",
}

// Room is the per-room synchronization point. One mutex guards the member
// set and the history ledger together, so every mutation is applied one at
// a time. Callers that must observe a mutation and emit its broadcast
// frames as a single atomic step run both inside Update.
type Room struct {
	ID        string
	CreatedAt time.Time

	mu     sync.Mutex
	users  map[string]*model.User
	order  []string // user ids in join order, for stable peer lists
	ledger *history.Ledger
}

// Stats is a diagnostic snapshot of a room and its history.
type Stats struct {
	ID        string        `json:"id"`
	UserCount int           `json:"userCount"`
	CreatedAt time.Time     `json:"createdAt"`
	Uptime    string        `json:"uptime"`
	History   history.Stats `json:"history"`
}

// JoinSnapshot is the authoritative state handed to a joining client.
type JoinSnapshot struct {
	User         model.User
	Users        []model.User
	History      []model.Stroke
	HistoryIndex int
}

func newRoom(id string) *Room {
	return &Room{
		ID:        id,
		CreatedAt: time.Now(),
		users:     make(map[string]*model.User),
		ledger:    history.NewLedger(),
	}
}

// Update runs fn inside the room's critical section. State reached through
// the Tx and any outbound frames fn enqueues are serialized against every
// other mutation of this room, so no observer can see mutations in a
// different order than the room applied them.
func (r *Room) Update(fn func(tx *Tx)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&Tx{r: r})
}

// Tx is the view of a room from inside its critical section. A Tx is only
// valid for the duration of the Update call that produced it.
type Tx struct {
	r *Room
}

// Join registers a user, assigns a palette color from the current member
// count, and returns the snapshot the joiner needs to reconstruct the canvas.
func (tx *Tx) Join(user *model.User) JoinSnapshot {
	r := tx.r
	user.Color = UserColors[len(r.users)%len(UserColors)]
	user.JoinedAt = time.Now().UnixMilli()
	r.users[user.ID] = user
	r.order = append(r.order, user.ID)

	return JoinSnapshot{
		User:         *user,
		Users:        tx.Users(),
		History:      r.ledger.VisibleHistory(),
		HistoryIndex: r.ledger.Cursor(),
	}
}

// Leave removes a user and returns the remaining member count together with
// the updated peer list. Removing an absent user is a no-op.
func (tx *Tx) Leave(userID string) (int, []model.User) {
	r := tx.r
	if _, ok := r.users[userID]; ok {
		delete(r.users, userID)
		for i, id := range r.order {
			if id == userID {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	return len(r.users), tx.Users()
}

// Users returns the current members in join order.
func (tx *Tx) Users() []model.User {
	r := tx.r
	users := make([]model.User, 0, len(r.users))
	for _, id := range r.order {
		if u, ok := r.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users
}

// UpdateCursor records a member's last-known pointer position.
func (tx *Tx) UpdateCursor(userID string, pos model.Point) {
	if u, ok := tx.r.users[userID]; ok {
		u.CursorPosition = pos
	}
}

// AppendStroke commits a completed stroke to the history and returns the new
// history index.
func (tx *Tx) AppendStroke(stroke model.Stroke) int {
	return tx.r.ledger.Append(stroke)
}

// Undo hides the newest visible stroke. The returned stroke stays journaled
// for a later redo.
func (tx *Tx) Undo() (model.Stroke, int, error) {
	return tx.r.ledger.Undo()
}

// Redo reveals the most recently undone stroke.
func (tx *Tx) Redo() (model.Stroke, int, error) {
	return tx.r.ledger.Redo()
}

// ClearHistory irreversibly wipes the canvas history.
func (tx *Tx) ClearHistory() {
	tx.r.ledger.Clear()
}

// StrokeCount returns the total number of journaled strokes, undone ones
// included.
func (tx *Tx) StrokeCount() int {
	return tx.r.ledger.Len()
}

// Users returns the current members in join order.
func (r *Room) Users() []model.User {
	var users []model.User
	r.Update(func(tx *Tx) { users = tx.Users() })
	return users
}

// UserCount returns the current number of members.
func (r *Room) UserCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// UpdateCursor records a member's last-known pointer position.
func (r *Room) UpdateCursor(userID string, pos model.Point) {
	r.Update(func(tx *Tx) { tx.UpdateCursor(userID, pos) })
}

// AppendStroke commits a completed stroke and returns the new history index.
func (r *Room) AppendStroke(stroke model.Stroke) int {
	var index int
	r.Update(func(tx *Tx) { index = tx.AppendStroke(stroke) })
	return index
}

// Undo hides the newest visible stroke.
func (r *Room) Undo() (model.Stroke, int, error) {
	var (
		stroke model.Stroke
		index  int
		err    error
	)
	r.Update(func(tx *Tx) { stroke, index, err = tx.Undo() })
	return stroke, index, err
}

// Redo reveals the most recently undone stroke.
func (r *Room) Redo() (model.Stroke, int, error) {
	var (
		stroke model.Stroke
		index  int
		err    error
	)
	r.Update(func(tx *Tx) { stroke, index, err = tx.Redo() })
	return stroke, index, err
}

// ClearHistory irreversibly wipes the canvas history.
func (r *Room) ClearHistory() {
	r.Update(func(tx *Tx) { tx.ClearHistory() })
}

// Stats returns a diagnostic snapshot of the room.
func (r *Room) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		ID:        r.ID,
		UserCount: len(r.users),
		CreatedAt: r.CreatedAt,
		Uptime:    time.Since(r.CreatedAt).Round(time.Second).String(),
		History:   r.ledger.Stats(),
	}
}
