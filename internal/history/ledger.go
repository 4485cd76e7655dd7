// Package history provides the per-room stroke journal with a shared
// undo/redo cursor.
package history

import (
	"time"

	"github.com/collab-canvas/backend/internal/model"
)

// MaxEntries is the rolling history window. When the journal grows past this
// bound the oldest strokes are dropped and the cursor shifts down with them.
const MaxEntries = 500

// Ledger is an ordered sequence of completed strokes plus a cursor marking
// the boundary between active and undone strokes. Entries at index <= cursor
// are visible on the shared canvas; entries above it are redoable.
//
// Undo is a cursor move, not a deletion, so a later redo restores the exact
// same stroke. The cursor satisfies -1 <= cursor <= len(entries)-1.
//
// A Ledger is not safe for concurrent use; the owning room serializes access.
type Ledger struct {
	entries      []model.Stroke
	cursor       int
	maxEntries   int
	createdAt    time.Time
	lastModified time.Time
}

// Stats is a diagnostic snapshot of a ledger.
type Stats struct {
	TotalStrokes  int       `json:"totalStrokes"`
	CurrentIndex  int       `json:"currentIndex"`
	ActiveStrokes int       `json:"activeStrokes"`
	UndoAvailable bool      `json:"undoAvailable"`
	RedoAvailable bool      `json:"redoAvailable"`
	CreatedAt     time.Time `json:"createdAt"`
	LastModified  time.Time `json:"lastModified"`
}

// NewLedger creates an empty ledger bounded by MaxEntries.
func NewLedger() *Ledger {
	return NewLedgerWithCapacity(MaxEntries)
}

// NewLedgerWithCapacity creates an empty ledger with a custom bound.
// The bound must be greater than 0; if not, it defaults to MaxEntries.
func NewLedgerWithCapacity(maxEntries int) *Ledger {
	if maxEntries <= 0 {
		maxEntries = MaxEntries
	}
	now := time.Now()
	return &Ledger{
		cursor:       -1,
		maxEntries:   maxEntries,
		createdAt:    now,
		lastModified: now,
	}
}

// Append commits a stroke at the cursor. Any undone strokes above the cursor
// are discarded first: drawing after an undo forecloses the old redo branch,
// keeping the timeline linear. Returns the new cursor value.
func (l *Ledger) Append(stroke model.Stroke) int {
	if l.cursor < len(l.entries)-1 {
		l.entries = l.entries[:l.cursor+1]
	}

	l.entries = append(l.entries, stroke)
	l.cursor = len(l.entries) - 1

	if len(l.entries) > l.maxEntries {
		drop := len(l.entries) - l.maxEntries
		l.entries = append([]model.Stroke(nil), l.entries[drop:]...)
		l.cursor -= drop
		if l.cursor < -1 {
			l.cursor = -1
		}
	}

	l.lastModified = time.Now()
	return l.cursor
}

// Undo hides the stroke at the cursor and returns it. The entry stays in the
// journal for a future redo. Fails with ErrNothingToUndo at the bottom.
func (l *Ledger) Undo() (model.Stroke, int, error) {
	if l.cursor < 0 {
		return model.Stroke{}, l.cursor, model.ErrNothingToUndo
	}
	undone := l.entries[l.cursor]
	l.cursor--
	l.lastModified = time.Now()
	return undone, l.cursor, nil
}

// Redo reveals the stroke just above the cursor and returns it. Fails with
// ErrNothingToRedo when no undone strokes remain.
func (l *Ledger) Redo() (model.Stroke, int, error) {
	if l.cursor >= len(l.entries)-1 {
		return model.Stroke{}, l.cursor, model.ErrNothingToRedo
	}
	l.cursor++
	l.lastModified = time.Now()
	return l.entries[l.cursor], l.cursor, nil
}

// VisibleHistory returns a copy of the active prefix entries[0..cursor],
// the state a newly joining client needs to reconstruct the canvas.
func (l *Ledger) VisibleHistory() []model.Stroke {
	if l.cursor < 0 {
		return []model.Stroke{}
	}
	visible := make([]model.Stroke, l.cursor+1)
	copy(visible, l.entries[:l.cursor+1])
	return visible
}

// Cursor returns the current history index.
func (l *Ledger) Cursor() int {
	return l.cursor
}

// Len returns the total number of journaled strokes, undone ones included.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Clear drops all strokes and resets the cursor. Clearing is irreversible;
// it does not participate in undo/redo.
func (l *Ledger) Clear() {
	l.entries = nil
	l.cursor = -1
	l.lastModified = time.Now()
}

// Stats returns a diagnostic snapshot. Used for monitoring endpoints, not
// for correctness.
func (l *Ledger) Stats() Stats {
	return Stats{
		TotalStrokes:  len(l.entries),
		CurrentIndex:  l.cursor,
		ActiveStrokes: l.cursor + 1,
		UndoAvailable: l.cursor >= 0,
		RedoAvailable: l.cursor < len(l.entries)-1,
		CreatedAt:     l.createdAt,
		LastModified:  l.lastModified,
	}
}
