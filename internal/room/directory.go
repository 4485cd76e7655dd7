package room

import (
	"sync"

	"github.com/collab-canvas/backend/internal/model"
)

// Directory owns every live room. Rooms are created lazily on first join and
// destroyed, history included, the moment the last member leaves. Join and
// leave run under the directory lock so a join can never race a teardown of
// the same room id.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		rooms: make(map[string]*Room),
	}
}

// Join adds the user to the room, creating the room and its ledger first if
// this is the first join to the id. It reports whether the room was created.
// A non-nil fn runs inside the room's critical section, after the membership
// change but before any later mutation of the room; joiners use it to
// subscribe to broadcasts atomically with the snapshot they were handed.
func (d *Directory) Join(roomID string, user *model.User, fn func(tx *Tx, snap JoinSnapshot)) (*Room, JoinSnapshot, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[roomID]
	if !ok {
		r = newRoom(roomID)
		d.rooms[roomID] = r
	}

	var snap JoinSnapshot
	r.Update(func(tx *Tx) {
		snap = tx.Join(user)
		if fn != nil {
			fn(tx, snap)
		}
	})
	return r, snap, !ok
}

// Leave removes the user from the room and deletes the room, membership and
// ledger together, when it becomes empty. It returns the updated peer list
// and whether the room was destroyed. A non-nil fn runs inside the room's
// critical section so departure broadcasts cannot reorder against other
// mutations. Leaving an unknown room is a no-op.
func (d *Directory) Leave(roomID, userID string, fn func(tx *Tx, users []model.User, destroyed bool)) ([]model.User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[roomID]
	if !ok {
		return nil, false
	}

	var (
		users     []model.User
		destroyed bool
	)
	r.Update(func(tx *Tx) {
		var remaining int
		remaining, users = tx.Leave(userID)
		destroyed = remaining == 0
		if fn != nil {
			fn(tx, users, destroyed)
		}
	})
	if destroyed {
		delete(d.rooms, roomID)
	}
	return users, destroyed
}

// Get returns the room for the id, if it exists.
func (d *Directory) Get(roomID string) (*Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.rooms[roomID]
	return r, ok
}

// Rooms returns the ids of all live rooms.
func (d *Directory) Rooms() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.rooms))
	for id := range d.rooms {
		ids = append(ids, id)
	}
	return ids
}

// Stats returns the diagnostic snapshot for a room.
func (d *Directory) Stats(roomID string) (Stats, error) {
	d.mu.RLock()
	r, ok := d.rooms[roomID]
	d.mu.RUnlock()
	if !ok {
		return Stats{}, model.ErrRoomNotFound
	}
	return r.Stats(), nil
}
