// Package repository provides data access for the room activity log.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Activity event names.
const (
	EventRoomCreated = "room_created"
	EventRoomClosed  = "room_closed"
)

// ActivityEntry is one recorded room lifecycle event.
type ActivityEntry struct {
	ID          int64     `json:"id"`
	RoomID      string    `json:"roomId"`
	Event       string    `json:"event"`
	StrokeCount int       `json:"strokeCount"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// ActivityRepository records room lifecycle events for diagnostics. It is a
// write-mostly log: live canvas state is never reconstructed from it.
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// RecordRoomCreated records the creation of a room.
func (r *ActivityRepository) RecordRoomCreated(ctx context.Context, roomID string) error {
	return r.record(ctx, roomID, EventRoomCreated, 0)
}

// RecordRoomClosed records a room teardown together with the number of
// strokes its history held at the end.
func (r *ActivityRepository) RecordRoomClosed(ctx context.Context, roomID string, strokeCount int) error {
	return r.record(ctx, roomID, EventRoomClosed, strokeCount)
}

func (r *ActivityRepository) record(ctx context.Context, roomID, event string, strokeCount int) error {
	query := `
		INSERT INTO room_activity (room_id, event, stroke_count, occurred_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, roomID, event, strokeCount, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", event, err)
	}
	return nil
}

// Recent returns the newest activity entries, most recent first.
func (r *ActivityRepository) Recent(ctx context.Context, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, room_id, event, stroke_count, occurred_at
		FROM room_activity
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var entries []ActivityEntry
	for rows.Next() {
		var e ActivityEntry
		if err := rows.Scan(&e.ID, &e.RoomID, &e.Event, &e.StrokeCount, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
