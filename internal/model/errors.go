package model

import "errors"

var (
	// ErrRoomNotFound is returned when an operation references a room that
	// has not been created or was already torn down.
	ErrRoomNotFound = errors.New("room not found")

	// ErrNothingToUndo is returned when undo is requested on a room whose
	// history cursor is already at the bottom.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo is returned when redo is requested and no undone
	// strokes remain ahead of the history cursor.
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrProtocolViolation is returned when a client sends an event that is
	// not valid in its current connection state.
	ErrProtocolViolation = errors.New("protocol violation")
)
