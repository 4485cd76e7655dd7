package model

// User represents a connected participant. The ID is the opaque connection
// identifier assigned at join time; the color is assigned from the room
// palette and never changes for the lifetime of the connection.
type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Color          string `json:"color"`
	CursorPosition Point  `json:"cursorPosition"`
	JoinedAt       int64  `json:"joinedAt,omitempty"`
}
