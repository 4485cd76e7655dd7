package model

// Point is a single canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is a completed drawing action. Strokes are immutable once committed
// to a room's history; in-flight strokes are relayed point by point and never
// stored.
type Stroke struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	Username  string  `json:"username"`
	UserColor string  `json:"userColor"`
	Points    []Point `json:"points"`
	Color     string  `json:"color"`
	Width     float64 `json:"width"`
	Tool      string  `json:"tool"`
	Timestamp int64   `json:"timestamp"`
}
