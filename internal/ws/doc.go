// Package ws provides WebSocket connection handling and the synchronization
// coordinator for shared canvas rooms.
//
// The package implements:
//   - Client: a connection with a buffered, ordered outbound channel
//   - Hub / HubManager: per-room broadcast fan-out
//   - Handler: connection upgrade plus the read/write pumps
//   - Coordinator / Session: the per-connection protocol state machine that
//     serializes room mutations and computes the broadcast set per event
//
// Key properties:
//   - Events on one connection are processed to completion in arrival order
//   - Mutations to one room (stroke commits, undo/redo, clear, membership)
//     are serialized by the room aggregate; rooms never block each other
//   - Undo/redo are global per room: any member may undo any stroke
//   - Slow consumers are disconnected rather than allowed to stall a room
package ws
