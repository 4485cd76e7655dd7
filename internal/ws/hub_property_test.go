package ws

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: wire envelopes survive an encode/decode round trip with payload
// intact.
func TestMessageEnvelopeRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("envelope preserves type and payload", prop.ForAll(
		func(reason string) bool {
			data := encode(MessageTypeUndoFailed, ActionFailed{Reason: reason})

			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				return false
			}
			if msg.Type != MessageTypeUndoFailed {
				return false
			}
			var failed ActionFailed
			if err := json.Unmarshal(msg.Payload, &failed); err != nil {
				return false
			}
			return failed.Reason == reason
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// Property: a room broadcast reaches every registered client, and an
// excluding broadcast reaches everyone but the author.
func TestHubBroadcastProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("broadcast delivers to all clients", prop.ForAll(
		func(numClients int) bool {
			hub := NewHub()
			clients := make([]*fakeClient, numClients)
			for i := range clients {
				clients[i] = newFakeClient(fmt.Sprintf("conn-%d", i))
				hub.Register(clients[i])
			}

			hub.Broadcast(encode(MessageTypeCanvasCleared, CanvasCleared{HistoryIndex: -1}))

			for _, c := range clients {
				if len(c.received(MessageTypeCanvasCleared)) != 1 {
					return false
				}
			}
			return hub.ClientCount() == numClients
		},
		gen.IntRange(1, 10),
	))

	properties.Property("excluding broadcast skips exactly the author", prop.ForAll(
		func(numClients, author int) bool {
			hub := NewHub()
			clients := make([]*fakeClient, numClients)
			for i := range clients {
				clients[i] = newFakeClient(fmt.Sprintf("conn-%d", i))
				hub.Register(clients[i])
			}
			authorID := clients[author%numClients].UserID()

			hub.BroadcastExcept(authorID, encode(MessageTypeCursorUpdate, CursorUpdate{UserID: authorID}))

			for _, c := range clients {
				got := len(c.received(MessageTypeCursorUpdate))
				if c.UserID() == authorID && got != 0 {
					return false
				}
				if c.UserID() != authorID && got != 1 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 10),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
