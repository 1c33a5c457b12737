// Package channel implements the server side of the realtime relay: topic
// scoped broadcast and presence channels over WebSocket connections. Rooms
// use one topic each; the relay itself knows nothing about signaling
// semantics and simply fans messages out.
package channel

import "encoding/json"

// Envelope is the JSON structure for all client-to-server and
// server-to-client channel messages.
type Envelope struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// client is the connection the message arrived on. Internal to the hub,
	// never serialized.
	client *Client `json:"-"`
}

// Client-to-server message types.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeTrack       = "track"
	TypeUntrack     = "untrack"
	TypeBroadcast   = "broadcast"
)

// Server-to-client message types.
const (
	TypeSubscribed    = "subscribed"
	TypePresenceState = "presence_state"
	TypeError         = "error"
)

// ErrorPayload carries a human-readable error back to the client.
type ErrorPayload struct {
	Error string `json:"error"`
}

func errorEnvelope(text string) *Envelope {
	payload, _ := json.Marshal(ErrorPayload{Error: text})
	return &Envelope{Type: TypeError, Payload: payload}
}
