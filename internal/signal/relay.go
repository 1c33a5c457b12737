package signal

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Sender is the slice of the realtime channel the relay needs.
type Sender interface {
	Send(event string, payload any) error
}

// Relay sends signaling messages over a room-scoped broadcast channel and
// routes inbound ones addressed to the local user.
type Relay struct {
	localID string
	ch      Sender
}

// NewRelay creates a relay for the given local user ID.
func NewRelay(localID string, ch Sender) *Relay {
	return &Relay{localID: localID, ch: ch}
}

// Send broadcasts msg to the room. The From field is stamped with the local
// user ID; recipients other than msg.To discard it on arrival.
func (r *Relay) Send(msg Message) error {
	msg.From = r.localID
	if err := r.ch.Send(Event, msg); err != nil {
		return fmt.Errorf("send %s signal: %w", msg.Type, err)
	}
	return nil
}

// Route decodes a raw broadcast payload and hands it to h if and only if it
// names the local user as recipient. Everything else is dropped silently.
func (r *Relay) Route(raw json.RawMessage, h func(Message)) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		slog.Debug("dropping malformed signal", "err", err)
		return
	}
	if msg.To != r.localID || msg.From == r.localID {
		return
	}
	h(msg)
}
