package channel

import "encoding/json"

// Topic is one broadcast+presence scope, shared by every client subscribed to
// the same room. Only the hub goroutine touches it.
type Topic struct {
	// ID is the topic name, e.g. "room:algebra-1".
	ID string

	// Clients is the set of subscribed connections.
	Clients map[*Client]struct{}

	// Presence maps user IDs to their last tracked record, last-write-wins.
	// Records are kept opaque; the hub keys them by the connection's verified
	// identity so a client cannot overwrite someone else's entry.
	Presence map[string]json.RawMessage
}

func newTopic(id string) *Topic {
	return &Topic{
		ID:       id,
		Clients:  make(map[*Client]struct{}),
		Presence: make(map[string]json.RawMessage),
	}
}

// presenceEnvelope builds the full presence snapshot sent on every change.
// Full-replace, not deltas: participant counts are classroom scale.
func (t *Topic) presenceEnvelope() *Envelope {
	payload, _ := json.Marshal(t.Presence)
	return &Envelope{Type: TypePresenceState, Topic: t.ID, Payload: payload}
}

// broadcast queues env to every subscribed client, optionally skipping one.
func (t *Topic) broadcast(env *Envelope, skip *Client) {
	for c := range t.Clients {
		if c == skip {
			continue
		}
		c.queue(env)
	}
}
