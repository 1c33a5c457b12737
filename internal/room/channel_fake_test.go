package room

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/edumesh/liveclass/internal/presence"
	"github.com/edumesh/liveclass/internal/signal"
)

// fakeHub is an in-memory stand-in for the realtime relay: topic-scoped
// broadcast plus presence, delivered synchronously. It also records every
// signaling message so tests can assert on what went over the wire.
type fakeHub struct {
	mu       sync.Mutex
	channels map[string][]*fakeChannel
	presence map[string]map[string]presence.Record
	signals  []signal.Message
}

func newFakeHub() *fakeHub {
	return &fakeHub{
		channels: make(map[string][]*fakeChannel),
		presence: make(map[string]map[string]presence.Record),
	}
}

func (h *fakeHub) factory() ChannelFactory {
	return func(topic string) (Channel, error) {
		return &fakeChannel{hub: h, topic: topic}, nil
	}
}

// sentSignals returns a copy of every signaling message seen by the hub,
// optionally filtered by type.
func (h *fakeHub) sentSignals(t signal.Type) []signal.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []signal.Message
	for _, msg := range h.signals {
		if t == "" || msg.Type == t {
			out = append(out, msg)
		}
	}
	return out
}

// inject broadcasts a raw signaling message into a topic, as a misbehaving or
// external client could.
func (h *fakeHub) inject(topic string, msg signal.Message) {
	raw, _ := json.Marshal(msg)
	h.deliver(topic, nil, signal.Event, raw)
}

func (h *fakeHub) deliver(topic string, from *fakeChannel, event string, raw json.RawMessage) {
	h.mu.Lock()
	var targets []*fakeChannel
	for _, ch := range h.channels[topic] {
		if ch != from && ch.subscribed {
			targets = append(targets, ch)
		}
	}
	h.mu.Unlock()

	for _, ch := range targets {
		ch.dispatch(event, raw)
	}
}

func (h *fakeHub) broadcastPresence(topic string) {
	h.mu.Lock()
	snap := make(map[string]presence.Record, len(h.presence[topic]))
	for id, rec := range h.presence[topic] {
		snap[id] = rec
	}
	var targets []*fakeChannel
	for _, ch := range h.channels[topic] {
		if ch.subscribed {
			targets = append(targets, ch)
		}
	}
	h.mu.Unlock()

	for _, ch := range targets {
		ch.dispatchPresence(snap)
	}
}

type fakeChannel struct {
	hub   *fakeHub
	topic string

	mu         sync.Mutex
	subscribed bool
	userID     string
	handlers   map[string][]func(json.RawMessage)
	onPresence []func(map[string]presence.Record)
	failSend   error
}

func (c *fakeChannel) Subscribe(ctx context.Context) error {
	c.hub.mu.Lock()
	c.hub.channels[c.topic] = append(c.hub.channels[c.topic], c)
	c.hub.mu.Unlock()

	c.mu.Lock()
	c.subscribed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) Track(rec presence.Record) error {
	c.mu.Lock()
	c.userID = rec.UserID
	c.mu.Unlock()

	c.hub.mu.Lock()
	if c.hub.presence[c.topic] == nil {
		c.hub.presence[c.topic] = make(map[string]presence.Record)
	}
	c.hub.presence[c.topic][rec.UserID] = rec
	c.hub.mu.Unlock()

	c.hub.broadcastPresence(c.topic)
	return nil
}

func (c *fakeChannel) Send(event string, payload any) error {
	c.mu.Lock()
	failSend := c.failSend
	c.mu.Unlock()
	if failSend != nil {
		return failSend
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if event == signal.Event {
		var msg signal.Message
		if err := json.Unmarshal(raw, &msg); err == nil {
			c.hub.mu.Lock()
			c.hub.signals = append(c.hub.signals, msg)
			c.hub.mu.Unlock()
		}
	}
	c.hub.deliver(c.topic, c, event, raw)
	return nil
}

func (c *fakeChannel) On(event string, h func(json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlers == nil {
		c.handlers = make(map[string][]func(json.RawMessage))
	}
	c.handlers[event] = append(c.handlers[event], h)
}

func (c *fakeChannel) OnPresence(h func(map[string]presence.Record)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPresence = append(c.onPresence, h)
}

func (c *fakeChannel) Unsubscribe() error {
	c.mu.Lock()
	c.subscribed = false
	uid := c.userID
	c.mu.Unlock()

	c.hub.mu.Lock()
	chans := c.hub.channels[c.topic]
	for i, ch := range chans {
		if ch == c {
			c.hub.channels[c.topic] = append(chans[:i], chans[i+1:]...)
			break
		}
	}
	if uid != "" {
		delete(c.hub.presence[c.topic], uid)
	}
	c.hub.mu.Unlock()

	c.hub.broadcastPresence(c.topic)
	return nil
}

func (c *fakeChannel) dispatch(event string, raw json.RawMessage) {
	c.mu.Lock()
	handlers := append([]func(json.RawMessage){}, c.handlers[event]...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(raw)
	}
}

func (c *fakeChannel) dispatchPresence(snap map[string]presence.Record) {
	c.mu.Lock()
	handlers := append([]func(map[string]presence.Record){}, c.onPresence...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(snap)
	}
}
