// Package realtime is the client side of the relay protocol: a websocket
// connection scoped to one topic, exposing broadcast and presence to the
// room orchestrator.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/edumesh/liveclass/internal/channel"
	"github.com/edumesh/liveclass/internal/presence"
	"github.com/edumesh/liveclass/internal/room"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024
	sendQueueSize  = 64

	dialTimeout = 10 * time.Second
)

// ErrClosed is returned by operations on a channel whose connection is gone.
var ErrClosed = errors.New("realtime: channel closed")

// Channel is a live connection to one relay topic. It satisfies
// room.Channel.
type Channel struct {
	topic string
	conn  *websocket.Conn
	send  chan *channel.Envelope

	mu         sync.RWMutex
	handlers   map[string][]func(json.RawMessage)
	onPresence []func(map[string]presence.Record)
	lastState  map[string]presence.Record

	subscribed  chan struct{}
	markSubOnce sync.Once

	closed    chan struct{}
	closeOnce sync.Once
}

// Factory returns a room.ChannelFactory that dials the relay at wsURL,
// authenticating every connection with token.
func Factory(wsURL, token string) room.ChannelFactory {
	return func(topic string) (room.Channel, error) {
		return Dial(wsURL, token, topic)
	}
}

// Dial connects to the relay and prepares a channel for topic. The topic is
// not joined until Subscribe is called.
func Dial(wsURL, token, topic string) (*Channel, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse relay url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	c := &Channel{
		topic:      topic,
		conn:       conn,
		send:       make(chan *channel.Envelope, sendQueueSize),
		handlers:   make(map[string][]func(json.RawMessage)),
		subscribed: make(chan struct{}),
		closed:     make(chan struct{}),
	}
	go c.readPump()
	go c.writePump()
	return c, nil
}

// Topic returns the topic this channel is bound to.
func (c *Channel) Topic() string { return c.topic }

// Subscribe joins the topic and blocks until the relay acknowledges or ctx
// expires.
func (c *Channel) Subscribe(ctx context.Context) error {
	if err := c.enqueue(&channel.Envelope{Type: channel.TypeSubscribe, Topic: c.topic}); err != nil {
		return err
	}
	select {
	case <-c.subscribed:
		return nil
	case <-c.closed:
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("subscribe %q: %w", c.topic, ctx.Err())
	}
}

// Track publishes our presence record to the topic.
func (c *Channel) Track(rec presence.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode presence: %w", err)
	}
	return c.enqueue(&channel.Envelope{Type: channel.TypeTrack, Payload: payload})
}

// Untrack withdraws our presence record without leaving the topic.
func (c *Channel) Untrack() error {
	return c.enqueue(&channel.Envelope{Type: channel.TypeUntrack})
}

// Send broadcasts an event to every other member of the topic.
func (c *Channel) Send(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %q payload: %w", event, err)
	}
	return c.enqueue(&channel.Envelope{Type: channel.TypeBroadcast, Event: event, Payload: raw})
}

// On registers a handler for broadcast messages carrying event. Handlers run
// on the read goroutine and must not block.
func (c *Channel) On(event string, fn func(json.RawMessage)) {
	c.mu.Lock()
	c.handlers[event] = append(c.handlers[event], fn)
	c.mu.Unlock()
}

// PresenceState returns the last presence snapshot seen on this channel.
func (c *Channel) PresenceState() map[string]presence.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := make(map[string]presence.Record, len(c.lastState))
	for id, rec := range c.lastState {
		snap[id] = rec
	}
	return snap
}

// OnPresence registers a handler for presence snapshots.
func (c *Channel) OnPresence(fn func(map[string]presence.Record)) {
	c.mu.Lock()
	c.onPresence = append(c.onPresence, fn)
	c.mu.Unlock()
}

// Unsubscribe leaves the topic and closes the connection. The relay drops our
// presence entry as part of the disconnect.
func (c *Channel) Unsubscribe() error {
	// Best effort; the disconnect below cleans up server-side regardless.
	_ = c.enqueue(&channel.Envelope{Type: channel.TypeUnsubscribe})
	c.Close()
	return nil
}

// Close tears down the connection. Safe to call more than once.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

func (c *Channel) enqueue(env *channel.Envelope) error {
	select {
	case c.send <- env:
		return nil
	case <-c.closed:
		return ErrClosed
	}
}

func (c *Channel) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env channel.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("relay read", "topic", c.topic, "err", err)
			}
			return
		}
		c.handle(&env)
	}
}

func (c *Channel) handle(env *channel.Envelope) {
	switch env.Type {
	case channel.TypeSubscribed:
		c.markSubOnce.Do(func() { close(c.subscribed) })

	case channel.TypePresenceState:
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(env.Payload, &raw); err != nil {
			slog.Warn("malformed presence state", "topic", c.topic, "err", err)
			return
		}
		snapshot := make(map[string]presence.Record, len(raw))
		for id, entry := range raw {
			var rec presence.Record
			if err := json.Unmarshal(entry, &rec); err != nil {
				slog.Warn("malformed presence record", "user", id, "err", err)
				continue
			}
			snapshot[id] = rec
		}
		c.mu.Lock()
		c.lastState = snapshot
		fns := append(([]func(map[string]presence.Record))(nil), c.onPresence...)
		c.mu.Unlock()
		for _, fn := range fns {
			fn(snapshot)
		}

	case channel.TypeBroadcast:
		c.mu.RLock()
		fns := append(([]func(json.RawMessage))(nil), c.handlers[env.Event]...)
		c.mu.RUnlock()
		for _, fn := range fns {
			fn(env.Payload)
		}

	case channel.TypeError:
		var p channel.ErrorPayload
		_ = json.Unmarshal(env.Payload, &p)
		slog.Warn("relay error", "topic", c.topic, "err", p.Error)

	default:
		slog.Debug("unknown relay message", "type", env.Type)
	}
}

func (c *Channel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case env := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				slog.Debug("relay write", "topic", c.topic, "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closed:
			return
		}
	}
}
