package channel

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/edumesh/liveclass/internal/auth"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. 64 KB is enough for SDP
	// payloads with margin.
	maxMessageSize = 64 * 1024

	// Outbound queue depth per connection.
	sendQueueSize = 256
)

// Client wraps a single authenticated websocket connection.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn

	// Identity is the verified user behind this connection.
	Identity auth.Identity

	// Topic is the topic this connection is subscribed to, if any. Owned by
	// the hub goroutine.
	Topic string

	// Send is the buffered outbound queue drained by WritePump.
	Send chan *Envelope
}

// NewClient builds a client for an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, id auth.Identity) *Client {
	return &Client{
		Hub:      hub,
		Conn:     conn,
		Identity: id,
		Send:     make(chan *Envelope, sendQueueSize),
	}
}

// queue enqueues env without blocking the hub; a client that cannot drain its
// queue in time loses messages rather than stalling the room.
func (c *Client) queue(env *Envelope) {
	select {
	case c.Send <- env:
	default:
		slog.Warn("dropping message for slow client", "user", c.Identity.ID)
	}
}

// ReadPump pumps messages from the websocket connection to the hub. It runs
// in a per-connection goroutine; all reads happen here.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env Envelope
		if err := c.Conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("read", "user", c.Identity.ID, "err", err)
			}
			break
		}
		env.client = c
		c.Hub.Inbound <- &env
	}
}

// WritePump pumps messages from the hub to the websocket connection and sends
// periodic pings. All writes happen here.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(env); err != nil {
				slog.Debug("write", "user", c.Identity.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
