package channel

import (
	"context"
	"log/slog"
)

// Hub is the central brain of the relay. A single goroutine running Run owns
// all topic and presence state; connections talk to it exclusively through
// the Register, Unregister and Inbound channels.
type Hub struct {
	// Topics maps topic names to their state.
	Topics map[string]*Topic

	// Register announces new connections.
	Register chan *Client

	// Unregister announces closed connections.
	Unregister chan *Client

	// Inbound carries every message read from any connection.
	Inbound chan *Envelope
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		Topics:     make(map[string]*Topic),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *Envelope, 64),
	}
}

// Run processes hub traffic until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.Register:
			// Not in a topic yet; the client must subscribe first.
			slog.Debug("client registered", "user", client.Identity.ID)

		case client := <-h.Unregister:
			slog.Debug("client unregistered", "user", client.Identity.ID)
			h.leaveTopic(client)
			close(client.Send)

		case env := <-h.Inbound:
			h.dispatch(env)
		}
	}
}

func (h *Hub) dispatch(env *Envelope) {
	client := env.client

	switch env.Type {
	case TypeSubscribe:
		if env.Topic == "" {
			client.queue(errorEnvelope("subscribe requires a topic"))
			return
		}
		// One topic per connection; re-subscribing moves the client.
		h.leaveTopic(client)

		topic, ok := h.Topics[env.Topic]
		if !ok {
			topic = newTopic(env.Topic)
			h.Topics[env.Topic] = topic
			slog.Info("topic created", "topic", env.Topic)
		}
		topic.Clients[client] = struct{}{}
		client.Topic = env.Topic

		client.queue(&Envelope{Type: TypeSubscribed, Topic: env.Topic})
		// Initial sync: the full current presence state.
		client.queue(topic.presenceEnvelope())

	case TypeUnsubscribe:
		h.leaveTopic(client)

	case TypeTrack:
		topic, ok := h.Topics[client.Topic]
		if !ok {
			client.queue(errorEnvelope("track requires a subscription"))
			return
		}
		// Keyed by the verified identity, not by anything in the payload.
		topic.Presence[client.Identity.ID] = env.Payload
		topic.broadcast(topic.presenceEnvelope(), nil)

	case TypeUntrack:
		topic, ok := h.Topics[client.Topic]
		if !ok {
			return
		}
		delete(topic.Presence, client.Identity.ID)
		topic.broadcast(topic.presenceEnvelope(), nil)

	case TypeBroadcast:
		topic, ok := h.Topics[client.Topic]
		if !ok {
			client.queue(errorEnvelope("broadcast requires a subscription"))
			return
		}
		topic.broadcast(&Envelope{
			Type:    TypeBroadcast,
			Topic:   topic.ID,
			Event:   env.Event,
			Payload: env.Payload,
		}, client)

	default:
		slog.Debug("unknown message type", "type", env.Type, "user", client.Identity.ID)
	}
}

// leaveTopic removes the client from its topic, drops its presence entry and
// notifies the remaining members. Empty topics are deleted.
func (h *Hub) leaveTopic(client *Client) {
	topic, ok := h.Topics[client.Topic]
	if !ok {
		client.Topic = ""
		return
	}

	delete(topic.Clients, client)
	delete(topic.Presence, client.Identity.ID)
	client.Topic = ""

	if len(topic.Clients) == 0 {
		delete(h.Topics, topic.ID)
		slog.Info("topic deleted", "topic", topic.ID)
		return
	}
	topic.broadcast(topic.presenceEnvelope(), nil)
}
