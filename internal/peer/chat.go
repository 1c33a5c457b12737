package peer

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// chatChannelLabel names the data channel each connection carries for
// in-room chat. The offerer creates it; the answerer adopts it on arrival.
const chatChannelLabel = "room-chat"

// ChatMessage is one in-room chat line, fanned out to every connected peer
// over its chat data channel.
type ChatMessage struct {
	From   string    `msgpack:"from"`
	Name   string    `msgpack:"name"`
	Body   string    `msgpack:"body"`
	SentAt time.Time `msgpack:"sent_at"`
}

func encodeChat(msg ChatMessage) ([]byte, error) {
	data, err := msgpack.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode chat message: %w", err)
	}
	return data, nil
}

func decodeChat(data []byte) (ChatMessage, error) {
	var msg ChatMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return ChatMessage{}, fmt.Errorf("decode chat message: %w", err)
	}
	return msg, nil
}
