package room

import (
	"github.com/edumesh/liveclass/internal/peer"
	"github.com/edumesh/liveclass/internal/presence"
)

// Event is delivered on the orchestrator's event stream for the UI to render.
// Delivery is best-effort: a slow consumer drops events rather than blocking
// the session.
type Event any

// ParticipantsEvent carries the full presence snapshot after every change.
type ParticipantsEvent struct {
	Records map[string]presence.Record
}

// RemoteTrackEvent fires when a remote media track arrives.
type RemoteTrackEvent struct {
	PeerID string
	Kind   string
}

// PeerStateEvent fires on a peer's negotiation state transition.
type PeerStateEvent struct {
	PeerID string
	State  peer.State
}

// ChatEvent carries one in-room chat line, local echoes included.
type ChatEvent struct {
	Message peer.ChatMessage
}

// NoticeEvent is a transient user-facing notice for a non-fatal failure.
type NoticeEvent struct {
	Text string
}

// KickedEvent fires after the local session was torn down because the host
// removed this participant. No reconnection is attempted.
type KickedEvent struct{}
