package peer

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"
)

// Callbacks are the manager's outbound edges. All of them may be invoked from
// pion's own goroutines; handlers must do their own serialization.
type Callbacks struct {
	// OnCandidate fires for every locally gathered trickle candidate.
	OnCandidate func(peerID string, cand webrtc.ICECandidateInit)

	// OnTrack fires when a remote media track arrives.
	OnTrack func(peerID string, track *webrtc.TrackRemote)

	// OnChat fires for every decoded in-room chat message.
	OnChat func(msg ChatMessage)

	// OnStateChange fires on negotiation state transitions.
	OnStateChange func(peerID string, state State)
}

// Manager owns one Peer per remote participant currently known locally.
type Manager struct {
	iceServers []webrtc.ICEServer
	cb         Callbacks

	mu     sync.Mutex
	peers  map[string]*Peer
	closed bool
}

// NewManager creates a manager. iceServers must contain at least one STUN
// server; DefaultICEServers is a sane starting point.
func NewManager(iceServers []webrtc.ICEServer, cb Callbacks) *Manager {
	return &Manager{
		iceServers: iceServers,
		cb:         cb,
		peers:      make(map[string]*Peer),
	}
}

// DefaultICEServers returns the public STUN servers used when no ICE
// configuration is supplied.
func DefaultICEServers() []webrtc.ICEServer {
	return []webrtc.ICEServer{
		{URLs: []string{"stun:stun.l.google.com:19302"}},
	}
}

// GetOrCreate returns the peer for id, constructing it on first call. The
// second return reports whether this call created it. Idempotent against
// concurrent invocation for the same peer: exactly one connection exists per
// remote participant.
func (m *Manager) GetOrCreate(id string) (*Peer, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, false, fmt.Errorf("peer manager closed")
	}
	if p, ok := m.peers[id]; ok {
		return p, false, nil
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: m.iceServers})
	if err != nil {
		return nil, false, fmt.Errorf("create peer connection: %w", err)
	}

	p := &Peer{id: id, pc: pc, state: StateNone}
	m.wire(p)
	m.peers[id] = p
	return p, true, nil
}

// wire installs the connection callbacks that fan back into the manager's
// owner. Runs with m.mu held, but the callbacks themselves fire later.
func (m *Manager) wire(p *Peer) {
	pc := p.pc

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return // end of gathering
		}
		if m.cb.OnCandidate != nil {
			m.cb.OnCandidate(p.id, c.ToJSON())
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if m.cb.OnTrack != nil {
			m.cb.OnTrack(p.id, track)
		}
	})

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != chatChannelLabel {
			return
		}
		p.adoptChatChannel(dc)
		m.wireChat(p, dc)
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		slog.Debug("peer connection state", "peer", p.id, "state", state)
		switch state {
		case webrtc.PeerConnectionStateConnected:
			p.markConnected()
			m.notifyState(p)
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			p.mu.Lock()
			p.state = StateClosed
			p.mu.Unlock()
			m.notifyState(p)
		}
	})
}

// wireChat attaches the message handler for a chat channel, whichever side
// created it.
func (m *Manager) wireChat(p *Peer, dc *webrtc.DataChannel) {
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		decoded, err := decodeChat(msg.Data)
		if err != nil {
			slog.Debug("dropping malformed chat message", "peer", p.id, "err", err)
			return
		}
		if m.cb.OnChat != nil {
			m.cb.OnChat(decoded)
		}
	})
}

func (m *Manager) notifyState(p *Peer) {
	if m.cb.OnStateChange != nil {
		m.cb.OnStateChange(p.id, p.State())
	}
}

// Get returns the peer for id if it exists.
func (m *Manager) Get(id string) (*Peer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.peers[id]
	return p, ok
}

// Remove closes and forgets the peer for id. Unknown IDs are no-ops.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	p, ok := m.peers[id]
	delete(m.peers, id)
	m.mu.Unlock()

	if ok {
		p.close()
	}
}

// Count reports the number of live peers.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.peers)
}

// IDs returns the IDs of all live peers.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.peers))
	for id := range m.peers {
		ids = append(ids, id)
	}
	return ids
}

// States returns a snapshot of every peer's negotiation state.
func (m *Manager) States() map[string]State {
	m.mu.Lock()
	peers := make([]*Peer, 0, len(m.peers))
	for _, p := range m.peers {
		peers = append(peers, p)
	}
	m.mu.Unlock()

	states := make(map[string]State, len(peers))
	for _, p := range peers {
		states[p.id] = p.State()
	}
	return states
}

// ReplaceVideoTrack swaps the outgoing video track on every peer's sender.
// All current senders are updated together so no peer keeps receiving stale
// video. Peers without a video sender yet are skipped.
func (m *Manager) ReplaceVideoTrack(track webrtc.TrackLocal) error {
	m.mu.Lock()
	peers := make([]*Peer, 0, len(m.peers))
	for _, p := range m.peers {
		peers = append(peers, p)
	}
	m.mu.Unlock()

	var firstErr error
	for _, p := range peers {
		if err := p.ReplaceVideo(track); err != nil {
			slog.Debug("replace video", "peer", p.id, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// FanOutChat encodes msg once and sends it to every peer with an open chat
// channel. Best-effort: peers without an open channel are skipped.
func (m *Manager) FanOutChat(msg ChatMessage) error {
	data, err := encodeChat(msg)
	if err != nil {
		return err
	}

	m.mu.Lock()
	peers := make([]*Peer, 0, len(m.peers))
	for _, p := range m.peers {
		peers = append(peers, p)
	}
	m.mu.Unlock()

	for _, p := range peers {
		if err := p.SendChat(data); err != nil {
			slog.Debug("chat fan-out", "peer", p.id, "err", err)
		}
	}
	return nil
}

// CloseAll tears down every connection and retires the manager. Idempotent
// and exhaustive: after it returns, Count is zero, every former peer reports
// StateClosed, and GetOrCreate refuses to resurrect peers. A rejoin builds a
// fresh manager.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	m.closed = true
	peers := make([]*Peer, 0, len(m.peers))
	for _, p := range m.peers {
		peers = append(peers, p)
	}
	m.peers = make(map[string]*Peer)
	m.mu.Unlock()

	for _, p := range peers {
		p.close()
	}
}
