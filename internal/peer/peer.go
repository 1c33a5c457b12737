package peer

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"
)

// Peer is the local view of one logical link to a remote participant. The
// remote side holds its own Peer for us; together they form one connection.
type Peer struct {
	id string
	pc *webrtc.PeerConnection

	mu        sync.Mutex
	state     State
	remoteSet bool
	// pending buffers candidates that arrive before the remote description;
	// they are flushed as soon as it is set instead of being dropped.
	pending []webrtc.ICECandidateInit

	audioSender *webrtc.RTPSender
	videoSender *webrtc.RTPSender
	chat        *webrtc.DataChannel
}

// ID returns the remote participant's user ID.
func (p *Peer) ID() string { return p.id }

// State returns the current negotiation state.
func (p *Peer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Connection exposes the underlying peer connection for state inspection.
func (p *Peer) Connection() *webrtc.PeerConnection { return p.pc }

// AttachLocal adds the local audio and video tracks once. Repeat calls are
// no-ops, which keeps concurrent get-or-create paths safe.
func (p *Peer) AttachLocal(audio, video webrtc.TrackLocal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if audio != nil && p.audioSender == nil {
		sender, err := p.pc.AddTrack(audio)
		if err != nil {
			return fmt.Errorf("add audio track: %w", err)
		}
		p.audioSender = sender
	}
	if video != nil && p.videoSender == nil {
		sender, err := p.pc.AddTrack(video)
		if err != nil {
			return fmt.Errorf("add video track: %w", err)
		}
		p.videoSender = sender
	}
	return nil
}

// StartOffer creates the chat data channel, generates an offer and applies it
// locally. The caller sends the returned description to the remote peer.
func (p *Peer) StartOffer() (webrtc.SessionDescription, error) {
	p.mu.Lock()
	if p.state != StateNone {
		state := p.state
		p.mu.Unlock()
		return webrtc.SessionDescription{}, fmt.Errorf("peer %s: offer in state %s", p.id, state)
	}
	p.state = StateOffering
	p.mu.Unlock()

	if err := p.ensureChatChannel(); err != nil {
		return webrtc.SessionDescription{}, err
	}

	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local offer: %w", err)
	}
	return offer, nil
}

// HandleRemoteOffer applies the remote offer and returns our answer, already
// set as the local description.
func (p *Peer) HandleRemoteOffer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	p.mu.Lock()
	p.state = StateAnswering
	p.mu.Unlock()

	if err := p.setRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create answer: %w", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local answer: %w", err)
	}
	return answer, nil
}

// HandleRemoteAnswer applies the answer to our earlier offer.
func (p *Peer) HandleRemoteAnswer(answer webrtc.SessionDescription) error {
	return p.setRemoteDescription(answer)
}

func (p *Peer) setRemoteDescription(desc webrtc.SessionDescription) error {
	if err := p.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote %s: %w", desc.Type, err)
	}

	p.mu.Lock()
	p.remoteSet = true
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, cand := range pending {
		if err := p.pc.AddICECandidate(cand); err != nil {
			slog.Debug("dropping buffered candidate", "peer", p.id, "err", err)
		}
	}
	return nil
}

// AddCandidate applies a trickle candidate, buffering it if the remote
// description has not been set yet.
func (p *Peer) AddCandidate(cand webrtc.ICECandidateInit) error {
	p.mu.Lock()
	if !p.remoteSet {
		p.pending = append(p.pending, cand)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := p.pc.AddICECandidate(cand); err != nil {
		return fmt.Errorf("add candidate: %w", err)
	}
	return nil
}

// PendingCandidates reports how many candidates are buffered, for tests.
func (p *Peer) PendingCandidates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// ReplaceVideo swaps the outgoing video track on the existing sender.
// No renegotiation round-trip takes place, so the swap is near-instant for
// connected peers.
func (p *Peer) ReplaceVideo(track webrtc.TrackLocal) error {
	p.mu.Lock()
	sender := p.videoSender
	p.mu.Unlock()

	if sender == nil {
		return fmt.Errorf("peer %s: no video sender", p.id)
	}
	if err := sender.ReplaceTrack(track); err != nil {
		return fmt.Errorf("replace video track: %w", err)
	}
	return nil
}

// SendChat writes an encoded chat message if the chat channel is open.
func (p *Peer) SendChat(data []byte) error {
	p.mu.Lock()
	chat := p.chat
	p.mu.Unlock()

	if chat == nil || chat.ReadyState() != webrtc.DataChannelStateOpen {
		return fmt.Errorf("peer %s: chat channel not open", p.id)
	}
	return chat.Send(data)
}

func (p *Peer) ensureChatChannel() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.chat != nil {
		return nil
	}
	dc, err := p.pc.CreateDataChannel(chatChannelLabel, nil)
	if err != nil {
		return fmt.Errorf("create chat channel: %w", err)
	}
	p.chat = dc
	return nil
}

// adoptChatChannel installs a remotely created chat channel (answerer side).
func (p *Peer) adoptChatChannel(dc *webrtc.DataChannel) {
	p.mu.Lock()
	p.chat = dc
	p.mu.Unlock()
}

// close tears the connection down. Idempotent; later callbacks see StateClosed.
func (p *Peer) close() {
	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return
	}
	p.state = StateClosed
	p.mu.Unlock()

	if err := p.pc.Close(); err != nil {
		slog.Debug("closing peer connection", "peer", p.id, "err", err)
	}
}

func (p *Peer) markConnected() {
	p.mu.Lock()
	if p.state != StateClosed {
		p.state = StateConnected
	}
	p.mu.Unlock()
}
