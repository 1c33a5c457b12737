package room

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/edumesh/liveclass/internal/media"
	"github.com/edumesh/liveclass/internal/peer"
	"github.com/edumesh/liveclass/internal/presence"
	"github.com/edumesh/liveclass/internal/signal"
)

// Phase is the orchestrator's top-level state. Within PhaseActive each remote
// peer additionally carries its own negotiation state in the peer manager.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseJoining
	PhaseActive
	PhaseLeaving
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseJoining:
		return "joining"
	case PhaseActive:
		return "active"
	case PhaseLeaving:
		return "leaving"
	default:
		return "unknown"
	}
}

// Channel is the room-scoped realtime primitive the orchestrator consumes:
// best-effort broadcast plus presence tracking. Injected so tests can
// substitute an in-memory fake.
type Channel interface {
	Subscribe(ctx context.Context) error
	Track(rec presence.Record) error
	Send(event string, payload any) error
	On(event string, h func(json.RawMessage))
	OnPresence(h func(map[string]presence.Record))
	Unsubscribe() error
}

// ChannelFactory opens a channel for a topic. One channel per room session.
type ChannelFactory func(topic string) (Channel, error)

// Options configure an orchestrator. Channels and Device are required;
// ICEServers defaults to the public STUN set.
type Options struct {
	Descriptor Descriptor
	Identity   Identity
	Channels   ChannelFactory
	Device     media.Device
	ICEServers []webrtc.ICEServer
}

// Orchestrator runs one participant's side of a live room. All methods are
// safe for concurrent use; inbound channel and connection callbacks interleave
// with UI calls, so every handler revalidates state under the lock.
type Orchestrator struct {
	desc       Descriptor
	self       Identity
	newChannel ChannelFactory
	device     media.Device
	iceServers []webrtc.ICEServer

	mu      sync.Mutex
	phase   Phase
	ch      Channel
	peers   *peer.Manager
	tracker *presence.Tracker
	relay   *signal.Relay

	audio   media.Source
	camera  media.Source
	screen  media.Source
	sharing bool

	// remoteStreams tracks stream IDs seen per peer, for UI state.
	remoteStreams map[string]map[string]struct{}

	events chan Event
}

// New creates an idle orchestrator. Call Join to enter the room.
func New(opts Options) *Orchestrator {
	ice := opts.ICEServers
	if len(ice) == 0 {
		ice = peer.DefaultICEServers()
	}
	return &Orchestrator{
		desc:          opts.Descriptor,
		self:          opts.Identity,
		newChannel:    opts.Channels,
		device:        opts.Device,
		iceServers:    ice,
		phase:         PhaseIdle,
		remoteStreams: make(map[string]map[string]struct{}),
		events:        make(chan Event, 128),
	}
}

// Events returns the UI-facing event stream.
func (o *Orchestrator) Events() <-chan Event { return o.events }

// Descriptor returns the room this orchestrator was built for.
func (o *Orchestrator) Descriptor() Descriptor { return o.desc }

// Phase returns the current top-level state.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// IsHost reports whether the local user may perform host-only actions:
// the room's creator or any admin.
func (o *Orchestrator) IsHost() bool {
	return o.self.Role == roleAdmin || o.self.ID == o.desc.CreatedBy
}

// Join acquires local media, subscribes to the room channel and announces
// presence. On any failure everything acquired so far is released and the
// orchestrator returns to idle; the caller may simply retry.
func (o *Orchestrator) Join(ctx context.Context) error {
	o.mu.Lock()
	if o.phase != PhaseIdle {
		o.mu.Unlock()
		return ErrAlreadyJoined
	}
	o.phase = PhaseJoining
	o.mu.Unlock()

	audio, err := o.device.Audio()
	if err != nil {
		o.resetToIdle()
		return fmt.Errorf("acquire microphone: %w", err)
	}
	camera, err := o.device.Camera()
	if err != nil {
		_ = audio.Close()
		o.resetToIdle()
		return fmt.Errorf("acquire camera: %w", err)
	}

	ch, err := o.newChannel(o.desc.Topic())
	if err != nil {
		_ = audio.Close()
		_ = camera.Close()
		o.resetToIdle()
		return fmt.Errorf("open room channel: %w", err)
	}

	mgr := peer.NewManager(o.iceServers, peer.Callbacks{
		OnCandidate:   o.onLocalCandidate,
		OnTrack:       o.onRemoteTrack,
		OnChat:        o.onChat,
		OnStateChange: o.onPeerState,
	})
	relay := signal.NewRelay(o.self.ID, ch)
	tracker := presence.NewTracker(ch, presence.Record{
		UserID:      o.self.ID,
		DisplayName: o.self.Name,
		Role:        o.self.Role,
		JoinedAt:    time.Now(),
	})

	o.mu.Lock()
	o.ch = ch
	o.peers = mgr
	o.relay = relay
	o.tracker = tracker
	o.audio = audio
	o.camera = camera
	o.remoteStreams = make(map[string]map[string]struct{})
	o.mu.Unlock()

	ch.On(signal.Event, func(raw json.RawMessage) {
		relay.Route(raw, o.handleSignal)
	})
	tracker.Start(o.handlePresence)

	if err := ch.Subscribe(ctx); err != nil {
		o.teardown()
		return fmt.Errorf("subscribe to room: %w", err)
	}

	o.mu.Lock()
	o.phase = PhaseActive
	o.mu.Unlock()

	if err := tracker.Announce(); err != nil {
		o.teardown()
		return fmt.Errorf("announce presence: %w", err)
	}
	return nil
}

// Leave tears the session down: every connection closed, the channel
// unsubscribed, every local track stopped. Idempotent; safe to call from any
// phase.
func (o *Orchestrator) Leave() {
	o.mu.Lock()
	if o.phase == PhaseIdle {
		o.mu.Unlock()
		return
	}
	o.phase = PhaseLeaving
	o.mu.Unlock()

	o.teardown()
}

// teardown releases everything and returns to idle. Exhaustive by design:
// partial teardown leaks the camera.
func (o *Orchestrator) teardown() {
	o.mu.Lock()
	ch := o.ch
	mgr := o.peers
	audio, camera, screen := o.audio, o.camera, o.screen
	o.ch = nil
	o.peers = nil
	o.relay = nil
	o.tracker = nil
	o.audio = nil
	o.camera = nil
	o.screen = nil
	o.sharing = false
	o.remoteStreams = make(map[string]map[string]struct{})
	o.phase = PhaseIdle
	o.mu.Unlock()

	if mgr != nil {
		mgr.CloseAll()
	}
	if ch != nil {
		if err := ch.Unsubscribe(); err != nil {
			slog.Debug("unsubscribe", "err", err)
		}
	}
	for _, src := range []media.Source{audio, camera, screen} {
		if src != nil {
			_ = src.Close()
		}
	}
}

func (o *Orchestrator) resetToIdle() {
	o.mu.Lock()
	o.phase = PhaseIdle
	o.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Presence-driven negotiation
// ---------------------------------------------------------------------------

// handlePresence reacts to every full presence snapshot: offers to newcomers
// this side is responsible for, and drops peers that disappeared. The
// participant with the lexicographically smaller user ID always initiates;
// that tie-break is the only glare-avoidance invariant.
func (o *Orchestrator) handlePresence(snap map[string]presence.Record) {
	o.emit(ParticipantsEvent{Records: snap})

	o.mu.Lock()
	if o.phase != PhaseActive || o.peers == nil {
		o.mu.Unlock()
		return
	}
	mgr := o.peers

	var toOffer, departed []string
	for uid := range snap {
		if uid == o.self.ID {
			continue
		}
		if _, exists := mgr.Get(uid); !exists && o.self.ID < uid {
			toOffer = append(toOffer, uid)
		}
	}
	for _, uid := range mgr.IDs() {
		if _, still := snap[uid]; !still {
			departed = append(departed, uid)
		}
	}
	o.mu.Unlock()

	for _, uid := range departed {
		mgr.Remove(uid)
		o.mu.Lock()
		delete(o.remoteStreams, uid)
		o.mu.Unlock()
	}
	for _, uid := range toOffer {
		if err := o.initiateOffer(uid); err != nil {
			o.notice("could not reach %s: %v", uid, err)
		}
	}
}

func (o *Orchestrator) initiateOffer(uid string) error {
	o.mu.Lock()
	mgr, relay := o.peers, o.relay
	o.mu.Unlock()
	if mgr == nil || relay == nil {
		return ErrNotActive
	}

	p, _, err := mgr.GetOrCreate(uid)
	if err != nil {
		return err
	}
	if p.State() != peer.StateNone {
		return nil // negotiation already under way
	}
	if err := o.attachLocalTracks(p); err != nil {
		return err
	}

	offer, err := p.StartOffer()
	if err != nil {
		return err
	}
	return relay.Send(signal.Offer(o.self.ID, uid, offer))
}

// attachLocalTracks adds the local audio track and whichever video track is
// currently outgoing (camera, or screen while sharing).
func (o *Orchestrator) attachLocalTracks(p *peer.Peer) error {
	o.mu.Lock()
	audio := o.audio
	video := o.camera
	if o.sharing && o.screen != nil {
		video = o.screen
	}
	o.mu.Unlock()

	var audioTrack, videoTrack webrtc.TrackLocal
	if audio != nil {
		audioTrack = audio.Track()
	}
	if video != nil {
		videoTrack = video.Track()
	}
	return p.AttachLocal(audioTrack, videoTrack)
}

// ---------------------------------------------------------------------------
// Inbound signaling
// ---------------------------------------------------------------------------

// handleSignal processes one relayed message already filtered to this user.
func (o *Orchestrator) handleSignal(msg signal.Message) {
	o.mu.Lock()
	active := o.phase == PhaseActive
	mgr, relay := o.peers, o.relay
	o.mu.Unlock()

	if !active || mgr == nil {
		return
	}

	switch msg.Type {
	case signal.TypeOffer:
		if msg.SDP == nil {
			return
		}
		p, _, err := mgr.GetOrCreate(msg.From)
		if err != nil {
			o.notice("incoming call from %s failed: %v", msg.From, err)
			return
		}
		if err := o.attachLocalTracks(p); err != nil {
			o.notice("attach local tracks: %v", err)
			return
		}
		answer, err := p.HandleRemoteOffer(*msg.SDP)
		if err != nil {
			o.notice("answer %s: %v", msg.From, err)
			return
		}
		if err := relay.Send(signal.Answer(o.self.ID, msg.From, answer)); err != nil {
			o.notice("send answer: %v", err)
		}

	case signal.TypeAnswer:
		if msg.SDP == nil {
			return
		}
		if p, ok := mgr.Get(msg.From); ok {
			if err := p.HandleRemoteAnswer(*msg.SDP); err != nil {
				o.notice("apply answer from %s: %v", msg.From, err)
			}
		}

	case signal.TypeICE:
		if msg.Candidate == nil {
			return
		}
		if p, ok := mgr.Get(msg.From); ok {
			// Failures here are swallowed; the connection can still
			// succeed via other candidates.
			if err := p.AddCandidate(*msg.Candidate); err != nil {
				slog.Debug("add candidate", "peer", msg.From, "err", err)
			}
		}

	case signal.TypeKick:
		o.teardown()
		o.emit(KickedEvent{})

	case signal.TypeMuteRequest:
		o.forceMute()
	}
}

// forceMute disables the local audio track and republishes presence. The user
// is not prevented from unmuting again.
func (o *Orchestrator) forceMute() {
	o.mu.Lock()
	audio, tracker := o.audio, o.tracker
	o.mu.Unlock()

	if audio != nil {
		audio.SetEnabled(false)
	}
	if tracker != nil {
		if err := tracker.SetAudioMuted(true); err != nil {
			slog.Debug("track mute state", "err", err)
		}
	}
	o.notice("the host muted your microphone")
}

// ---------------------------------------------------------------------------
// Connection callbacks
// ---------------------------------------------------------------------------

func (o *Orchestrator) onLocalCandidate(peerID string, cand webrtc.ICECandidateInit) {
	o.mu.Lock()
	relay := o.relay
	o.mu.Unlock()
	if relay == nil {
		return
	}
	// Best-effort trickle; a lost candidate is not fatal.
	if err := relay.Send(signal.ICE(o.self.ID, peerID, cand)); err != nil {
		slog.Debug("send candidate", "peer", peerID, "err", err)
	}
}

func (o *Orchestrator) onRemoteTrack(peerID string, track *webrtc.TrackRemote) {
	o.mu.Lock()
	streams := o.remoteStreams[peerID]
	if streams == nil {
		streams = make(map[string]struct{})
		o.remoteStreams[peerID] = streams
	}
	streams[track.StreamID()] = struct{}{}
	o.mu.Unlock()

	o.emit(RemoteTrackEvent{PeerID: peerID, Kind: track.Kind().String()})
}

func (o *Orchestrator) onChat(msg peer.ChatMessage) {
	o.emit(ChatEvent{Message: msg})
}

func (o *Orchestrator) onPeerState(peerID string, state peer.State) {
	o.emit(PeerStateEvent{PeerID: peerID, State: state})
}

// ---------------------------------------------------------------------------
// UI-facing operations
// ---------------------------------------------------------------------------

// ToggleMic flips the microphone gate and republishes presence. Returns the
// new muted state.
func (o *Orchestrator) ToggleMic() (bool, error) {
	o.mu.Lock()
	if o.phase != PhaseActive || o.audio == nil {
		o.mu.Unlock()
		return false, ErrNotActive
	}
	audio, tracker := o.audio, o.tracker
	o.mu.Unlock()

	muted := audio.Enabled() // about to flip
	audio.SetEnabled(!audio.Enabled())
	if err := tracker.SetAudioMuted(muted); err != nil {
		return muted, fmt.Errorf("publish mute state: %w", err)
	}
	return muted, nil
}

// ToggleCamera flips the camera gate and republishes presence. Returns the
// new video-off state.
func (o *Orchestrator) ToggleCamera() (bool, error) {
	o.mu.Lock()
	if o.phase != PhaseActive || o.camera == nil {
		o.mu.Unlock()
		return false, ErrNotActive
	}
	camera, tracker := o.camera, o.tracker
	o.mu.Unlock()

	off := camera.Enabled()
	camera.SetEnabled(!camera.Enabled())
	if err := tracker.SetVideoOff(off); err != nil {
		return off, fmt.Errorf("publish camera state: %w", err)
	}
	return off, nil
}

// StartScreenShare swaps the outgoing video to a display capture on every
// existing connection without recreating any of them. Host only.
func (o *Orchestrator) StartScreenShare() error {
	if !o.IsHost() {
		return ErrNotHost
	}
	o.mu.Lock()
	if o.phase != PhaseActive {
		o.mu.Unlock()
		return ErrNotActive
	}
	if o.sharing {
		o.mu.Unlock()
		return ErrAlreadySharing
	}
	mgr := o.peers
	o.mu.Unlock()

	screen, err := o.device.Screen()
	if err != nil {
		return fmt.Errorf("acquire screen capture: %w", err)
	}
	if err := mgr.ReplaceVideoTrack(screen.Track()); err != nil {
		_ = screen.Close()
		return fmt.Errorf("swap video senders: %w", err)
	}

	o.mu.Lock()
	o.screen = screen
	o.sharing = true
	o.mu.Unlock()
	return nil
}

// StopScreenShare swaps every sender back to the camera and releases the
// display capture. Host only.
func (o *Orchestrator) StopScreenShare() error {
	if !o.IsHost() {
		return ErrNotHost
	}
	o.mu.Lock()
	if o.phase != PhaseActive {
		o.mu.Unlock()
		return ErrNotActive
	}
	if !o.sharing {
		o.mu.Unlock()
		return ErrNotSharing
	}
	mgr, camera, screen := o.peers, o.camera, o.screen
	o.screen = nil
	o.sharing = false
	o.mu.Unlock()

	var err error
	if camera != nil {
		err = mgr.ReplaceVideoTrack(camera.Track())
	}
	if screen != nil {
		_ = screen.Close()
	}
	if err != nil {
		return fmt.Errorf("restore camera senders: %w", err)
	}
	return nil
}

// Kick removes a participant from the room. Host only; rejected locally for
// everyone else.
func (o *Orchestrator) Kick(userID string) error {
	if !o.IsHost() {
		return ErrNotHost
	}
	o.mu.Lock()
	relay := o.relay
	active := o.phase == PhaseActive
	o.mu.Unlock()
	if !active || relay == nil {
		return ErrNotActive
	}
	return relay.Send(signal.Kick(o.self.ID, userID))
}

// RequestMute asks a participant to mute. Host only.
func (o *Orchestrator) RequestMute(userID string) error {
	if !o.IsHost() {
		return ErrNotHost
	}
	o.mu.Lock()
	relay := o.relay
	active := o.phase == PhaseActive
	o.mu.Unlock()
	if !active || relay == nil {
		return ErrNotActive
	}
	return relay.Send(signal.MuteRequest(o.self.ID, userID))
}

// SendChat fans a chat line out to every connected peer and echoes it locally.
func (o *Orchestrator) SendChat(body string) error {
	o.mu.Lock()
	mgr := o.peers
	active := o.phase == PhaseActive
	o.mu.Unlock()
	if !active || mgr == nil {
		return ErrNotActive
	}

	msg := peer.ChatMessage{
		From:   o.self.ID,
		Name:   o.self.Name,
		Body:   body,
		SentAt: time.Now(),
	}
	if err := mgr.FanOutChat(msg); err != nil {
		return err
	}
	o.emit(ChatEvent{Message: msg})
	return nil
}

// ---------------------------------------------------------------------------
// Introspection for UI and tests
// ---------------------------------------------------------------------------

// Participants returns the last presence snapshot.
func (o *Orchestrator) Participants() map[string]presence.Record {
	o.mu.Lock()
	tracker := o.tracker
	o.mu.Unlock()
	if tracker == nil {
		return nil
	}
	return tracker.Snapshot()
}

// PeerStates returns every peer's negotiation state.
func (o *Orchestrator) PeerStates() map[string]peer.State {
	o.mu.Lock()
	mgr := o.peers
	o.mu.Unlock()
	if mgr == nil {
		return nil
	}
	return mgr.States()
}

// PeerCount returns the number of open peer connections.
func (o *Orchestrator) PeerCount() int {
	o.mu.Lock()
	mgr := o.peers
	o.mu.Unlock()
	if mgr == nil {
		return 0
	}
	return mgr.Count()
}

// RemoteStreamCount returns the number of distinct remote streams observed
// for the given peer.
func (o *Orchestrator) RemoteStreamCount(peerID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.remoteStreams[peerID])
}

// AudioMuted reports the local microphone gate.
func (o *Orchestrator) AudioMuted() bool {
	o.mu.Lock()
	audio := o.audio
	o.mu.Unlock()
	return audio == nil || !audio.Enabled()
}

// Sharing reports whether a screen share is running.
func (o *Orchestrator) Sharing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sharing
}

// LocalTrackCount reports how many local captures are live, for teardown
// verification.
func (o *Orchestrator) LocalTrackCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, src := range []media.Source{o.audio, o.camera, o.screen} {
		if src != nil {
			n++
		}
	}
	return n
}

func (o *Orchestrator) emit(ev Event) {
	select {
	case o.events <- ev:
	default:
		slog.Debug("dropping event, consumer too slow")
	}
}

func (o *Orchestrator) notice(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	slog.Debug("room notice", "text", text)
	o.emit(NoticeEvent{Text: text})
}
