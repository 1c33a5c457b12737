// Package media abstracts local media capture behind an injectable device so
// the room orchestrator never touches capture hardware directly and tests can
// substitute fakes. Exactly one camera/microphone capture exists per client,
// swappable to a display capture while screen sharing.
package media

import (
	"github.com/pion/webrtc/v4"
)

// Source is a single local media track with a mute gate. Disabling a source
// stops frames without releasing the underlying capture, mirroring a muted
// browser track.
type Source interface {
	// Track returns the local track to hand to peer connection senders.
	Track() webrtc.TrackLocal

	// Kind reports the track kind, audio or video.
	Kind() webrtc.RTPCodecType

	// SetEnabled gates frame production. Safe to call repeatedly.
	SetEnabled(enabled bool)

	// Enabled reports the current gate state.
	Enabled() bool

	// Close releases the capture. Idempotent.
	Close() error
}

// Device produces the three captures a participant can publish. Audio and
// Camera are acquired lazily on first need; Screen is acquired per share.
// Implementations return permission-style errors when capture is denied.
type Device interface {
	Audio() (Source, error)
	Camera() (Source, error)
	Screen() (Source, error)
}
