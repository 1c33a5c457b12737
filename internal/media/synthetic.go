package media

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

const (
	audioFrameInterval = 20 * time.Millisecond
	videoFrameInterval = 33 * time.Millisecond

	// One stream ID per device so audio and video group into a single
	// logical stream on the remote side.
	streamPrefix = "liveclass"
)

// SyntheticDevice generates silent audio and blank video samples on a timer.
// It stands in for real capture hardware in the CLI and in tests; the sample
// payloads are placeholders, only track lifecycle and timing are meaningful.
type SyntheticDevice struct {
	streamID string

	mu     sync.Mutex
	audio  *syntheticSource
	camera *syntheticSource
}

// NewSyntheticDevice creates a device with a fresh stream ID.
func NewSyntheticDevice() *SyntheticDevice {
	return &SyntheticDevice{
		streamID: fmt.Sprintf("%s-%s", streamPrefix, uuid.NewString()[:8]),
	}
}

// Audio returns the shared microphone source, starting it on first call.
func (d *SyntheticDevice) Audio() (Source, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.audio != nil && !d.audio.closed.Load() {
		return d.audio, nil
	}
	src, err := newSyntheticSource(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", d.streamID, audioFrameInterval,
	)
	if err != nil {
		return nil, err
	}
	d.audio = src
	return src, nil
}

// Camera returns the shared camera source, starting it on first call.
func (d *SyntheticDevice) Camera() (Source, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.camera != nil && !d.camera.closed.Load() {
		return d.camera, nil
	}
	src, err := newSyntheticSource(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		"video", d.streamID, videoFrameInterval,
	)
	if err != nil {
		return nil, err
	}
	d.camera = src
	return src, nil
}

// Screen returns a fresh display capture source. A new source is created for
// each share so stopping the share releases it independently of the camera.
func (d *SyntheticDevice) Screen() (Source, error) {
	return newSyntheticSource(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		"screen", d.streamID, videoFrameInterval,
	)
}

type syntheticSource struct {
	track    *webrtc.TrackLocalStaticSample
	kind     webrtc.RTPCodecType
	interval time.Duration

	enabled atomic.Bool
	closed  atomic.Bool
	done    chan struct{}
}

func newSyntheticSource(codec webrtc.RTPCodecCapability, id, streamID string, interval time.Duration) (*syntheticSource, error) {
	track, err := webrtc.NewTrackLocalStaticSample(codec, id, streamID)
	if err != nil {
		return nil, fmt.Errorf("create %s track: %w", id, err)
	}

	kind := webrtc.RTPCodecTypeVideo
	if codec.MimeType == webrtc.MimeTypeOpus {
		kind = webrtc.RTPCodecTypeAudio
	}

	s := &syntheticSource{
		track:    track,
		kind:     kind,
		interval: interval,
		done:     make(chan struct{}),
	}
	s.enabled.Store(true)
	go s.pump()
	return s, nil
}

// pump writes placeholder samples until the source is closed. Disabled
// sources skip writes so remote receivers simply stop getting frames.
func (s *syntheticSource) pump() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	payload := make([]byte, 16)
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if !s.enabled.Load() {
				continue
			}
			// Write errors mean no sender is bound yet; harmless.
			_ = s.track.WriteSample(pionmedia.Sample{Data: payload, Duration: s.interval})
		}
	}
}

func (s *syntheticSource) Track() webrtc.TrackLocal     { return s.track }
func (s *syntheticSource) Kind() webrtc.RTPCodecType    { return s.kind }
func (s *syntheticSource) SetEnabled(enabled bool)      { s.enabled.Store(enabled) }
func (s *syntheticSource) Enabled() bool                { return s.enabled.Load() }

func (s *syntheticSource) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.done)
	}
	return nil
}
