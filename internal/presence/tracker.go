package presence

import (
	"sync"
	"time"
)

// Transport is the slice of the realtime channel the tracker needs: publishing
// the local record and observing presence snapshots.
type Transport interface {
	Track(Record) error
	OnPresence(func(map[string]Record))
}

// Tracker owns the local participant's presence record and republishes it on
// every status change. Remote state arrives as full map snapshots, never
// deltas; that is acceptable at classroom scale.
type Tracker struct {
	mu      sync.Mutex
	ch      Transport
	self    Record
	records map[string]Record

	onSnapshot func(map[string]Record)
}

// NewTracker creates a tracker for the given local record. Start must be
// called before Announce.
func NewTracker(ch Transport, self Record) *Tracker {
	if self.JoinedAt.IsZero() {
		self.JoinedAt = time.Now()
	}
	return &Tracker{
		ch:      ch,
		self:    self,
		records: make(map[string]Record),
	}
}

// Start registers the presence handler. The callback receives a copy of the
// full snapshot on every sync/join/leave/update event.
func (t *Tracker) Start(onSnapshot func(map[string]Record)) {
	t.mu.Lock()
	t.onSnapshot = onSnapshot
	t.mu.Unlock()

	t.ch.OnPresence(func(state map[string]Record) {
		t.mu.Lock()
		t.records = make(map[string]Record, len(state))
		for id, rec := range state {
			t.records[id] = rec
		}
		cb := t.onSnapshot
		snap := t.snapshotLocked()
		t.mu.Unlock()

		if cb != nil {
			cb(snap)
		}
	})
}

// Announce publishes the local record for the first time. Called once the
// channel reports subscribed.
func (t *Tracker) Announce() error {
	t.mu.Lock()
	rec := t.self
	t.mu.Unlock()
	return t.ch.Track(rec)
}

// SetAudioMuted republishes the local record with the new mute flag. No
// acknowledgement is awaited.
func (t *Tracker) SetAudioMuted(muted bool) error {
	t.mu.Lock()
	t.self.AudioMuted = muted
	rec := t.self
	t.mu.Unlock()
	return t.ch.Track(rec)
}

// SetVideoOff republishes the local record with the new camera flag.
func (t *Tracker) SetVideoOff(off bool) error {
	t.mu.Lock()
	t.self.VideoOff = off
	rec := t.self
	t.mu.Unlock()
	return t.ch.Track(rec)
}

// Self returns the current local record.
func (t *Tracker) Self() Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.self
}

// Snapshot returns a copy of the last observed presence map.
func (t *Tracker) Snapshot() map[string]Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() map[string]Record {
	snap := make(map[string]Record, len(t.records))
	for id, rec := range t.records {
		snap[id] = rec
	}
	return snap
}
