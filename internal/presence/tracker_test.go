package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport records tracked records and lets tests inject snapshots.
type fakeTransport struct {
	tracked  []Record
	presence func(map[string]Record)
}

func (f *fakeTransport) Track(rec Record) error {
	f.tracked = append(f.tracked, rec)
	return nil
}

func (f *fakeTransport) OnPresence(h func(map[string]Record)) {
	f.presence = h
}

func TestAnnouncePublishesSelf(t *testing.T) {
	ch := &fakeTransport{}
	tr := NewTracker(ch, Record{UserID: "aaa", DisplayName: "Ada", Role: "teacher"})
	tr.Start(nil)

	require.NoError(t, tr.Announce())
	require.Len(t, ch.tracked, 1)
	assert.Equal(t, "aaa", ch.tracked[0].UserID)
	assert.False(t, ch.tracked[0].JoinedAt.IsZero())
}

func TestTogglesRepublishRecord(t *testing.T) {
	ch := &fakeTransport{}
	tr := NewTracker(ch, Record{UserID: "aaa"})
	tr.Start(nil)

	require.NoError(t, tr.SetAudioMuted(true))
	require.NoError(t, tr.SetVideoOff(true))
	require.NoError(t, tr.SetAudioMuted(false))

	require.Len(t, ch.tracked, 3)
	assert.True(t, ch.tracked[0].AudioMuted)
	assert.True(t, ch.tracked[1].VideoOff)
	assert.False(t, ch.tracked[2].AudioMuted)
	// VideoOff sticks across the audio toggle.
	assert.True(t, ch.tracked[2].VideoOff)
	assert.True(t, tr.Self().VideoOff)
}

func TestSnapshotsAreFullReplace(t *testing.T) {
	ch := &fakeTransport{}
	tr := NewTracker(ch, Record{UserID: "aaa"})

	var got map[string]Record
	tr.Start(func(snap map[string]Record) { got = snap })

	ch.presence(map[string]Record{
		"aaa": {UserID: "aaa"},
		"bbb": {UserID: "bbb", JoinedAt: time.Now()},
	})
	require.Len(t, got, 2)

	ch.presence(map[string]Record{"aaa": {UserID: "aaa"}})
	require.Len(t, got, 1)
	assert.Len(t, tr.Snapshot(), 1)

	// Mutating a returned snapshot must not leak into the tracker.
	got["zzz"] = Record{UserID: "zzz"}
	assert.Len(t, tr.Snapshot(), 1)
}
