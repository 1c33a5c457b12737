package realtime_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumesh/liveclass/internal/auth"
	"github.com/edumesh/liveclass/internal/channel"
	"github.com/edumesh/liveclass/internal/presence"
	"github.com/edumesh/liveclass/internal/realtime"
	"github.com/edumesh/liveclass/internal/server"
	"github.com/edumesh/liveclass/internal/store"
)

const (
	waitFor = 5 * time.Second
	tick    = 20 * time.Millisecond
)

var testSecret = []byte("test-secret")

func newTestRelay(t *testing.T) string {
	t.Helper()

	hub := channel.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := server.New(hub, store.NewMemory(), testSecret)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func signToken(t *testing.T, id, name, role string) string {
	t.Helper()
	token, err := auth.Sign(testSecret, auth.Identity{ID: id, Name: name, Role: role}, time.Hour)
	require.NoError(t, err)
	return token
}

// presenceRecorder captures the latest presence snapshot seen on a channel.
type presenceRecorder struct {
	mu   sync.Mutex
	last map[string]presence.Record
}

func (r *presenceRecorder) record(snapshot map[string]presence.Record) {
	r.mu.Lock()
	r.last = snapshot
	r.mu.Unlock()
}

func (r *presenceRecorder) snapshot() map[string]presence.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func dial(t *testing.T, wsURL, userID, role, topic string) *realtime.Channel {
	t.Helper()
	ch, err := realtime.Dial(wsURL, signToken(t, userID, "User "+userID, role), topic)
	require.NoError(t, err)
	t.Cleanup(ch.Close)
	return ch
}

func TestDialRejectsBadToken(t *testing.T) {
	wsURL := newTestRelay(t)

	_, err := realtime.Dial(wsURL, "not-a-token", "room:algebra-1")
	require.Error(t, err)
}

func TestSubscribeDeliversInitialPresence(t *testing.T) {
	wsURL := newTestRelay(t)
	ctx := context.Background()

	alice := dial(t, wsURL, "alice", auth.RoleTeacher, "room:algebra-1")
	require.NoError(t, alice.Subscribe(ctx))
	require.NoError(t, alice.Track(presence.Record{
		UserID:      "alice",
		DisplayName: "Alice",
		Role:        auth.RoleTeacher,
	}))

	rec := &presenceRecorder{}
	bob := dial(t, wsURL, "bob", auth.RoleStudent, "room:algebra-1")
	bob.OnPresence(rec.record)
	require.NoError(t, bob.Subscribe(ctx))

	require.Eventually(t, func() bool {
		snap := rec.snapshot()
		_, ok := snap["alice"]
		return ok
	}, waitFor, tick, "bob never saw alice in the initial presence state")

	got := rec.snapshot()["alice"]
	assert.Equal(t, "Alice", got.DisplayName)
	assert.Equal(t, auth.RoleTeacher, got.Role)
}

func TestBroadcastExcludesSender(t *testing.T) {
	wsURL := newTestRelay(t)
	ctx := context.Background()

	var (
		mu       sync.Mutex
		aliceGot []json.RawMessage
		bobGot   []json.RawMessage
	)

	alice := dial(t, wsURL, "alice", auth.RoleTeacher, "room:algebra-1")
	alice.On("signal", func(p json.RawMessage) {
		mu.Lock()
		aliceGot = append(aliceGot, p)
		mu.Unlock()
	})
	require.NoError(t, alice.Subscribe(ctx))

	bob := dial(t, wsURL, "bob", auth.RoleStudent, "room:algebra-1")
	bob.On("signal", func(p json.RawMessage) {
		mu.Lock()
		bobGot = append(bobGot, p)
		mu.Unlock()
	})
	require.NoError(t, bob.Subscribe(ctx))

	require.NoError(t, alice.Send("signal", map[string]string{"type": "offer", "to": "bob"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(bobGot) == 1
	}, waitFor, tick, "bob never received the broadcast")

	// The relay must not echo a broadcast back to its sender.
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, aliceGot)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(bobGot[0], &payload))
	assert.Equal(t, "offer", payload["type"])
}

func TestBroadcastStaysInsideTopic(t *testing.T) {
	wsURL := newTestRelay(t)
	ctx := context.Background()

	var (
		mu  sync.Mutex
		got int
	)

	alice := dial(t, wsURL, "alice", auth.RoleTeacher, "room:algebra-1")
	require.NoError(t, alice.Subscribe(ctx))

	carol := dial(t, wsURL, "carol", auth.RoleStudent, "room:history-2")
	carol.On("signal", func(json.RawMessage) {
		mu.Lock()
		got++
		mu.Unlock()
	})
	require.NoError(t, carol.Subscribe(ctx))

	require.NoError(t, alice.Send("signal", map[string]string{"type": "offer"}))

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, got, "a broadcast leaked across topics")
}

func TestUntrackRemovesPresenceEntry(t *testing.T) {
	wsURL := newTestRelay(t)
	ctx := context.Background()

	rec := &presenceRecorder{}
	alice := dial(t, wsURL, "alice", auth.RoleTeacher, "room:algebra-1")
	alice.OnPresence(rec.record)
	require.NoError(t, alice.Subscribe(ctx))

	bob := dial(t, wsURL, "bob", auth.RoleStudent, "room:algebra-1")
	require.NoError(t, bob.Subscribe(ctx))
	require.NoError(t, bob.Track(presence.Record{UserID: "bob", DisplayName: "Bob"}))

	require.Eventually(t, func() bool {
		_, ok := rec.snapshot()["bob"]
		return ok
	}, waitFor, tick)

	require.NoError(t, bob.Untrack())

	require.Eventually(t, func() bool {
		_, ok := rec.snapshot()["bob"]
		return !ok
	}, waitFor, tick, "bob's presence entry survived untrack")
}

func TestDisconnectDropsPresence(t *testing.T) {
	wsURL := newTestRelay(t)
	ctx := context.Background()

	rec := &presenceRecorder{}
	alice := dial(t, wsURL, "alice", auth.RoleTeacher, "room:algebra-1")
	alice.OnPresence(rec.record)
	require.NoError(t, alice.Subscribe(ctx))

	bob := dial(t, wsURL, "bob", auth.RoleStudent, "room:algebra-1")
	require.NoError(t, bob.Subscribe(ctx))
	require.NoError(t, bob.Track(presence.Record{UserID: "bob", DisplayName: "Bob"}))

	require.Eventually(t, func() bool {
		_, ok := rec.snapshot()["bob"]
		return ok
	}, waitFor, tick)

	require.NoError(t, bob.Unsubscribe())

	require.Eventually(t, func() bool {
		_, ok := rec.snapshot()["bob"]
		return !ok
	}, waitFor, tick, "bob's presence entry survived his disconnect")
}

func TestTrackKeyedByVerifiedIdentity(t *testing.T) {
	wsURL := newTestRelay(t)
	ctx := context.Background()

	rec := &presenceRecorder{}
	alice := dial(t, wsURL, "alice", auth.RoleTeacher, "room:algebra-1")
	alice.OnPresence(rec.record)
	require.NoError(t, alice.Subscribe(ctx))

	// Mallory claims to be the teacher in her payload; the relay keys the
	// entry by her token identity regardless.
	mallory := dial(t, wsURL, "mallory", auth.RoleStudent, "room:algebra-1")
	require.NoError(t, mallory.Subscribe(ctx))
	require.NoError(t, mallory.Track(presence.Record{UserID: "alice", DisplayName: "Fake Alice"}))

	require.Eventually(t, func() bool {
		_, ok := rec.snapshot()["mallory"]
		return ok
	}, waitFor, tick, "mallory's presence never arrived under her own ID")
}
