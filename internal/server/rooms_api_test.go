package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumesh/liveclass/internal/auth"
	"github.com/edumesh/liveclass/internal/channel"
	"github.com/edumesh/liveclass/internal/server"
	"github.com/edumesh/liveclass/internal/store"
)

var testSecret = []byte("test-secret")

func newTestAPI(t *testing.T) (*httptest.Server, store.Rooms) {
	t.Helper()

	hub := channel.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	rooms := store.NewMemory()
	ts := httptest.NewServer(server.New(hub, rooms, testSecret).Routes())
	t.Cleanup(ts.Close)
	return ts, rooms
}

func signToken(t *testing.T, id, role string) string {
	t.Helper()
	token, err := auth.Sign(testSecret, auth.Identity{ID: id, Name: "User " + id, Role: role}, time.Hour)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeRoom(t *testing.T, resp *http.Response) store.Room {
	t.Helper()
	var room store.Room
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&room))
	return room
}

func TestHealth(t *testing.T) {
	ts, _ := newTestAPI(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateRoomRequiresToken(t *testing.T) {
	ts, _ := newTestAPI(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/rooms", "", map[string]string{"title": "Algebra I"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateRoomRejectsStudents(t *testing.T) {
	ts, _ := newTestAPI(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/rooms",
		signToken(t, "bob", auth.RoleStudent), map[string]string{"title": "Algebra I"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateAndFetchRoom(t *testing.T) {
	ts, _ := newTestAPI(t)
	teacher := signToken(t, "alice", auth.RoleTeacher)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/rooms", teacher,
		map[string]string{"room_id": "algebra-1", "title": "Algebra I"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeRoom(t, resp)
	assert.Equal(t, "algebra-1", created.RoomID)
	assert.Equal(t, "alice", created.CreatedBy)
	assert.Equal(t, store.StatusScheduled, created.Status)

	// Fetch by channel-facing room ID.
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/rooms/algebra-1", teacher, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, decodeRoom(t, resp).ID)
}

func TestGetRoomNotFound(t *testing.T) {
	ts, _ := newTestAPI(t)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/rooms/nope",
		signToken(t, "alice", auth.RoleTeacher), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRooms(t *testing.T) {
	ts, rooms := newTestAPI(t)

	_, err := rooms.Create(context.Background(), store.Room{Title: "Algebra I", CreatedBy: "alice"})
	require.NoError(t, err)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/rooms",
		signToken(t, "bob", auth.RoleStudent), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed []store.Room
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	assert.Len(t, listed, 1)
}

func TestUpdateStatusOwnerOnly(t *testing.T) {
	ts, rooms := newTestAPI(t)

	created, err := rooms.Create(context.Background(), store.Room{Title: "Algebra I", CreatedBy: "alice"})
	require.NoError(t, err)

	resp := doJSON(t, http.MethodPatch, ts.URL+"/api/rooms/"+created.ID+"/status",
		signToken(t, "bob", auth.RoleStudent), map[string]string{"status": store.StatusLive})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodPatch, ts.URL+"/api/rooms/"+created.ID+"/status",
		signToken(t, "alice", auth.RoleTeacher), map[string]string{"status": store.StatusLive})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, store.StatusLive, decodeRoom(t, resp).Status)

	resp = doJSON(t, http.MethodPatch, ts.URL+"/api/rooms/"+created.ID+"/status",
		signToken(t, "alice", auth.RoleTeacher), map[string]string{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
