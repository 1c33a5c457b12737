// Package server wires the relay hub and the rooms API into HTTP routes.
package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/edumesh/liveclass/internal/auth"
	"github.com/edumesh/liveclass/internal/channel"
	"github.com/edumesh/liveclass/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Browser clients connect from the LMS origin; the CLI sends none.
	// Origin enforcement belongs to the deployment proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server holds the dependencies of all HTTP handlers.
type Server struct {
	hub    *channel.Hub
	rooms  store.Rooms
	secret []byte
}

// New creates a server around an already running hub.
func New(hub *channel.Hub, rooms store.Rooms, secret []byte) *Server {
	return &Server{hub: hub, rooms: rooms, secret: secret}
}

// Routes returns the full route table.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWs)
	mux.HandleFunc("GET /api/rooms", s.requireIdentity(s.handleListRooms))
	mux.HandleFunc("POST /api/rooms", s.requireIdentity(s.handleCreateRoom))
	mux.HandleFunc("GET /api/rooms/{id}", s.requireIdentity(s.handleGetRoom))
	mux.HandleFunc("PATCH /api/rooms/{id}/status", s.requireIdentity(s.handleUpdateStatus))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Relay server is healthy."))
}

// handleWs authenticates the connection, upgrades it and hands it to the hub.
func (s *Server) handleWs(w http.ResponseWriter, r *http.Request) {
	id, err := auth.Verify(s.secret, r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := channel.NewClient(s.hub, conn, id)
	s.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// identityHandler is an HTTP handler with the verified caller attached.
type identityHandler func(w http.ResponseWriter, r *http.Request, id auth.Identity)

// requireIdentity verifies the bearer token on API requests.
func (s *Server) requireIdentity(next identityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		id, err := auth.Verify(s.secret, raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r, id)
	}
}
