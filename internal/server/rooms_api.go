package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/edumesh/liveclass/internal/auth"
	"github.com/edumesh/liveclass/internal/store"
)

type createRoomRequest struct {
	RoomID string `json:"room_id"`
	Title  string `json:"title"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if id.Role != auth.RoleTeacher && id.Role != auth.RoleAdmin {
		writeError(w, http.StatusForbidden, "only teachers can create rooms")
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	room, err := s.rooms.Create(r.Context(), store.Room{
		RoomID:    req.RoomID,
		Title:     req.Title,
		CreatedBy: id.ID,
	})
	if err != nil {
		slog.Error("create room failed", "err", err)
		writeError(w, http.StatusInternalServerError, "could not create room")
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	rooms, err := s.rooms.List(r.Context())
	if err != nil {
		slog.Error("list rooms failed", "err", err)
		writeError(w, http.StatusInternalServerError, "could not list rooms")
		return
	}
	if rooms == nil {
		rooms = []store.Room{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	room, err := s.rooms.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	if err != nil {
		slog.Error("get room failed", "err", err)
		writeError(w, http.StatusInternalServerError, "could not load room")
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := s.rooms.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	if err != nil {
		slog.Error("get room failed", "err", err)
		writeError(w, http.StatusInternalServerError, "could not load room")
		return
	}

	// Only the room's creator or an admin may move it through its lifecycle.
	if room.CreatedBy != id.ID && id.Role != auth.RoleAdmin {
		writeError(w, http.StatusForbidden, "not the room owner")
		return
	}

	updated, err := s.rooms.UpdateStatus(r.Context(), room.ID, req.Status)
	if errors.Is(err, store.ErrInvalidStatus) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if err != nil {
		slog.Error("update room status failed", "err", err)
		writeError(w, http.StatusInternalServerError, "could not update room")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
