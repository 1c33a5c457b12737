// Package store persists room metadata: the descriptor the live-room pages
// read before joining. Backed by Postgres when configured, with an in-memory
// fallback for development and tests.
package store

import (
	"context"
	"errors"
	"time"
)

// Room lifecycle states.
const (
	StatusScheduled = "scheduled"
	StatusLive      = "live"
	StatusEnded     = "ended"
)

var (
	ErrNotFound      = errors.New("room not found")
	ErrInvalidStatus = errors.New("invalid room status")
)

// Room is the persisted descriptor for one live-class room.
type Room struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	CreatedBy  string    `json:"created_by"`
	MeetingURL string    `json:"meeting_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// Rooms is the storage contract the server's API handlers depend on.
type Rooms interface {
	Create(ctx context.Context, room Room) (Room, error)
	Get(ctx context.Context, id string) (Room, error)
	List(ctx context.Context) ([]Room, error)
	UpdateStatus(ctx context.Context, id, status string) (Room, error)
}

// ValidStatus reports whether s is a known room status.
func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusLive, StatusEnded:
		return true
	}
	return false
}
