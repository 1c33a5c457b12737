package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is the in-memory Rooms implementation used when no database is
// configured, and by tests.
type Memory struct {
	mu    sync.RWMutex
	rooms map[string]Room
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{rooms: make(map[string]Room)}
}

func (m *Memory) Create(_ context.Context, room Room) (Room, error) {
	if room.Status == "" {
		room.Status = StatusScheduled
	}
	if !ValidStatus(room.Status) {
		return Room{}, ErrInvalidStatus
	}
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	room.CreatedAt = time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	if room.RoomID == "" {
		room.RoomID = newRoomCode(func(code string) bool {
			for _, existing := range m.rooms {
				if existing.RoomID == code {
					return true
				}
			}
			return false
		})
	}
	m.rooms[room.ID] = room
	return room, nil
}

func (m *Memory) Get(_ context.Context, id string) (Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if room, ok := m.rooms[id]; ok {
		return room, nil
	}
	// Pages also look rooms up by their channel-facing room ID.
	for _, room := range m.rooms {
		if room.RoomID == id {
			return room, nil
		}
	}
	return Room{}, ErrNotFound
}

func (m *Memory) List(_ context.Context) ([]Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := make([]Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	return rooms, nil
}

func (m *Memory) UpdateStatus(_ context.Context, id, status string) (Room, error) {
	if !ValidStatus(status) {
		return Room{}, ErrInvalidStatus
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[id]
	if !ok {
		return Room{}, ErrNotFound
	}
	room.Status = status
	m.rooms[id] = room
	return room, nil
}
