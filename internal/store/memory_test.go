package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCreateDefaults(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	room, err := m.Create(ctx, Room{Title: "Algebra I", CreatedBy: "aaa"})
	require.NoError(t, err)
	assert.NotEmpty(t, room.ID)
	assert.Regexp(t, `^[a-z]+-[a-z]+-[a-z]+$`, room.RoomID)
	assert.Equal(t, StatusScheduled, room.Status)
	assert.False(t, room.CreatedAt.IsZero())
}

func TestMemoryGetByEitherID(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	created, err := m.Create(ctx, Room{RoomID: "algebra-1", Title: "Algebra I", CreatedBy: "aaa"})
	require.NoError(t, err)

	byID, err := m.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)

	byRoomID, err := m.Get(ctx, "algebra-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byRoomID.ID)

	_, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUpdateStatus(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	created, err := m.Create(ctx, Room{Title: "Algebra I", CreatedBy: "aaa"})
	require.NoError(t, err)

	updated, err := m.UpdateStatus(ctx, created.ID, StatusLive)
	require.NoError(t, err)
	assert.Equal(t, StatusLive, updated.Status)

	_, err = m.UpdateStatus(ctx, created.ID, "bogus")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = m.UpdateStatus(ctx, "missing", StatusEnded)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryListNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Create(ctx, Room{Title: "first", CreatedBy: "aaa"})
	require.NoError(t, err)
	_, err = m.Create(ctx, Room{Title: "second", CreatedBy: "aaa"})
	require.NoError(t, err)

	rooms, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
}
