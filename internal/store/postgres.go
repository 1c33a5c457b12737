package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the pgx-backed Rooms implementation.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database at url and ensures the schema exists.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rooms (
			id          TEXT PRIMARY KEY,
			room_id     TEXT NOT NULL UNIQUE,
			title       TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'scheduled',
			created_by  TEXT NOT NULL,
			meeting_url TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("migrate rooms table: %w", err)
	}
	return nil
}

func (p *Postgres) Create(ctx context.Context, room Room) (Room, error) {
	if room.Status == "" {
		room.Status = StatusScheduled
	}
	if !ValidStatus(room.Status) {
		return Room{}, ErrInvalidStatus
	}
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.RoomID == "" {
		room.RoomID = newRoomCode(nil)
	}
	room.CreatedAt = time.Now().UTC()

	_, err := p.pool.Exec(ctx, `
		INSERT INTO rooms (id, room_id, title, status, created_by, meeting_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		room.ID, room.RoomID, room.Title, room.Status, room.CreatedBy, room.MeetingURL, room.CreatedAt)
	if err != nil {
		return Room{}, fmt.Errorf("insert room: %w", err)
	}
	return room, nil
}

func (p *Postgres) Get(ctx context.Context, id string) (Room, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, room_id, title, status, created_by, meeting_url, created_at
		FROM rooms WHERE id = $1 OR room_id = $1`, id)

	var room Room
	err := row.Scan(&room.ID, &room.RoomID, &room.Title, &room.Status,
		&room.CreatedBy, &room.MeetingURL, &room.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Room{}, ErrNotFound
	}
	if err != nil {
		return Room{}, fmt.Errorf("select room: %w", err)
	}
	return room, nil
}

func (p *Postgres) List(ctx context.Context) ([]Room, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, room_id, title, status, created_by, meeting_url, created_at
		FROM rooms ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.RoomID, &room.Title, &room.Status,
			&room.CreatedBy, &room.MeetingURL, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (p *Postgres) UpdateStatus(ctx context.Context, id, status string) (Room, error) {
	if !ValidStatus(status) {
		return Room{}, ErrInvalidStatus
	}

	row := p.pool.QueryRow(ctx, `
		UPDATE rooms SET status = $2 WHERE id = $1
		RETURNING id, room_id, title, status, created_by, meeting_url, created_at`,
		id, status)

	var room Room
	err := row.Scan(&room.ID, &room.RoomID, &room.Title, &room.Status,
		&room.CreatedBy, &room.MeetingURL, &room.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Room{}, ErrNotFound
	}
	if err != nil {
		return Room{}, fmt.Errorf("update room: %w", err)
	}
	return room, nil
}
