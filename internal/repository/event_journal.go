package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Room lifecycle events recorded in the journal.
const (
	EventJoin  = "join"
	EventLeave = "leave"
)

// EventJournal records join/leave events for offline room analytics. Writes
// are fire-and-forget from the room's point of view; a failed append is
// logged and forgotten.
type EventJournal interface {
	Append(ctx context.Context, roomName, playerID, event string) error
	CountByRoom(ctx context.Context, roomName string) (int, error)
}

type sqliteEventJournal struct {
	db *sqlx.DB
}

const journalSchema = `
CREATE TABLE IF NOT EXISTS room_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	room_name TEXT NOT NULL,
	player_id TEXT NOT NULL,
	event TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_room_events_room ON room_events(room_name);`

// NewEventJournal creates a SQLite-backed journal, creating the table on
// first use.
func NewEventJournal(db *sqlx.DB) (EventJournal, error) {
	if _, err := db.Exec(journalSchema); err != nil {
		return nil, fmt.Errorf("failed to create room_events table: %w", err)
	}
	return &sqliteEventJournal{db: db}, nil
}

// Append records one room lifecycle event.
func (j *sqliteEventJournal) Append(ctx context.Context, roomName, playerID, event string) error {
	ctx, span := tracer.Start(ctx, "EventJournal.Append")
	defer span.End()

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO room_events (room_name, player_id, event, created_at) VALUES (?, ?, ?, ?)`,
		roomName, playerID, event, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to append room event: %w", err)
	}
	return nil
}

// CountByRoom returns the number of recorded events for a room.
func (j *sqliteEventJournal) CountByRoom(ctx context.Context, roomName string) (int, error) {
	var n int
	err := j.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM room_events WHERE room_name = ?`, roomName)
	if err != nil {
		return 0, fmt.Errorf("failed to count room events: %w", err)
	}
	return n, nil
}

// NoopEventJournal is used when no journal database is configured.
type NoopEventJournal struct{}

func (NoopEventJournal) Append(ctx context.Context, roomName, playerID, event string) error {
	return nil
}

func (NoopEventJournal) CountByRoom(ctx context.Context, roomName string) (int, error) {
	return 0, nil
}
