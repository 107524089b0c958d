package db

import (
	"fmt"
	"os"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
)

// OpenJournalDB opens the SQLite database backing the room event journal.
// The path comes from JOURNAL_DB_PATH; an empty variable means the journal
// is disabled and (nil, nil) is returned.
func OpenJournalDB() (*sqlx.DB, error) {
	path := os.Getenv("JOURNAL_DB_PATH")
	if path == "" {
		return nil, nil
	}

	pool, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	if err := pool.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}
	return pool, nil
}
