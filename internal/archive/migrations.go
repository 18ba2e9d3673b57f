package archive

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Migrate runs all database migrations
func Migrate(db *sqlx.DB) error {
	migrations := []string{
		createTranscriptTable,
		createIndexes,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

const createTranscriptTable = `
CREATE TABLE IF NOT EXISTS transcript (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    server TEXT NOT NULL,
    container TEXT NOT NULL,
    kind TEXT NOT NULL,
    user TEXT NOT NULL DEFAULT '',
    text TEXT NOT NULL,
    timestamp DATETIME NOT NULL
);
`

const createIndexes = `
CREATE INDEX IF NOT EXISTS idx_transcript_server_container_time ON transcript(server, container, timestamp);
`
