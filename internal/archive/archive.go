// Package archive keeps an append-only transcript of every message the
// session records. The archive is write-behind and read back only for
// history queries; the in-memory session never restores state from it.
package archive

import (
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/corvidchat/corvid/internal/logger"
	"github.com/corvidchat/corvid/internal/session"
)

// Entry is one archived transcript line.
type Entry struct {
	ID        int64     `db:"id"`
	Server    string    `db:"server"`
	Container string    `db:"container"`
	Kind      string    `db:"kind"`
	User      string    `db:"user"`
	Text      string    `db:"text"`
	Timestamp time.Time `db:"timestamp"`
}

// Archive handles transcript persistence with buffered batch writes.
type Archive struct {
	db            *sqlx.DB
	writeBuffer   chan Entry
	bufferSize    int
	flushInterval time.Duration
	mu            sync.Mutex
	stopCh        chan struct{}
	wg            sync.WaitGroup
	closed        bool
	closedMu      sync.RWMutex
}

// New opens or creates the transcript database at dbPath.
func New(dbPath string, bufferSize int, flushInterval time.Duration) (*Archive, error) {
	// Enable WAL mode for better concurrent writes
	db, err := sqlx.Connect("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single connection in WAL mode
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	a := &Archive{
		db:            db,
		writeBuffer:   make(chan Entry, bufferSize),
		bufferSize:    bufferSize,
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	a.wg.Add(1)
	go a.flushLoop()

	return a, nil
}

// Record implements the session transcript sink. Writes are buffered; a full
// buffer drops the entry rather than stalling a transition.
func (a *Archive) Record(server, container string, msg session.Message) {
	a.closedMu.RLock()
	closed := a.closed
	a.closedMu.RUnlock()
	if closed {
		return
	}

	entry := Entry{
		Server:    server,
		Container: container,
		Kind:      string(msg.Kind),
		User:      msg.User,
		Text:      msg.Text,
		Timestamp: msg.Time,
	}
	select {
	case a.writeBuffer <- entry:
	default:
		logger.Log.Warn().Str("server", server).Str("container", container).Msg("Archive buffer full, dropping entry")
	}
}

// Recent returns up to limit entries for a container, oldest first.
func (a *Archive) Recent(server, container string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []Entry
	err := a.db.Select(&entries, `
		SELECT id, server, container, kind, user, text, timestamp
		FROM transcript
		WHERE server = ? AND container = ?
		ORDER BY id DESC
		LIMIT ?`, server, container, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcript: %w", err)
	}
	// Reverse into chronological order
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Close flushes remaining entries and closes the database.
func (a *Archive) Close() error {
	a.closedMu.Lock()
	if a.closed {
		a.closedMu.Unlock()
		return nil
	}
	a.closed = true
	a.closedMu.Unlock()

	close(a.stopCh)
	a.wg.Wait()
	a.drain()
	return a.db.Close()
}

// flushLoop periodically flushes the write buffer.
func (a *Archive) flushLoop() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.flushBuffer()
		}
	}
}

// flushBuffer batch-inserts everything currently buffered.
func (a *Archive) flushBuffer() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.writeBuffer) == 0 {
		return
	}

	entries := make([]Entry, 0, a.bufferSize)
	for {
		select {
		case entry := <-a.writeBuffer:
			entries = append(entries, entry)
		default:
			if len(entries) == 0 {
				return
			}
			a.insert(entries)
			return
		}
	}
}

// drain flushes everything left after the flush loop has stopped.
func (a *Archive) drain() {
	a.mu.Lock()
	defer a.mu.Unlock()

	var entries []Entry
	for {
		select {
		case entry := <-a.writeBuffer:
			entries = append(entries, entry)
		default:
			if len(entries) > 0 {
				a.insert(entries)
			}
			return
		}
	}
}

func (a *Archive) insert(entries []Entry) {
	query := `INSERT INTO transcript (server, container, kind, user, text, timestamp)
	          VALUES (:server, :container, :kind, :user, :text, :timestamp)`
	if _, err := a.db.NamedExec(query, entries); err != nil {
		logger.Log.Error().Err(err).Int("count", len(entries)).Msg("Error flushing transcript entries")
	}
}
