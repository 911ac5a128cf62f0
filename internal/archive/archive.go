// Package archive persists broadcast chat traffic to SQLite. It is an
// optional transcript: the room works identically with archiving disabled.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcript (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	sender     TEXT NOT NULL,
	text       TEXT NOT NULL,
	action     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcript_created_at ON transcript(created_at);
`

// Entry is one archived chat line.
type Entry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Action    string    `json:"action,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a single-writer SQLite transcript. All writes funnel through one
// goroutine so SQLite never sees write contention; reads go straight to the
// connection pool.
type Store struct {
	db       *sql.DB
	writes   chan Entry
	shutdown chan struct{}
	wg       sync.WaitGroup
	closed   bool
	mu       sync.Mutex
	log      *zap.Logger
}

// Open creates or opens the transcript database at path.
func Open(path string, log *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create transcript schema: %w", err)
	}

	s := &Store{
		db:       db,
		writes:   make(chan Entry, 100),
		shutdown: make(chan struct{}),
		log:      log,
	}

	s.wg.Add(1)
	go s.writeLoop()

	return s, nil
}

func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case e := <-s.writes:
			if err := s.insert(e); err != nil {
				s.log.Warn("transcript write failed, retrying once", zap.Error(err))
				time.Sleep(time.Second)
				if err := s.insert(e); err != nil {
					s.log.Warn("transcript write failed after retry, dropping entry", zap.Error(err))
				}
			}
		case <-s.shutdown:
			// Drain whatever is already queued before exiting.
			for {
				select {
				case e := <-s.writes:
					if err := s.insert(e); err != nil {
						s.log.Warn("transcript write failed during drain", zap.Error(err))
					}
				default:
					return
				}
			}
		}
	}
}

func (s *Store) insert(e Entry) error {
	_, err := s.db.Exec(
		`INSERT INTO transcript (id, kind, sender, text, action, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Kind, e.Sender, e.Text, e.Action, e.CreatedAt,
	)
	return err
}

// Record queues one chat line for archival. Non-blocking: if the write
// queue is full the line is dropped, never the chat.
func (s *Store) Record(kind, sender, text, action string, at time.Time) {
	e := Entry{
		ID:        uuid.New().String(),
		Kind:      kind,
		Sender:    sender,
		Text:      text,
		Action:    action,
		CreatedAt: at,
	}

	select {
	case s.writes <- e:
	default:
		s.log.Warn("transcript queue full, dropping entry", zap.String("kind", kind))
	}
}

// Recent returns the newest limit entries, oldest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, sender, text, action, created_at FROM transcript ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcript: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Sender, &e.Text, &e.Action, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transcript row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Close stops the writer, flushes queued entries, and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()
	return s.db.Close()
}
