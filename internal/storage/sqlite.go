package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS transcriptions (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	duration REAL NOT NULL,
	cost REAL NOT NULL,
	timestamp_ms INTEGER NOT NULL,
	date TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transcriptions_date ON transcriptions(date);
CREATE INDEX IF NOT EXISTS idx_transcriptions_timestamp ON transcriptions(timestamp_ms);
`

// SQLiteStore keeps history in a local SQLite file
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore creates a store for the database at path. Nothing is opened
// until Connect.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Connect opens the database and creates the schema
func (s *SQLiteStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return &types.PersistenceError{Op: "connect", Err: fmt.Errorf("failed to open database: %w", err)}
	}
	// One connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return &types.PersistenceError{Op: "connect", Err: fmt.Errorf("failed to create table: %w", err)}
	}

	s.db = db
	return nil
}

// Disconnect closes the database. Safe to call when not connected.
func (s *SQLiteStore) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) handle(op string) (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, &types.PersistenceError{Op: op, Err: types.ErrNotConnected}
	}
	return s.db, nil
}

// Insert stores rec under a fresh UUID
func (s *SQLiteStore) Insert(ctx context.Context, rec types.Record) (string, error) {
	db, err := s.handle("insert")
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO transcriptions (id, text, duration, cost, timestamp_ms, date) VALUES (?, ?, ?, ?, ?, ?)`,
		id, rec.Text, rec.DurationSeconds, rec.CostUSD, rec.Timestamp.UnixMilli(), rec.Date)
	if err != nil {
		return "", &types.PersistenceError{Op: "insert", Err: err}
	}

	return id, nil
}

// AggregateByDate counts records per day, most recent day first
func (s *SQLiteStore) AggregateByDate(ctx context.Context) ([]types.HistoryDay, error) {
	db, err := s.handle("aggregate")
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT date, COUNT(*) FROM transcriptions GROUP BY date ORDER BY date DESC`)
	if err != nil {
		return nil, &types.PersistenceError{Op: "aggregate", Err: err}
	}
	defer rows.Close()

	days := []types.HistoryDay{}
	for rows.Next() {
		var day types.HistoryDay
		if err := rows.Scan(&day.Date, &day.Count); err != nil {
			return nil, &types.PersistenceError{Op: "aggregate", Err: err}
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.PersistenceError{Op: "aggregate", Err: err}
	}

	return days, nil
}

// QueryByDate returns the records stored under date, newest first
func (s *SQLiteStore) QueryByDate(ctx context.Context, date string) ([]types.Record, error) {
	db, err := s.handle("query")
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, text, duration, cost, timestamp_ms, date FROM transcriptions
		 WHERE date = ? ORDER BY timestamp_ms DESC`, date)
	if err != nil {
		return nil, &types.PersistenceError{Op: "query", Err: err}
	}
	defer rows.Close()

	records := []types.Record{}
	for rows.Next() {
		var (
			rec types.Record
			ms  int64
		)
		if err := rows.Scan(&rec.ID, &rec.Text, &rec.DurationSeconds, &rec.CostUSD, &ms, &rec.Date); err != nil {
			return nil, &types.PersistenceError{Op: "query", Err: err}
		}
		rec.Timestamp = time.UnixMilli(ms).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.PersistenceError{Op: "query", Err: err}
	}

	return records, nil
}
