package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/chat-sentry/internal/core"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the FlagStore interface
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS flagged_messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			contact TEXT NOT NULL,
			body TEXT NOT NULL,
			msg_time TIMESTAMP,
			dedup_key TEXT NOT NULL UNIQUE
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create flagged_messages table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS recommended_times (
			contact TEXT PRIMARY KEY,
			time_window TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create recommended_times table: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// MergeFlagged inserts incoming records whose dedup key is absent, then
// returns the full history in insertion order. The whole read-merge-write
// sequence holds the store lock and runs in one transaction.
func (s *SQLiteStore) MergeFlagged(ctx context.Context, messages []core.FlaggedMessage) ([]core.FlaggedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin merge transaction: %w", err)
	}
	defer tx.Rollback()

	for _, msg := range messages {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO flagged_messages (id, contact, body, msg_time, dedup_key)
			VALUES (?, ?, ?, ?, ?)
		`, msg.ID, msg.Contact, msg.Text, msg.Timestamp.Format(time.RFC3339), core.DedupKey(msg.Contact, msg.Text))
		if err != nil {
			return nil, fmt.Errorf("failed to insert flagged message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit merge: %w", err)
	}

	return s.listLocked(ctx)
}

// ListFlagged returns the full current history. Query failures degrade to
// an empty result.
func (s *SQLiteStore) ListFlagged(ctx context.Context) ([]core.FlaggedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(ctx)
}

func (s *SQLiteStore) listLocked(ctx context.Context) ([]core.FlaggedMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contact, body, msg_time FROM flagged_messages ORDER BY seq
	`)
	if err != nil {
		s.logger.Warn("Failed to query flagged messages, treating as empty", zap.Error(err))
		return nil, nil
	}
	defer rows.Close()

	var messages []core.FlaggedMessage
	for rows.Next() {
		var msg core.FlaggedMessage
		var ts string
		if err := rows.Scan(&msg.ID, &msg.Contact, &msg.Text, &ts); err != nil {
			s.logger.Warn("Failed to scan flagged message", zap.Error(err))
			continue
		}
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			msg.Timestamp = parsed
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// DeleteFlagged removes the record with the given identifier; missing ids
// are a no-op
func (s *SQLiteStore) DeleteFlagged(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM flagged_messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete flagged message: %w", err)
	}
	return nil
}

// SaveRecommendedTimes replaces the stored mapping wholesale
func (s *SQLiteStore) SaveRecommendedTimes(ctx context.Context, times map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recommended_times`); err != nil {
		return fmt.Errorf("failed to clear recommended times: %w", err)
	}
	for contact, window := range times {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recommended_times (contact, time_window) VALUES (?, ?)
		`, contact, window); err != nil {
			return fmt.Errorf("failed to insert recommended time: %w", err)
		}
	}
	return tx.Commit()
}

// RecommendedTimes returns the stored mapping, empty on read failure
func (s *SQLiteStore) RecommendedTimes(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	times := map[string]string{}
	rows, err := s.db.QueryContext(ctx, `SELECT contact, time_window FROM recommended_times`)
	if err != nil {
		s.logger.Warn("Failed to query recommended times, treating as empty", zap.Error(err))
		return times, nil
	}
	defer rows.Close()

	for rows.Next() {
		var contact, window string
		if err := rows.Scan(&contact, &window); err != nil {
			s.logger.Warn("Failed to scan recommended time", zap.Error(err))
			continue
		}
		times[contact] = window
	}
	return times, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
