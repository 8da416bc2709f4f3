package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/chat-sentry/internal/core"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the FlagStore interface
type MySQLStore struct {
	mu     sync.Mutex
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore creates a new MySQL store
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS flagged_messages (
			seq BIGINT AUTO_INCREMENT PRIMARY KEY,
			id VARCHAR(64) NOT NULL UNIQUE,
			contact VARCHAR(255) NOT NULL,
			body TEXT NOT NULL,
			msg_time TIMESTAMP NULL,
			dedup_hash CHAR(64) NOT NULL UNIQUE
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create flagged_messages table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS recommended_times (
			contact VARCHAR(255) PRIMARY KEY,
			time_window TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create recommended_times table: %w", err)
	}

	return &MySQLStore{db: db, logger: logger}, nil
}

// dedupHash keeps the unique index within MySQL key-length limits
func dedupHash(contact, text string) string {
	sum := sha256.Sum256([]byte(core.DedupKey(contact, text)))
	return hex.EncodeToString(sum[:])
}

// MergeFlagged inserts incoming records whose dedup key is absent, then
// returns the full history in insertion order
func (s *MySQLStore) MergeFlagged(ctx context.Context, messages []core.FlaggedMessage) ([]core.FlaggedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin merge transaction: %w", err)
	}
	defer tx.Rollback()

	for _, msg := range messages {
		_, err := tx.ExecContext(ctx, `
			INSERT IGNORE INTO flagged_messages (id, contact, body, msg_time, dedup_hash)
			VALUES (?, ?, ?, ?, ?)
		`, msg.ID, msg.Contact, msg.Text, msg.Timestamp.UTC().Format("2006-01-02 15:04:05"), dedupHash(msg.Contact, msg.Text))
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
func (s *MySQLStore) ListFlagged(ctx context.Context) ([]core.FlaggedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(ctx)
}

func (s *MySQLStore) listLocked(ctx context.Context) ([]core.FlaggedMessage, error) {
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
		var ts sql.NullString
		if err := rows.Scan(&msg.ID, &msg.Contact, &msg.Text, &ts); err != nil {
			s.logger.Warn("Failed to scan flagged message", zap.Error(err))
			continue
		}
		if ts.Valid {
			if parsed, err := time.Parse("2006-01-02 15:04:05", ts.String); err == nil {
				msg.Timestamp = parsed
			}
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// DeleteFlagged removes the record with the given identifier; missing ids
// are a no-op
func (s *MySQLStore) DeleteFlagged(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM flagged_messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete flagged message: %w", err)
	}
	return nil
}

// SaveRecommendedTimes replaces the stored mapping wholesale
func (s *MySQLStore) SaveRecommendedTimes(ctx context.Context, times map[string]string) error {
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
func (s *MySQLStore) RecommendedTimes(ctx context.Context) (map[string]string, error) {
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
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
