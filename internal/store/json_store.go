package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mikey/chat-sentry/internal/core"
	"go.uber.org/zap"
)

const (
	flaggedFile = "flagged_messages.json"
	timesFile   = "recommended_times.json"
)

// JSONStore is a document-per-collection implementation of the FlagStore
// interface. Each collection is one self-describing JSON file rewritten
// wholesale on every mutation. Unreadable documents degrade to empty
// results; they never fail the calling pipeline.
type JSONStore struct {
	mu     sync.Mutex
	dir    string
	logger *zap.Logger
}

// NewJSONStore creates a JSON document store rooted at dir
func NewJSONStore(dir string, logger *zap.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &JSONStore{dir: dir, logger: logger}, nil
}

func (s *JSONStore) flaggedPath() string {
	return filepath.Join(s.dir, flaggedFile)
}

func (s *JSONStore) timesPath() string {
	return filepath.Join(s.dir, timesFile)
}

// readFlagged loads the flagged-message document, degrading to an empty
// history on missing or corrupt files
func (s *JSONStore) readFlagged() []core.FlaggedMessage {
	data, err := os.ReadFile(s.flaggedPath())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read flagged messages, treating as empty", zap.Error(err))
		}
		return nil
	}

	var messages []core.FlaggedMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		s.logger.Warn("Corrupt flagged-message document, treating as empty", zap.Error(err))
		return nil
	}
	return messages
}

func (s *JSONStore) writeFlagged(messages []core.FlaggedMessage) error {
	if messages == nil {
		messages = []core.FlaggedMessage{}
	}
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode flagged messages: %w", err)
	}
	return os.WriteFile(s.flaggedPath(), data, 0o644)
}

// MergeFlagged appends incoming records whose normalized (contact, text)
// key is absent from history. The read-merge-write sequence runs under an
// exclusive lock so concurrent flagging passes cannot lose updates.
func (s *JSONStore) MergeFlagged(ctx context.Context, messages []core.FlaggedMessage) ([]core.FlaggedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.readFlagged()
	seen := make(map[string]struct{}, len(history))
	for _, msg := range history {
		seen[core.DedupKey(msg.Contact, msg.Text)] = struct{}{}
	}

	accepted := 0
	for _, msg := range messages {
		key := core.DedupKey(msg.Contact, msg.Text)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		history = append(history, msg)
		accepted++
	}

	if err := s.writeFlagged(history); err != nil {
		return nil, err
	}

	s.logger.Debug("Merged flagged messages",
		zap.Int("incoming", len(messages)),
		zap.Int("accepted", accepted),
		zap.Int("total", len(history)))
	return history, nil
}

// ListFlagged returns the full current history
func (s *JSONStore) ListFlagged(ctx context.Context) ([]core.FlaggedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readFlagged(), nil
}

// DeleteFlagged removes the record with the given identifier; missing ids
// are a no-op
func (s *JSONStore) DeleteFlagged(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.readFlagged()
	kept := history[:0]
	for _, msg := range history {
		if msg.ID != id {
			kept = append(kept, msg)
		}
	}
	if len(kept) == len(history) {
		return nil
	}
	return s.writeFlagged(kept)
}

// SaveRecommendedTimes replaces the stored mapping wholesale
func (s *JSONStore) SaveRecommendedTimes(ctx context.Context, times map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if times == nil {
		times = map[string]string{}
	}
	data, err := json.MarshalIndent(times, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode recommended times: %w", err)
	}
	return os.WriteFile(s.timesPath(), data, 0o644)
}

// RecommendedTimes returns the stored mapping, empty when the document is
// missing or unreadable
func (s *JSONStore) RecommendedTimes(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.timesPath())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read recommended times, treating as empty", zap.Error(err))
		}
		return map[string]string{}, nil
	}

	times := map[string]string{}
	if err := json.Unmarshal(data, &times); err != nil {
		s.logger.Warn("Corrupt recommended-times document, treating as empty", zap.Error(err))
		return map[string]string{}, nil
	}
	return times, nil
}
