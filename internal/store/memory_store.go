package store

import (
	"context"
	"sync"

	"github.com/mikey/chat-sentry/internal/core"
)

// MemoryStore is an in-memory implementation of the FlagStore interface
type MemoryStore struct {
	mu       sync.Mutex
	messages []core.FlaggedMessage
	times    map[string]string
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{times: map[string]string{}}
}

// MergeFlagged appends incoming records whose normalized key is absent
func (s *MemoryStore) MergeFlagged(ctx context.Context, messages []core.FlaggedMessage) ([]core.FlaggedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(s.messages))
	for _, msg := range s.messages {
		seen[core.DedupKey(msg.Contact, msg.Text)] = struct{}{}
	}
	for _, msg := range messages {
		key := core.DedupKey(msg.Contact, msg.Text)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		s.messages = append(s.messages, msg)
	}

	out := make([]core.FlaggedMessage, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

// ListFlagged returns the full current history
func (s *MemoryStore) ListFlagged(ctx context.Context) ([]core.FlaggedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.FlaggedMessage, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

// DeleteFlagged removes the record with the given identifier
func (s *MemoryStore) DeleteFlagged(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.messages[:0]
	for _, msg := range s.messages {
		if msg.ID != id {
			kept = append(kept, msg)
		}
	}
	s.messages = kept
	return nil
}

// SaveRecommendedTimes replaces the stored mapping wholesale
func (s *MemoryStore) SaveRecommendedTimes(ctx context.Context, times map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.times = make(map[string]string, len(times))
	for contact, window := range times {
		s.times[contact] = window
	}
	return nil
}

// RecommendedTimes returns the stored mapping
func (s *MemoryStore) RecommendedTimes(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.times))
	for contact, window := range s.times {
		out[contact] = window
	}
	return out, nil
}
