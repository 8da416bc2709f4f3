package keywords

import (
	"strings"
	"sync"
	"time"

	"github.com/mikey/chat-sentry/internal/core"
	"go.uber.org/zap"
)

// Set holds the keywords driving the flagging pre-filter. Keywords carry a
// numeric identifier unique within the set and can be toggled off without
// deleting them.
type Set struct {
	mu     sync.RWMutex
	nextID int
	items  []core.Keyword
	logger *zap.Logger
}

// NewSet creates a keyword set seeded with the given active keywords
func NewSet(seed []string, logger *zap.Logger) *Set {
	s := &Set{nextID: 1, logger: logger}
	for _, text := range seed {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		s.items = append(s.items, core.Keyword{
			ID:        s.nextID,
			Text:      text,
			Active:    true,
			CreatedAt: time.Now(),
		})
		s.nextID++
	}

	if len(s.items) > 0 && logger != nil {
		logger.Info("Initialized keyword set", zap.Int("count", len(s.items)))
	}
	return s
}

// Add appends a new active keyword and returns it
func (s *Set) Add(text string) core.Keyword {
	s.mu.Lock()
	defer s.mu.Unlock()

	kw := core.Keyword{
		ID:        s.nextID,
		Text:      strings.TrimSpace(text),
		Active:    true,
		CreatedAt: time.Now(),
	}
	s.nextID++
	s.items = append(s.items, kw)
	return kw
}

// SetActive toggles the keyword with the given identifier. It reports
// whether the keyword was found.
func (s *Set) SetActive(id int, active bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Active = active
			return true
		}
	}
	return false
}

// List returns a copy of all keywords, active or not
func (s *Set) List() []core.Keyword {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Keyword, len(s.items))
	copy(out, s.items)
	return out
}

// Active returns the texts of all active keywords
func (s *Set) Active() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, kw := range s.items {
		if kw.Active {
			out = append(out, kw.Text)
		}
	}
	return out
}

// Matches reports whether any active keyword appears as a case-insensitive
// substring of the given text
func (s *Set) Matches(text string) bool {
	lowered := strings.ToLower(text)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, kw := range s.items {
		if kw.Active && strings.Contains(lowered, strings.ToLower(kw.Text)) {
			return true
		}
	}
	return false
}
