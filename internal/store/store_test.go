package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/chat-sentry/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func flaggedMsg(id, contact, text string) core.FlaggedMessage {
	return core.FlaggedMessage{
		ID:        id,
		Contact:   contact,
		Text:      text,
		Timestamp: time.Date(2024, time.June, 5, 13, 0, 0, 0, time.UTC),
	}
}

// storeUnderTest runs the same semantic checks against every backend
type storeUnderTest struct {
	name string
	open func(t *testing.T) core.FlagStore
}

func backends() []storeUnderTest {
	return []storeUnderTest{
		{"memory", func(t *testing.T) core.FlagStore {
			return NewMemoryStore()
		}},
		{"json", func(t *testing.T) core.FlagStore {
			s, err := NewJSONStore(t.TempDir(), zap.NewNop())
			require.NoError(t, err)
			return s
		}},
		{"sqlite", func(t *testing.T) core.FlagStore {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		}},
	}
}

func TestMergeFlagged_AppendsAndDeduplicates(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend.name, func(t *testing.T) {
			s := backend.open(t)
			ctx := context.Background()

			history, err := s.MergeFlagged(ctx, []core.FlaggedMessage{
				flaggedMsg("a", "Jane Doe", "let's meet up"),
				flaggedMsg("b", "John Doe", "schedule a call"),
			})
			require.NoError(t, err)
			require.Len(t, history, 2)
			assert.Equal(t, "a", history[0].ID)
			assert.Equal(t, "b", history[1].ID)

			// Idempotent re-run: same content under new IDs is rejected
			history, err = s.MergeFlagged(ctx, []core.FlaggedMessage{
				flaggedMsg("c", "Jane Doe", "let's meet up"),
			})
			require.NoError(t, err)
			require.Len(t, history, 2)
			assert.Equal(t, "a", history[0].ID, "original record survives")
		})
	}
}

func TestMergeFlagged_NormalizedDedup(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend.name, func(t *testing.T) {
			s := backend.open(t)
			ctx := context.Background()

			_, err := s.MergeFlagged(ctx, []core.FlaggedMessage{
				flaggedMsg("a", "Jane Doe", "Let's meet up tomorrow"),
			})
			require.NoError(t, err)

			// Case, curly quotes and whitespace variants all collide
			history, err := s.MergeFlagged(ctx, []core.FlaggedMessage{
				flaggedMsg("b", "jane doe", "let’s  MEET UP   tomorrow"),
				flaggedMsg("c", " JANE DOE ", "Let's meet up\ntomorrow"),
			})
			require.NoError(t, err)
			assert.Len(t, history, 1)
		})
	}
}

func TestMergeFlagged_DuplicatesWithinOneBatch(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend.name, func(t *testing.T) {
			s := backend.open(t)

			history, err := s.MergeFlagged(context.Background(), []core.FlaggedMessage{
				flaggedMsg("a", "Jane Doe", "let's meet up"),
				flaggedMsg("b", "Jane Doe", "Let's  meet up"),
			})
			require.NoError(t, err)
			assert.Len(t, history, 1)
		})
	}
}

func TestDeleteFlagged(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend.name, func(t *testing.T) {
			s := backend.open(t)
			ctx := context.Background()

			_, err := s.MergeFlagged(ctx, []core.FlaggedMessage{
				flaggedMsg("a", "Jane Doe", "let's meet up"),
				flaggedMsg("b", "John Doe", "schedule a call"),
			})
			require.NoError(t, err)

			require.NoError(t, s.DeleteFlagged(ctx, "a"))

			history, err := s.ListFlagged(ctx)
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.Equal(t, "b", history[0].ID)

			// Deleting an unknown id is a no-op
			require.NoError(t, s.DeleteFlagged(ctx, "missing"))
			history, err = s.ListFlagged(ctx)
			require.NoError(t, err)
			assert.Len(t, history, 1)
		})
	}
}

func TestRecommendedTimes_WholesaleReplace(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend.name, func(t *testing.T) {
			s := backend.open(t)
			ctx := context.Background()

			times, err := s.RecommendedTimes(ctx)
			require.NoError(t, err)
			assert.Empty(t, times)

			require.NoError(t, s.SaveRecommendedTimes(ctx, map[string]string{
				"Jane Doe": "18:00-20:00",
				"John Doe": "09:00-11:00",
			}))

			require.NoError(t, s.SaveRecommendedTimes(ctx, map[string]string{
				"Jane Doe": "12:00-13:00",
			}))

			times, err = s.RecommendedTimes(ctx)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"Jane Doe": "12:00-13:00"}, times, "save replaces the mapping wholesale")
		})
	}
}

func TestJSONStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewJSONStore(dir, zap.NewNop())
	require.NoError(t, err)
	_, err = s.MergeFlagged(ctx, []core.FlaggedMessage{flaggedMsg("a", "Jane Doe", "let's meet up")})
	require.NoError(t, err)

	reopened, err := NewJSONStore(dir, zap.NewNop())
	require.NoError(t, err)
	history, err := reopened.ListFlagged(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Jane Doe", history[0].Contact)
}

func TestJSONStore_CorruptDocumentDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flagged_messages.json"), []byte("{not json"), 0o644))

	s, err := NewJSONStore(dir, zap.NewNop())
	require.NoError(t, err)

	history, err := s.ListFlagged(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history)

	// The store keeps working after the corrupt read
	history, err = s.MergeFlagged(context.Background(), []core.FlaggedMessage{
		flaggedMsg("a", "Jane Doe", "let's meet up"),
	})
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path, zap.NewNop())
	require.NoError(t, err)
	_, err = s.MergeFlagged(ctx, []core.FlaggedMessage{flaggedMsg("a", "Jane Doe", "let's meet up")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	history, err := reopened.ListFlagged(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "let's meet up", history[0].Text)
	assert.True(t, flaggedMsg("a", "", "").Timestamp.Equal(history[0].Timestamp))
}
