package openai

import (
	"testing"

	"github.com/mikey/chat-sentry/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseFlagResponse(t *testing.T) {
	got, err := parseFlagResponse(`{"flagged":[{"contact":"Jane Doe","text":"let's meet up"}]}`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Jane Doe", got[0].Contact)
	assert.Equal(t, "let's meet up", got[0].Text)
}

func TestParseFlagResponse_EmptyList(t *testing.T) {
	got, err := parseFlagResponse(`{"flagged":[]}`)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseFlagResponse_EmbeddedJSON(t *testing.T) {
	// Models sometimes wrap the object in prose despite instructions
	got, err := parseFlagResponse("Here is the result:\n{\"flagged\":[{\"contact\":\"Jane Doe\",\"text\":\"meet up?\"}]}\nDone.")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "meet up?", got[0].Text)
}

func TestParseFlagResponse_Malformed(t *testing.T) {
	tests := []string{
		"",
		"no json here",
		"{broken",
	}
	for _, input := range tests {
		_, err := parseFlagResponse(input)
		assert.ErrorIs(t, err, core.ErrClassification, "input %q", input)
	}
}

func TestFormatBatch_TruncatesText(t *testing.T) {
	c := NewClassifier("key", "gpt-4", 100, 0.1, 0.9, 10, zap.NewNop())

	out := c.formatBatch([]core.ScrapedMessage{
		{ID: "m1", Contact: "Jane Doe", Text: "0123456789 this tail is dropped"},
	})

	assert.Contains(t, out, "[m1] Jane Doe: 0123456789\n")
	assert.NotContains(t, out, "dropped")
}
