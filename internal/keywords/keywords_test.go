package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewSet_SeedsActiveKeywords(t *testing.T) {
	set := NewSet([]string{"meet up", " schedule ", "", "appointment"}, zap.NewNop())

	listed := set.List()
	require.Len(t, listed, 3, "blank seeds are dropped")
	assert.Equal(t, "schedule", listed[1].Text, "seeds are trimmed")
	for _, kw := range listed {
		assert.True(t, kw.Active)
		assert.NotZero(t, kw.ID)
	}
}

func TestSet_AddAssignsUniqueIDs(t *testing.T) {
	set := NewSet([]string{"meet up"}, zap.NewNop())

	a := set.Add("lunch")
	b := set.Add("dinner")

	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, set.List(), 3)
}

func TestSet_Matches(t *testing.T) {
	set := NewSet([]string{"meet up"}, zap.NewNop())

	assert.True(t, set.Matches("want to MEET UP later?"))
	assert.True(t, set.Matches("we could meet up."))
	assert.False(t, set.Matches("nothing relevant here"))
	assert.False(t, set.Matches(""))
}

func TestSet_SetActiveExcludesFromMatching(t *testing.T) {
	set := NewSet([]string{"meet up"}, zap.NewNop())
	id := set.List()[0].ID

	require.True(t, set.SetActive(id, false))
	assert.False(t, set.Matches("let's meet up"))
	assert.Empty(t, set.Active())

	require.True(t, set.SetActive(id, true))
	assert.True(t, set.Matches("let's meet up"))
}

func TestSet_SetActiveUnknownID(t *testing.T) {
	set := NewSet([]string{"meet up"}, zap.NewNop())
	assert.False(t, set.SetActive(999, false))
}
