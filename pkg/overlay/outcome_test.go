package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeOutcome(t *testing.T) {
	t.Run("Tie", func(t *testing.T) {
		outcome := ComputeOutcome(snapshot("p1", "terminated", 4, 4, 1))
		assert.Equal(t, []string{"A", "B"}, outcome.Winners)
		assert.Equal(t, 4, outcome.TopVotes)
		assert.Equal(t, 9, outcome.TotalVotes)
		assert.False(t, outcome.NoVotes)
		assert.Equal(t, "A, B", outcome.Label())
	})

	t.Run("SingleWinner", func(t *testing.T) {
		outcome := ComputeOutcome(snapshot("p1", "terminated", 5, 2))
		assert.Equal(t, []string{"A"}, outcome.Winners)
		assert.Equal(t, "A", outcome.Label())
	})

	t.Run("NoVotes", func(t *testing.T) {
		outcome := ComputeOutcome(snapshot("p1", "terminated", 0, 0))
		assert.True(t, outcome.NoVotes)
		assert.Empty(t, outcome.Winners)
	})

	t.Run("NoChoices", func(t *testing.T) {
		outcome := ComputeOutcome(snapshot("p1", "terminated"))
		assert.True(t, outcome.NoVotes)
	})
}
