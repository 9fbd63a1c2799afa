package difficulty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		text string
		want Level
	}{
		{"basic addition", "2 + 3", Simple},
		{"basic multiplication", "6 * 7", Simple},
		{"plain division", "20 / 4", Moderate},
		{"fraction arithmetic", "1/2 + 1/4", Moderate},
		{"percentage", "50% of 200", Moderate},
		{"decimal operation", "2.5 + 1.5", Moderate},
		{"negative numbers", "-3 + 7", Moderate},
		{"solve keyword", "Solve: 2x + 3 = 7", Complex},
		{"find after sentence break", "Read the problem. Find the sum of 2 and 3", Complex},
		{"mid-sentence find is not an instruction", "Sam wants to find how many apples remain from 10 apples", Simple},
		{"algebraic equation", "x^2 - 4 = 0", Complex},
		{"square root", "sqrt(16)", Complex},
		{"square root words", "square root of 25", Complex},
		{"inequality", "3x < 12", Complex},
		{"logarithm", "log(100)", Complex},
		{"empty input", "", Simple},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.text))
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	text := "Solve: 2x + 3 = 7"
	first := ClassifyWithReason(text)
	for i := 0; i < 10; i++ {
		again := ClassifyWithReason(text)
		assert.Equal(t, first, again)
	}
}

func TestClassifyWithReason(t *testing.T) {
	c := ClassifyWithReason("Solve for x: x + 1 = 2")
	assert.Equal(t, Complex, c.Level)
	assert.NotEmpty(t, c.Reason)
	assert.NotEmpty(t, c.MatchedPattern)

	c = ClassifyWithReason("")
	assert.Equal(t, Simple, c.Level)
	assert.Equal(t, "Empty input", c.Reason)
}

func TestClassifyBatch(t *testing.T) {
	levels := ClassifyBatch([]string{"2 + 3", "20 / 4", "x^2 = 9"})
	require.Len(t, levels, 3)
	assert.Equal(t, Simple, levels[0])
	assert.Equal(t, Moderate, levels[1])
	assert.Equal(t, Complex, levels[2])

	assert.Empty(t, ClassifyBatch(nil))
}

func TestMaxDifficulty(t *testing.T) {
	assert.Equal(t, Complex, MaxDifficulty([]string{"2 + 3", "x^2 = 9", "20 / 4"}))
	assert.Equal(t, Moderate, MaxDifficulty([]string{"2 + 3", "20 / 4"}))
	assert.Equal(t, Simple, MaxDifficulty(nil))
}

func TestRequiresVerification(t *testing.T) {
	assert.False(t, RequiresVerification("2 + 3"))
	assert.True(t, RequiresVerification("20 / 4"))
	assert.True(t, RequiresVerification("x^2 = 9"))

	assert.False(t, RequiresSymbolicVerification("20 / 4"))
	assert.True(t, RequiresSymbolicVerification("x^2 = 9"))
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "simple", Simple.String())
	assert.Equal(t, "moderate", Moderate.String())
	assert.Equal(t, "complex", Complex.String())
}
