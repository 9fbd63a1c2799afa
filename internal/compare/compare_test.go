package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAreAnswersEquivalent(t *testing.T) {
	cases := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{"identical integers", "5", "5", true},
		{"fraction vs decimal", "1/2", "0.5", true},
		{"percentage vs decimal", "50%", "0.5", true},
		{"trailing zeros", "5.00", "5", true},
		{"thousands separator", "1,000", "1000", true},
		{"currency prefix", "$5", "5", true},
		{"whitespace and case", "  X = 4 ", "x = 4", true},
		{"plain mismatch", "4", "5", false},
		{"sign mismatch", "5", "-5", false},
		{"mixed number", "1 1/2", "1.5", true},
		{"equivalent fractions", "2/4", "1/2", true},
		{"percent word", "50 percent", "1/2", true},
		{"non numeric equal", "yes", "YES", true},
		{"non numeric different", "yes", "no", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AreAnswersEquivalent(tc.a, tc.b))
			assert.Equal(t, tc.want, AreAnswersEquivalent(tc.b, tc.a), "comparison must be symmetric")
		})
	}
}

func TestAreAnswersEquivalentTolerance(t *testing.T) {
	assert.False(t, AreAnswersEquivalent("3.0", "3.1", 0.01))
	assert.True(t, AreAnswersEquivalent("3.0", "3.1", 0.2))

	// Large magnitudes get a relative allowance.
	assert.True(t, AreAnswersEquivalent("1000000", "1000010"))
	assert.False(t, AreAnswersEquivalent("10", "10.1"))
}

func TestCompareAnswersMethod(t *testing.T) {
	result := CompareAnswers("1/2", "0.5")
	require.True(t, result.Matched)
	assert.Equal(t, MethodFraction, result.Method)

	result = CompareAnswers("50%", "0.5")
	require.True(t, result.Matched)
	assert.Equal(t, MethodPercentage, result.Method)

	result = CompareAnswers("5.00", "5")
	require.True(t, result.Matched)
	assert.Equal(t, MethodExact, result.Method)

	result = CompareAnswers("0.25", "0.250")
	require.True(t, result.Matched)
	assert.Equal(t, MethodExact, result.Method)

	result = CompareAnswers("foo", "bar")
	require.False(t, result.Matched)
	assert.Equal(t, MethodNone, result.Method)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "5", Normalize(" $5.00 "))
	assert.Equal(t, "1000", Normalize("1,000"))
	assert.Equal(t, "x = 4", Normalize("  X = 4 "))
	assert.Equal(t, "", Normalize("   "))
}

func TestParseFraction(t *testing.T) {
	f, ok := ParseFraction("3/4")
	require.True(t, ok)
	assert.Equal(t, int64(3), f.Numerator)
	assert.Equal(t, int64(4), f.Denominator)

	f, ok = ParseFraction("1 1/2")
	require.True(t, ok)
	assert.Equal(t, int64(3), f.Numerator)
	assert.Equal(t, int64(2), f.Denominator)

	f, ok = ParseFraction("-1 1/2")
	require.True(t, ok)
	assert.Equal(t, int64(-3), f.Numerator)
	assert.Equal(t, int64(2), f.Denominator)

	_, ok = ParseFraction("1/0")
	assert.False(t, ok)

	_, ok = ParseFraction("not a fraction")
	assert.False(t, ok)
}

func TestParsePercentage(t *testing.T) {
	v, ok := ParsePercentage("50%")
	require.True(t, ok)
	assert.InDelta(t, 0.5, v, 1e-12)

	v, ok = ParsePercentage("12.5 percent")
	require.True(t, ok)
	assert.InDelta(t, 0.125, v, 1e-12)

	_, ok = ParsePercentage("50")
	assert.False(t, ok)
}

func TestFormatAnswer(t *testing.T) {
	assert.Equal(t, "1/2", FormatAnswer("0.5"))
	assert.Equal(t, "3/4", FormatAnswer("0.75"))
	assert.Equal(t, "5", FormatAnswer("5"))
	assert.Equal(t, "-1/4", FormatAnswer("-0.25"))
	assert.Equal(t, "1 1/2", FormatAnswer("1.5"))
	assert.Equal(t, "0.123", FormatAnswer("0.123"))
}
