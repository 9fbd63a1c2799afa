// Package compare decides whether two differently formatted answers mean the
// same thing. It is a pure library: no providers, no logging, no state.
package compare

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Method identifies which comparison path produced a match.
type Method string

const (
	MethodExact      Method = "exact"
	MethodNumeric    Method = "numeric"
	MethodFraction   Method = "fraction"
	MethodPercentage Method = "percentage"
	MethodNone       Method = "none"
)

// DefaultAbsoluteTolerance is the floor tolerance for numeric comparison.
const DefaultAbsoluteTolerance = 1e-9

// relativeToleranceFactor scales the tolerance with the magnitude of the
// operands. With the default absolute tolerance the relative term only
// dominates once max(|a|,|b|) exceeds roughly 1000, which keeps small
// numbers strict while letting million-scale answers absorb rounding noise.
const relativeToleranceFactor = 1e-5

// Result describes the outcome of a single answer comparison.
type Result struct {
	Matched     bool   `json:"matched"`
	Method      Method `json:"method"`
	NormalizedA string `json:"normalized_a"`
	NormalizedB string `json:"normalized_b"`
}

// Fraction is a parsed numerator/denominator pair.
type Fraction struct {
	Numerator   int64 `json:"numerator"`
	Denominator int64 `json:"denominator"`
}

var (
	thousandsRe    = regexp.MustCompile(`(\d),(\d{3})`)
	currencyRe     = regexp.MustCompile(`[$€£₹]`)
	unitWordsRe    = regexp.MustCompile(`\b(dollars?|cents?|units?|meters?|metres?|miles?|feet|foot|inch(?:es)?|degrees?)\b`)
	trailingZeroRe = regexp.MustCompile(`(\.\d*?)0+$`)
	mixedRe        = regexp.MustCompile(`^(-?)(\d+)\s+(\d+)\s*/\s*(\d+)$`)
	simpleFracRe   = regexp.MustCompile(`^(-?\d+)\s*/\s*(-?\d+)$`)
	percentRe      = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*(?:%|percent)$`)
)

// Normalize applies the shared normalization pipeline: trim, lowercase,
// leading '=' removal, thousands separators, currency symbols, unit words
// and trailing decimal zeros.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "=")
	s = strings.TrimSpace(s)
	for thousandsRe.MatchString(s) {
		s = thousandsRe.ReplaceAllString(s, "$1$2")
	}
	s = currencyRe.ReplaceAllString(s, "")
	s = unitWordsRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if strings.Contains(s, ".") {
		s = trailingZeroRe.ReplaceAllString(s, "$1")
		s = strings.TrimSuffix(s, ".")
	}
	return strings.TrimSpace(s)
}

// CompareAnswers compares two answer strings using the default tolerance.
func CompareAnswers(a, b string) Result {
	return CompareAnswersTolerance(a, b, DefaultAbsoluteTolerance)
}

// CompareAnswersTolerance compares two answer strings. Comparison methods are
// attempted in a fixed order (exact, numeric, fraction, percentage) and the
// first success wins. Empty inputs never match.
func CompareAnswersTolerance(a, b string, tolerance float64) Result {
	na, nb := Normalize(a), Normalize(b)
	out := Result{Method: MethodNone, NormalizedA: na, NormalizedB: nb}

	if na == "" || nb == "" {
		return out
	}

	if na == nb {
		out.Matched = true
		out.Method = MethodExact
		return out
	}

	va, errA := strconv.ParseFloat(na, 64)
	vb, errB := strconv.ParseFloat(nb, 64)
	if errA == nil && errB == nil {
		if numericallyEqual(va, vb, tolerance) {
			out.Matched = true
			out.Method = MethodNumeric
		}
		return out
	}

	if matched, ok := compareFractions(na, nb, tolerance); ok {
		out.Matched = matched
		out.Method = MethodFraction
		return out
	}

	if matched, ok := comparePercentages(na, nb, tolerance); ok {
		out.Matched = matched
		out.Method = MethodPercentage
		return out
	}

	return out
}

// AreAnswersEquivalent is a boolean convenience wrapper over CompareAnswers.
func AreAnswersEquivalent(a, b string, tolerance ...float64) bool {
	tol := DefaultAbsoluteTolerance
	if len(tolerance) > 0 {
		tol = tolerance[0]
	}
	return CompareAnswersTolerance(a, b, tol).Matched
}

// numericallyEqual applies sign-strict tolerance comparison. The effective
// tolerance is the larger of the caller's absolute tolerance and a relative
// slack proportional to the operand magnitude.
func numericallyEqual(a, b, tolerance float64) bool {
	if tolerance <= 0 {
		tolerance = DefaultAbsoluteTolerance
	}
	if (a < 0) != (b < 0) && a != 0 && b != 0 {
		return false
	}
	magnitude := math.Max(math.Abs(a), math.Abs(b))
	tol := math.Max(tolerance, relativeToleranceFactor*magnitude)
	return math.Abs(a-b) <= tol
}

// ParseFraction parses "a/b" and mixed-number forms like "1 1/2" (which
// becomes 3/2). A zero denominator is invalid.
func ParseFraction(s string) (Fraction, bool) {
	s = strings.TrimSpace(s)
	if m := mixedRe.FindStringSubmatch(s); m != nil {
		whole, _ := strconv.ParseInt(m[2], 10, 64)
		num, _ := strconv.ParseInt(m[3], 10, 64)
		den, _ := strconv.ParseInt(m[4], 10, 64)
		if den == 0 {
			return Fraction{}, false
		}
		total := whole*den + num
		if m[1] == "-" {
			total = -total
		}
		return Fraction{Numerator: total, Denominator: den}, true
	}
	if m := simpleFracRe.FindStringSubmatch(s); m != nil {
		num, _ := strconv.ParseInt(m[1], 10, 64)
		den, _ := strconv.ParseInt(m[2], 10, 64)
		if den == 0 {
			return Fraction{}, false
		}
		return Fraction{Numerator: num, Denominator: den}, true
	}
	return Fraction{}, false
}

// ParsePercentage parses "50%" or "50 percent" into its decimal value (0.5).
func ParsePercentage(s string) (float64, bool) {
	m := percentRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v / 100, true
}

// ParseNumeric parses a normalized answer into a float, falling back to
// fraction and percentage decimalization when plain float parsing fails.
func ParseNumeric(s string) (float64, bool) {
	s = Normalize(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	if f, ok := ParseFraction(s); ok {
		return float64(f.Numerator) / float64(f.Denominator), true
	}
	if v, ok := ParsePercentage(s); ok {
		return v, true
	}
	return 0, false
}

// compareFractions handles the fraction comparison path. It applies when at
// least one side is a fraction and the other side is a fraction or a plain
// number. Two fractions compare by cross-multiplication, mixed forms by
// decimal value within tolerance.
func compareFractions(a, b string, tolerance float64) (matched, applicable bool) {
	fa, aFrac := ParseFraction(a)
	fb, bFrac := ParseFraction(b)
	if !aFrac && !bFrac {
		// Reject "5/0"-style inputs outright: they look like fractions but
		// never match anything.
		if simpleFracRe.MatchString(a) || simpleFracRe.MatchString(b) || mixedRe.MatchString(a) || mixedRe.MatchString(b) {
			return false, true
		}
		return false, false
	}
	if aFrac && bFrac {
		return fa.Numerator*fb.Denominator == fb.Numerator*fa.Denominator, true
	}
	var fracVal float64
	var otherRaw string
	if aFrac {
		fracVal = float64(fa.Numerator) / float64(fa.Denominator)
		otherRaw = b
	} else {
		fracVal = float64(fb.Numerator) / float64(fb.Denominator)
		otherRaw = a
	}
	other, err := strconv.ParseFloat(otherRaw, 64)
	if err != nil {
		return false, false
	}
	return numericallyEqual(fracVal, other, tolerance), true
}

// comparePercentages handles the percentage path. Applies when at least one
// side carries a % sign or the word "percent"; both sides are decimalized
// first so percent-vs-fraction and percent-vs-percent also work.
func comparePercentages(a, b string, tolerance float64) (matched, applicable bool) {
	_, aPct := ParsePercentage(a)
	_, bPct := ParsePercentage(b)
	if !aPct && !bPct {
		return false, false
	}
	va, okA := ParseNumeric(a)
	vb, okB := ParseNumeric(b)
	if !okA || !okB {
		return false, true
	}
	return numericallyEqual(va, vb, tolerance), true
}

// knownFractions are the denominators FormatAnswer is willing to render.
var knownFractions = []Fraction{
	{1, 2},
	{1, 4}, {3, 4},
	{1, 3}, {2, 3},
	{1, 5}, {2, 5}, {3, 5}, {4, 5},
	{1, 8}, {3, 8}, {5, 8}, {7, 8},
}

// FormatAnswer renders a decimal as a simplified common fraction when it is
// close to one of the well-known fractions; otherwise it returns the input
// unchanged.
func FormatAnswer(s string) string {
	v, err := strconv.ParseFloat(Normalize(s), 64)
	if err != nil {
		return s
	}
	neg := v < 0
	v = math.Abs(v)
	whole := math.Floor(v)
	frac := v - whole
	if frac < 1e-9 {
		return s
	}
	for _, f := range knownFractions {
		if math.Abs(frac-float64(f.Numerator)/float64(f.Denominator)) <= 1e-4 {
			sign := ""
			if neg {
				sign = "-"
			}
			if whole == 0 {
				return fmt.Sprintf("%s%d/%d", sign, f.Numerator, f.Denominator)
			}
			return fmt.Sprintf("%s%d %d/%d", sign, int64(whole), f.Numerator, f.Denominator)
		}
	}
	return s
}
