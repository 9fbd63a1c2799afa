// Package difficulty classifies math problem text by verification burden.
// Classification is rule based and deterministic: rules are evaluated from
// most specific (complex) to least, first match wins, simple is the default.
package difficulty

import (
	"regexp"
	"strings"
)

// Level is the verification burden of a problem, not its pedagogical
// difficulty.
type Level int

const (
	Simple Level = iota
	Moderate
	Complex
)

// String implements fmt.Stringer.
func (l Level) String() string {
	switch l {
	case Complex:
		return "complex"
	case Moderate:
		return "moderate"
	default:
		return "simple"
	}
}

// Classification carries the level together with the rule that produced it.
type Classification struct {
	Level          Level  `json:"level"`
	Reason         string `json:"reason"`
	MatchedPattern string `json:"matched_pattern,omitempty"`
}

type rule struct {
	name  string
	match func(string) bool
}

func re(pattern string) func(string) bool {
	r := regexp.MustCompile(pattern)
	return r.MatchString
}

var (
	decimalNumberRe = regexp.MustCompile(`\d+\.\d+`)
	anyOperatorRe   = regexp.MustCompile(`[+*/×÷=]|\d\s*-\s*\d`)
	negativeNumRe   = regexp.MustCompile(`(?:^|[\s(=+*/×÷])-\d`)
	multiStepRe     = regexp.MustCompile(`[+*/×÷]|\d\s*-\s*-?\d`)
)

// complexRules trigger the symbolic-oracle tier. Order matters only for the
// reported pattern name, not for the resulting level.
var complexRules = []rule{
	// Anchored so only instruction-position keywords count. A word problem
	// mentioning "find" mid-sentence is not an equation-solving task.
	{"solve_or_find_keyword", re(`(?i)(?:^|[.!?;:]\s*)(solve|find)\b`)},
	{"algebraic_variable", re(`(?i)(?:\d|\b)[a-z]\s*[+*/^=<>-]|[+*/^=<>-]\s*\d*[a-z](?:\d|\b)`)},
	{"exponent", re(`(?i)\^|\b(squared|cubed)\b`)},
	{"square_root", re(`(?i)sqrt\s*\(|square root of|√`)},
	{"inequality", re(`(?i)[<>≤≥]|\b(greater than|less than)\b`)},
	{"absolute_value", re(`\|[^|]+\|`)},
	{"log_or_trig", re(`(?i)\b(log|ln|sin|cos|tan)\b`)},
	{"factorial", re(`[0-9)]\s*!`)},
}

// moderateRules trigger chain-of-thought verification.
var moderateRules = []rule{
	{"fraction", re(`\d+\s*/\s*\d+|\\frac`)},
	{"percentage", re(`(?i)%|\bpercent`)},
	{"decimal_operation", func(s string) bool {
		return decimalNumberRe.MatchString(s) && anyOperatorRe.MatchString(s)
	}},
	{"negative_operation", func(s string) bool {
		return negativeNumRe.MatchString(s) && anyOperatorRe.MatchString(s)
	}},
	// Plain division is moderate on purpose: remainder/decimal ambiguity
	// makes it harder to verify mentally than +, - or *.
	{"division", re(`[/÷]`)},
	{"multi_step", func(s string) bool {
		return len(multiStepRe.FindAllString(s, -1)) > 1
	}},
	{"ratio", re(`\d\s*:\s*\d`)},
}

// Classify returns the difficulty level for the given problem text.
func Classify(text string) Level {
	return ClassifyWithReason(text).Level
}

// ClassifyWithReason classifies and reports which rule fired.
func ClassifyWithReason(text string) Classification {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Classification{Level: Simple, Reason: "Empty input"}
	}

	for _, r := range complexRules {
		if r.match(trimmed) {
			return Classification{Level: Complex, Reason: "matched complex rule", MatchedPattern: r.name}
		}
	}
	for _, r := range moderateRules {
		if r.match(trimmed) {
			return Classification{Level: Moderate, Reason: "matched moderate rule", MatchedPattern: r.name}
		}
	}
	return Classification{Level: Simple, Reason: "single-operator whole-number arithmetic"}
}

// ClassifyBatch classifies each input, preserving order.
func ClassifyBatch(texts []string) []Level {
	out := make([]Level, 0, len(texts))
	for _, t := range texts {
		out = append(out, Classify(t))
	}
	return out
}

// MaxDifficulty returns the highest level present. An empty input yields
// Simple.
func MaxDifficulty(texts []string) Level {
	max := Simple
	for _, t := range texts {
		if l := Classify(t); l > max {
			max = l
		}
	}
	return max
}

// RequiresVerification reports whether the problem warrants any independent
// check (moderate or complex).
func RequiresVerification(text string) bool {
	return Classify(text) >= Moderate
}

// RequiresSymbolicVerification reports whether the problem is worth the
// symbolic oracle (complex only).
func RequiresSymbolicVerification(text string) bool {
	return Classify(text) == Complex
}
