// Package match normalizes and fuzzily compares candidate answers against
// the accepted answers of a question.
package match

import (
	"strings"
	"unicode"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Mode is the answer strictness. Each mode widens the normalization of the
// previous one and lowers the similarity threshold.
type Mode int

const (
	// ModeStrict compares the raw string, exact match only.
	ModeStrict Mode = iota
	// ModePermissive lowercases and folds diacritics to base ASCII letters.
	ModePermissive
	// ModeVeryPermissive additionally drops hyphens and punctuation and
	// collapses whitespace runs.
	ModeVeryPermissive
)

const (
	strictThreshold         = 100
	permissiveThreshold     = 97
	veryPermissiveThreshold = 94
)

// ParseMode maps a configuration string to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "strict":
		return ModeStrict, true
	case "permissive":
		return ModePermissive, true
	case "very permissive", "very-permissive":
		return ModeVeryPermissive, true
	}
	return ModeStrict, false
}

func (m Mode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	case ModePermissive:
		return "permissive"
	case ModeVeryPermissive:
		return "very permissive"
	}
	return "unknown"
}

// Threshold is the minimum fuzzy-ratio score for a match under this mode.
func (m Mode) Threshold() int {
	switch m {
	case ModePermissive:
		return permissiveThreshold
	case ModeVeryPermissive:
		return veryPermissiveThreshold
	}
	return strictThreshold
}

// Normalize applies the mode's canonical form to s.
func (m Mode) Normalize(s string) string {
	switch m {
	case ModePermissive:
		return foldDiacritics(strings.ToLower(s))
	case ModeVeryPermissive:
		folded := foldDiacritics(strings.ToLower(strings.ReplaceAll(s, "-", " ")))
		var b strings.Builder
		b.Grow(len(folded))
		for _, r := range folded {
			if r == ' ' || unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
		return strings.Join(strings.Fields(b.String()), " ")
	}
	return s
}

// foldDiacritics strips combining marks after NFD decomposition, mapping
// accented letters to their base ASCII form.
func foldDiacritics(s string) string {
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(chain, s)
	if err != nil {
		return s
	}
	return out
}

// Matcher compares candidate strings against a fixed set of accepted answers.
// Targets are normalized once at construction.
type Matcher struct {
	mode      Mode
	threshold int
	targets   []string
}

func New(mode Mode, answers []string) *Matcher {
	targets := make([]string, 0, len(answers))
	for _, answer := range answers {
		targets = append(targets, mode.Normalize(answer))
	}
	return &Matcher{mode: mode, threshold: mode.Threshold(), targets: targets}
}

// Match reports whether the candidate matches any accepted answer. The
// similarity score is symmetric and comparisons are inclusive (>= threshold).
func (m *Matcher) Match(candidate string) bool {
	normalized := m.mode.Normalize(candidate)
	if normalized == "" {
		return false
	}
	for _, target := range m.targets {
		if fuzzy.Ratio(normalized, target) >= m.threshold {
			return true
		}
	}
	return false
}
