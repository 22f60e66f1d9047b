// Package hint builds the progressive character-disclosure schedule for an
// answer string.
package hint

import (
	"math/rand"
	"strings"
)

const (
	// blankSpace renders a space: visually empty but distinguishable from a
	// hidden letter.
	blankSpace = "​ ​"
	// maskedRune renders a hidden character as an underlined blank.
	maskedRune = "__​ ​ ​__"
)

type position struct {
	index int
	r     rune
}

// Schedule holds the masked display of one answer and the fixed random order
// in which its characters get revealed. Build one per language per round.
type Schedule struct {
	cells   []string
	pending []position
	cap     int
	shown   int
}

// New masks every character of answer and shuffles the reveal order using rnd.
// maxHints caps the number of disclosure events.
func New(answer string, maxHints int, rnd *rand.Rand) *Schedule {
	runes := []rune(answer)
	cells := make([]string, len(runes))
	pending := make([]position, len(runes))
	for i, r := range runes {
		if r == ' ' {
			cells[i] = blankSpace
		} else {
			cells[i] = maskedRune
		}
		pending[i] = position{index: i, r: r}
	}
	rnd.Shuffle(len(pending), func(i, j int) {
		pending[i], pending[j] = pending[j], pending[i]
	})
	return &Schedule{cells: cells, pending: pending, cap: maxHints}
}

// UnderCap reports whether another disclosure event is still allowed.
func (s *Schedule) UnderCap() bool {
	return s.shown < s.cap
}

// Shown is the number of disclosure events so far.
func (s *Schedule) Shown() int {
	return s.shown
}

// Remaining is the number of positions not yet revealed.
func (s *Schedule) Remaining() int {
	return len(s.pending)
}

// Reveal performs one disclosure event: it uncovers an even share of the
// still-hidden characters, popped from the shuffled order. Spaces are already
// visible and are skipped without revealing a replacement.
func (s *Schedule) Reveal() {
	if !s.UnderCap() {
		return
	}
	count := len(s.pending) / (s.cap - s.shown)
	for i := 0; i < count && len(s.pending) > 0; i++ {
		last := len(s.pending) - 1
		p := s.pending[last]
		s.pending = s.pending[:last]

		if p.r == ' ' {
			continue
		}
		s.cells[p.index] = "__" + escapeRune(p.r) + "__"
	}
	s.shown++
}

// escapeRune protects characters that carry markup meaning in the rendered
// display.
func escapeRune(r rune) string {
	if r == '(' {
		return `\(`
	}
	return string(r)
}

// Display renders the current masked form, cells separated by spaces.
func (s *Schedule) Display() string {
	return strings.Join(s.cells, " ")
}

// Revealed counts the positions uncovered so far, spaces excluded.
func (s *Schedule) Revealed() int {
	revealed := 0
	for _, cell := range s.cells {
		if cell != blankSpace && cell != maskedRune {
			revealed++
		}
	}
	return revealed
}
