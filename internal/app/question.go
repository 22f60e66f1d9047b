package app

import (
	"math/rand"
	"time"

	"trivia-quiz-service/internal/catalogue"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/hint"
	"trivia-quiz-service/internal/match"
)

// Question is one round: the answer set restricted to the session's
// languages, its hint schedules, and the round-local cursors. Created when
// the round starts, discarded when it ends.
type Question struct {
	record  catalogue.Record
	image   string
	answers map[string]string
	matcher *match.Matcher
	hints   map[string]*hint.Schedule

	maxHints         int
	timeBetweenHints time.Duration
	allowed          map[int64]struct{}

	hintsShown int
	askedAt    time.Time
	cursor     domain.Cursor
	lastHintID string
}

func newQuestion(record catalogue.Record, settings Settings, allowed map[int64]struct{}, rnd *rand.Rand) *Question {
	answers := record.LocalizedNames(settings.Langs)

	targets := make([]string, 0, len(answers))
	hints := make(map[string]*hint.Schedule, len(answers))
	for lang, answer := range answers {
		targets = append(targets, answer)
		hints[lang] = hint.New(answer, settings.MaxHints, rnd)
	}

	return &Question{
		record:           record,
		image:            record.Image(rnd),
		answers:          answers,
		matcher:          match.New(settings.Mode, targets),
		hints:            hints,
		maxHints:         settings.MaxHints,
		timeBetweenHints: settings.TimeBetweenHints,
		allowed:          allowed,
	}
}

// Image is the variant chosen for this round.
func (q *Question) Image() string { return q.image }

// Answers is the per-language answer set shown once the round resolves.
func (q *Question) Answers() map[string]string { return q.answers }

// start brackets the round: only messages after cursor are candidates, and
// hint timing counts from the cursor's timestamp.
func (q *Question) start(cursor domain.Cursor) {
	q.cursor = cursor
	q.askedAt = cursor.At
}

// IsWinner reports whether a message is a correct answer from an allowed
// player. A nil allowed set admits everyone.
func (q *Question) IsWinner(message domain.ChatMessage) bool {
	if q.allowed != nil {
		if _, ok := q.allowed[message.AuthorID]; !ok {
			return false
		}
	}
	return q.matcher.Match(message.Content)
}

// hintDue reports whether the next disclosure is eligible: elapsed time since
// the question was asked reaching (shown+1) * timeBetweenHints.
func (q *Question) hintDue(now time.Time) bool {
	return now.Sub(q.askedAt) >= time.Duration(q.hintsShown+1)*q.timeBetweenHints
}

// underCap reports whether another hint may still be disclosed; once the cap
// is reached the round times out instead.
func (q *Question) underCap() bool {
	return q.hintsShown < q.maxHints
}

// revealHints performs one disclosure event across all languages and returns
// the updated masked displays.
func (q *Question) revealHints() map[string]string {
	displays := make(map[string]string, len(q.hints))
	for lang, schedule := range q.hints {
		schedule.Reveal()
		displays[lang] = schedule.Display()
	}
	q.hintsShown++
	return displays
}
