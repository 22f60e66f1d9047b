// Package rating computes pairwise Elo-style rating deltas for the
// participants of a ranked session.
package rating

import "math"

const (
	// K is the Elo adjustment factor for a single pairwise comparison.
	K = 20
	// Default is the rating synthesized for a player on first access.
	Default = 1000

	maxRatingGap = 400
)

// expected is the probability that a player rated ri scores against a player
// rated rj. The gap is capped at 400 on the favourable side.
func expected(ri, rj int) float64 {
	gap := ri - rj
	if gap > maxRatingGap {
		gap = maxRatingGap
	}
	return 1 / (1 + math.Pow(10, -float64(gap)/400))
}

// outcome scores a pairwise comparison by final session score: win, tie, loss.
func outcome(si, sj int) float64 {
	switch {
	case si > sj:
		return 1
	case si == sj:
		return 0.5
	}
	return 0
}

// Deltas computes each participant's rating delta as the sum of pairwise Elo
// adjustments against every other participant. The ratings map is a frozen
// snapshot of pre-session ratings and is never mutated here; computing from
// already-updated ratings mid-pass would corrupt the remaining comparisons.
// A session with fewer than two participants yields zero deltas.
func Deltas(scores map[int64]int, ratings map[int64]int) map[int64]int {
	deltas := make(map[int64]int, len(scores))
	for id := range scores {
		deltas[id] = 0
	}
	if len(scores) < 2 {
		return deltas
	}

	for id, score := range scores {
		sum := 0
		for opponentID, opponentScore := range scores {
			if opponentID == id {
				continue
			}
			w := outcome(score, opponentScore)
			p := expected(ratings[id], ratings[opponentID])
			sum += int(math.Round(K * (w - p)))
		}
		deltas[id] = sum
	}
	return deltas
}
