package rating

import "testing"

func TestEqualRatingsWinnerTakesTen(t *testing.T) {
	scores := map[int64]int{1: 3, 2: 1}
	ratings := map[int64]int{1: 1000, 2: 1000}

	deltas := Deltas(scores, ratings)

	// P = 0.5, W = 1 for the winner: round(20 * 0.5) = 10.
	if deltas[1] != 10 {
		t.Fatalf("expected winner delta 10, got %d", deltas[1])
	}
	if deltas[2] != -10 {
		t.Fatalf("expected loser delta -10, got %d", deltas[2])
	}
}

func TestPairwiseAntisymmetryAtEqualRating(t *testing.T) {
	scores := map[int64]int{1: 5, 2: 0}
	ratings := map[int64]int{1: 1200, 2: 1200}

	deltas := Deltas(scores, ratings)
	if deltas[1] != -deltas[2] {
		t.Fatalf("expected antisymmetric deltas, got %d and %d", deltas[1], deltas[2])
	}
}

func TestTieYieldsZeroAtEqualRating(t *testing.T) {
	scores := map[int64]int{1: 2, 2: 2}
	ratings := map[int64]int{1: 1000, 2: 1000}

	deltas := Deltas(scores, ratings)
	if deltas[1] != 0 || deltas[2] != 0 {
		t.Fatalf("expected zero deltas on a tie, got %v", deltas)
	}
}

func TestSingleParticipantGuard(t *testing.T) {
	deltas := Deltas(map[int64]int{1: 4}, map[int64]int{1: 1000})

	if len(deltas) != 1 || deltas[1] != 0 {
		t.Fatalf("expected zero delta for a lone participant, got %v", deltas)
	}
}

func TestRatingGapIsCapped(t *testing.T) {
	// A 800-point favourite must be treated as a 400-point favourite.
	capped := expected(1400, 1000)
	huge := expected(1800, 1000)
	if capped != huge {
		t.Fatalf("expected capped gap, got %f and %f", capped, huge)
	}
}

func TestUnderdogWinPaysMoreThanFavouriteWin(t *testing.T) {
	scores := map[int64]int{1: 3, 2: 1}

	underdog := Deltas(scores, map[int64]int{1: 900, 2: 1100})
	favourite := Deltas(scores, map[int64]int{1: 1100, 2: 900})

	if underdog[1] <= favourite[1] {
		t.Fatalf("expected underdog win to pay more: %d vs %d", underdog[1], favourite[1])
	}
}

func TestDeltasUseFrozenSnapshot(t *testing.T) {
	scores := map[int64]int{1: 3, 2: 2, 3: 1}
	ratings := map[int64]int{1: 1000, 2: 1000, 3: 1000}

	Deltas(scores, ratings)

	for id, r := range ratings {
		if r != 1000 {
			t.Fatalf("snapshot mutated for player %d: %d", id, r)
		}
	}
}
