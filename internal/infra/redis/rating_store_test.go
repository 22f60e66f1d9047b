package redis

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/rating"
)

func newTestStore(t *testing.T) (*RatingStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRatingStore(client), mr
}

func TestRatingDefaultStaysOutOfRedis(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	elo, err := store.Rating(ctx, 1, 10, "Alice")
	if err != nil {
		t.Fatalf("rating: %v", err)
	}
	if elo != rating.Default {
		t.Fatalf("expected default rating, got %d", elo)
	}
	if mr.Exists("rating:1") {
		t.Fatalf("default lookup must not persist anything")
	}
}

func TestApplyDeltasWritesBatch(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	err := store.ApplyDeltas(ctx, 1, []domain.RatingUpdate{
		{PlayerID: 10, Name: "Alice", Rating: 1010, Delta: 10},
		{PlayerID: 11, Name: "Bob", Rating: 990, Delta: -10},
	})
	if err != nil {
		t.Fatalf("apply deltas: %v", err)
	}
	if !mr.Exists("rating:1") {
		t.Fatalf("expected guild hash to be written")
	}

	elo, err := store.Rating(ctx, 1, 10, "Alice")
	if err != nil {
		t.Fatalf("rating after save: %v", err)
	}
	if elo != 1010 {
		t.Fatalf("expected saved rating 1010, got %d", elo)
	}

	lb, err := store.Leaderboard(ctx, 1, 20)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb) != 2 || lb[0].Name != "Alice" || lb[0].Rank != 1 || lb[1].Rank != 2 {
		t.Fatalf("unexpected leaderboard %+v", lb)
	}

	player, total, err := store.PlayerRanking(ctx, 1, "Bob")
	if err != nil {
		t.Fatalf("player ranking: %v", err)
	}
	if player.Rank != 2 || total != 2 {
		t.Fatalf("unexpected ranking %+v total %d", player, total)
	}
}

func TestPlayerRankingUnknownName(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if err := store.ApplyDeltas(ctx, 1, []domain.RatingUpdate{{PlayerID: 10, Name: "Alice", Rating: 1010}}); err != nil {
		t.Fatalf("apply deltas: %v", err)
	}
	if _, _, err := store.PlayerRanking(ctx, 1, "Mallory"); !errors.Is(err, domain.ErrPlayerNotRanked) {
		t.Fatalf("expected ErrPlayerNotRanked, got %v", err)
	}
}

func TestLeaderboardEmptyGuild(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Leaderboard(context.Background(), 99, 20); !errors.Is(err, domain.ErrNoLeaderboard) {
		t.Fatalf("expected ErrNoLeaderboard, got %v", err)
	}
}
