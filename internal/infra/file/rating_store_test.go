package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/rating"
)

func TestRatingSurvivesReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "leaderboard.json")

	store, err := NewRatingStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if elo, _ := store.Rating(ctx, 1, 10, "Alice"); elo != rating.Default {
		t.Fatalf("expected default rating, got %d", elo)
	}
	// Default lookups alone must not create the file.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file before a save, stat err=%v", err)
	}

	err = store.ApplyDeltas(ctx, 1, []domain.RatingUpdate{
		{PlayerID: 10, Name: "Alice", Rating: 1010, Delta: 10},
		{PlayerID: 11, Name: "Bob", Rating: 990, Delta: -10},
	})
	if err != nil {
		t.Fatalf("apply deltas: %v", err)
	}

	reloaded, err := NewRatingStore(path)
	if err != nil {
		t.Fatalf("reload store: %v", err)
	}
	if elo, _ := reloaded.Rating(ctx, 1, 10, "Alice"); elo != 1010 {
		t.Fatalf("expected persisted rating 1010, got %d", elo)
	}

	lb, err := reloaded.Leaderboard(ctx, 1, 20)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb) != 2 || lb[0].Name != "Alice" || lb[0].Rank != 1 {
		t.Fatalf("unexpected leaderboard %+v", lb)
	}
}

func TestFileKeysAreStrings(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "leaderboard.json")

	store, err := NewRatingStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	err = store.ApplyDeltas(ctx, 42, []domain.RatingUpdate{{PlayerID: 7, Name: "Alice", Rating: 1005}})
	if err != nil {
		t.Fatalf("apply deltas: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var onDisk map[string]map[string]struct {
		Name string `json:"name"`
		Elo  int    `json:"elo"`
	}
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("parse file: %v", err)
	}
	record, ok := onDisk["42"]["7"]
	if !ok {
		t.Fatalf("expected string-keyed nesting, got %v", onDisk)
	}
	if record.Name != "Alice" || record.Elo != 1005 {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestUnratedRecordsOmitElo(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "leaderboard.json")

	store, err := NewRatingStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	// Alice gets rated, Bob only gets looked up.
	_, _ = store.Rating(ctx, 1, 11, "Bob")
	err = store.ApplyDeltas(ctx, 1, []domain.RatingUpdate{{PlayerID: 10, Name: "Alice", Rating: 1010}})
	if err != nil {
		t.Fatalf("apply deltas: %v", err)
	}

	reloaded, err := NewRatingStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	lb, err := reloaded.Leaderboard(ctx, 1, 20)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	for _, entry := range lb {
		if entry.Name == "Bob" {
			t.Fatalf("unrated player leaked into the leaderboard: %+v", lb)
		}
	}
}
