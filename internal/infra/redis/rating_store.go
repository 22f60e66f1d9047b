// Package redis backs the engine's storage ports with Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
	"trivia-quiz-service/internal/rating"
)

type ratingValue struct {
	Name string `json:"name"`
	Elo  *int   `json:"elo,omitempty"`
}

// RatingStore keeps one hash per guild: rating:{guildID} -> playerID -> JSON.
// Default records synthesized by Rating are staged in memory and only reach
// Redis with the next batched save.
type RatingStore struct {
	client *redis.Client

	mu     sync.Mutex
	staged map[int64]map[int64]string
}

func NewRatingStore(client *redis.Client) *RatingStore {
	return &RatingStore{client: client, staged: make(map[int64]map[int64]string)}
}

func (s *RatingStore) key(guildID int64) string {
	return "rating:" + strconv.FormatInt(guildID, 10)
}

// Rating returns the player's rating, synthesizing an unrated record on first
// access without touching Redis.
func (s *RatingStore) Rating(ctx context.Context, guildID, playerID int64, name string) (int, error) {
	raw, err := s.client.HGet(ctx, s.key(guildID), strconv.FormatInt(playerID, 10)).Result()
	if err == redis.Nil {
		s.mu.Lock()
		if _, ok := s.staged[guildID]; !ok {
			s.staged[guildID] = make(map[int64]string)
		}
		s.staged[guildID][playerID] = name
		s.mu.Unlock()
		return rating.Default, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load rating: %w", err)
	}

	var value ratingValue
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return 0, fmt.Errorf("parse rating: %w", err)
	}
	if value.Elo == nil {
		return rating.Default, nil
	}
	return *value.Elo, nil
}

// ApplyDeltas writes the whole batch, plus any staged unrated records, in a
// single pipeline so a failed session never half-updates a guild.
func (s *RatingStore) ApplyDeltas(ctx context.Context, guildID int64, updates []domain.RatingUpdate) error {
	s.mu.Lock()
	staged := s.staged[guildID]
	delete(s.staged, guildID)
	s.mu.Unlock()

	updated := make(map[int64]struct{}, len(updates))
	pipe := s.client.TxPipeline()
	for _, update := range updates {
		elo := update.Rating
		raw, err := json.Marshal(ratingValue{Name: update.Name, Elo: &elo})
		if err != nil {
			return fmt.Errorf("marshal rating: %w", err)
		}
		pipe.HSet(ctx, s.key(guildID), strconv.FormatInt(update.PlayerID, 10), string(raw))
		updated[update.PlayerID] = struct{}{}
	}
	for playerID, name := range staged {
		if _, ok := updated[playerID]; ok {
			continue
		}
		raw, err := json.Marshal(ratingValue{Name: name})
		if err != nil {
			return fmt.Errorf("marshal rating: %w", err)
		}
		pipe.HSet(ctx, s.key(guildID), strconv.FormatInt(playerID, 10), string(raw))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save ratings: %w", err)
	}
	return nil
}

// Leaderboard returns up to max rated players, best first, dense-ranked.
func (s *RatingStore) Leaderboard(ctx context.Context, guildID int64, max int) ([]domain.RankedPlayer, error) {
	ranked, err := s.ranked(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if max > 0 && len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked, nil
}

// PlayerRanking finds a player by display name among the guild's rated
// players.
func (s *RatingStore) PlayerRanking(ctx context.Context, guildID int64, name string) (domain.RankedPlayer, int, error) {
	ranked, err := s.ranked(ctx, guildID)
	if err != nil {
		return domain.RankedPlayer{}, 0, err
	}
	for _, player := range ranked {
		if player.Name == name {
			return player, len(ranked), nil
		}
	}
	return domain.RankedPlayer{}, 0, domain.ErrPlayerNotRanked
}

func (s *RatingStore) ranked(ctx context.Context, guildID int64) ([]domain.RankedPlayer, error) {
	values, err := s.client.HGetAll(ctx, s.key(guildID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load guild ratings: %w", err)
	}
	if len(values) == 0 {
		return nil, domain.ErrNoLeaderboard
	}

	players := make([]domain.RankedPlayer, 0, len(values))
	for rawID, rawValue := range values {
		playerID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse player id %q: %w", rawID, err)
		}
		var value ratingValue
		if err := json.Unmarshal([]byte(rawValue), &value); err != nil {
			return nil, fmt.Errorf("parse rating: %w", err)
		}
		if value.Elo == nil {
			continue
		}
		players = append(players, domain.RankedPlayer{PlayerID: playerID, Name: value.Name, Rating: *value.Elo})
	}
	return memory.RankPlayers(players), nil
}
