// Package memory provides in-process implementations of the engine's
// storage ports, used standalone and as building blocks for the durable ones.
package memory

import (
	"context"
	"sort"
	"sync"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/rating"
)

// ratingRecord is one player's persisted entry. A record exists as soon as a
// player is first looked up, but only counts as rated once a ranked session
// has stored a rating for it.
type ratingRecord struct {
	Name  string
	Elo   int
	Rated bool
}

// RatingStore keeps per-guild, per-player ratings in memory.
type RatingStore struct {
	mu     sync.Mutex
	guilds map[int64]map[int64]*ratingRecord
}

func NewRatingStore() *RatingStore {
	return &RatingStore{guilds: make(map[int64]map[int64]*ratingRecord)}
}

func (s *RatingStore) guild(guildID int64) map[int64]*ratingRecord {
	records, ok := s.guilds[guildID]
	if !ok {
		records = make(map[int64]*ratingRecord)
		s.guilds[guildID] = records
	}
	return records
}

// Rating returns the player's rating, creating a default record on first
// access. The default is not marked rated until a session stores a rating.
func (s *RatingStore) Rating(_ context.Context, guildID, playerID int64, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.guild(guildID)
	record, ok := records[playerID]
	if !ok {
		records[playerID] = &ratingRecord{Name: name}
		return rating.Default, nil
	}
	if !record.Rated {
		return rating.Default, nil
	}
	return record.Elo, nil
}

// ApplyDeltas stores the whole batch of post-session ratings.
func (s *RatingStore) ApplyDeltas(_ context.Context, guildID int64, updates []domain.RatingUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.guild(guildID)
	for _, update := range updates {
		records[update.PlayerID] = &ratingRecord{Name: update.Name, Elo: update.Rating, Rated: true}
	}
	return nil
}

// Leaderboard returns up to max rated players, best first, dense-ranked.
func (s *RatingStore) Leaderboard(_ context.Context, guildID int64, max int) ([]domain.RankedPlayer, error) {
	ranked, err := s.ranked(guildID)
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
func (s *RatingStore) PlayerRanking(_ context.Context, guildID int64, name string) (domain.RankedPlayer, int, error) {
	ranked, err := s.ranked(guildID)
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

func (s *RatingStore) ranked(guildID int64) ([]domain.RankedPlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.guilds[guildID]
	if !ok {
		return nil, domain.ErrNoLeaderboard
	}

	players := make([]domain.RankedPlayer, 0, len(records))
	for playerID, record := range records {
		if !record.Rated {
			continue
		}
		players = append(players, domain.RankedPlayer{PlayerID: playerID, Name: record.Name, Rating: record.Elo})
	}
	return RankPlayers(players), nil
}

// RankPlayers sorts players by rating descending and assigns dense ranks.
// Shared by every rating store implementation.
func RankPlayers(players []domain.RankedPlayer) []domain.RankedPlayer {
	sort.Slice(players, func(i, j int) bool {
		if players[i].Rating != players[j].Rating {
			return players[i].Rating > players[j].Rating
		}
		return players[i].Name < players[j].Name
	})
	ratings := make([]int, len(players))
	for i, p := range players {
		ratings[i] = p.Rating
	}
	ranks := domain.DenseRanks(ratings)
	for i := range players {
		players[i].Rank = ranks[i]
	}
	return players
}
