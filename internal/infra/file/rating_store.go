// Package file persists ratings as a single JSON document on disk: a nested
// mapping guild id -> player id -> {name, elo}. Keys are strings in the file
// and integers everywhere inside the engine.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
	"trivia-quiz-service/internal/rating"
)

type fileRecord struct {
	Name string `json:"name"`
	// Elo is absent until a ranked session stores a rating.
	Elo *int `json:"elo,omitempty"`
}

// RatingStore loads the whole document at construction and rewrites it after
// each batched update. Nothing is persisted between batches, so a failed
// session never leaves a partial write behind.
type RatingStore struct {
	path string

	mu   sync.Mutex
	data map[int64]map[int64]*fileRecord
}

// NewRatingStore reads the document at path; a missing file starts empty.
func NewRatingStore(path string) (*RatingStore, error) {
	store := &RatingStore{path: path, data: make(map[int64]map[int64]*fileRecord)}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ratings: %w", err)
	}

	var onDisk map[string]map[string]*fileRecord
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		return nil, fmt.Errorf("parse ratings: %w", err)
	}
	for rawGuild, players := range onDisk {
		guildID, err := strconv.ParseInt(rawGuild, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse guild id %q: %w", rawGuild, err)
		}
		store.data[guildID] = make(map[int64]*fileRecord, len(players))
		for rawPlayer, record := range players {
			playerID, err := strconv.ParseInt(rawPlayer, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse player id %q: %w", rawPlayer, err)
			}
			store.data[guildID][playerID] = record
		}
	}
	return store, nil
}

func (s *RatingStore) guild(guildID int64) map[int64]*fileRecord {
	records, ok := s.data[guildID]
	if !ok {
		records = make(map[int64]*fileRecord)
		s.data[guildID] = records
	}
	return records
}

// Rating returns the player's rating, creating an in-memory default record
// on first access. The file is only rewritten on ApplyDeltas.
func (s *RatingStore) Rating(_ context.Context, guildID, playerID int64, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.guild(guildID)
	record, ok := records[playerID]
	if !ok {
		records[playerID] = &fileRecord{Name: name}
		return rating.Default, nil
	}
	if record.Elo == nil {
		return rating.Default, nil
	}
	return *record.Elo, nil
}

// ApplyDeltas applies the whole batch in memory, then writes the document
// once.
func (s *RatingStore) ApplyDeltas(_ context.Context, guildID int64, updates []domain.RatingUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.guild(guildID)
	for _, update := range updates {
		elo := update.Rating
		records[update.PlayerID] = &fileRecord{Name: update.Name, Elo: &elo}
	}
	return s.saveLocked()
}

func (s *RatingStore) saveLocked() error {
	onDisk := make(map[string]map[string]*fileRecord, len(s.data))
	for guildID, players := range s.data {
		guild := make(map[string]*fileRecord, len(players))
		for playerID, record := range players {
			guild[strconv.FormatInt(playerID, 10)] = record
		}
		onDisk[strconv.FormatInt(guildID, 10)] = guild
	}

	raw, err := json.MarshalIndent(onDisk, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ratings: %w", err)
	}

	// Write-then-rename so a crash mid-write cannot truncate the document.
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create ratings dir: %w", err)
	}
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write ratings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace ratings: %w", err)
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
	records, ok := s.data[guildID]
	if !ok {
		return nil, domain.ErrNoLeaderboard
	}
	players := make([]domain.RankedPlayer, 0, len(records))
	for playerID, record := range records {
		if record.Elo == nil {
			continue
		}
		players = append(players, domain.RankedPlayer{PlayerID: playerID, Name: record.Name, Rating: *record.Elo})
	}
	return memory.RankPlayers(players), nil
}
