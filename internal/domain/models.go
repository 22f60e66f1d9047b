package domain

import "time"

// Category selects the scoring rules of a session.
type Category string

const (
	// CategoryFriendly has no registration gate and no rating effect.
	CategoryFriendly Category = "friendly"
	// CategoryRanked requires pre-registration and updates Elo ratings.
	CategoryRanked Category = "ranked"
)

// ParseCategory maps a user-supplied category name to a Category.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryFriendly:
		return CategoryFriendly, nil
	case CategoryRanked:
		return CategoryRanked, nil
	}
	return "", ErrUnknownCategory
}

// Player is a session participant. Identity is the platform user id;
// the display name is presentation metadata only.
type Player struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Score  int    `json:"score"`
	Rating int    `json:"rating"`
}

// ChatMessage is the candidate-answer event consumed from the message stream.
type ChatMessage struct {
	ID         string    `json:"id"`
	ChannelID  int64     `json:"channelId"`
	AuthorID   int64     `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	SentAt     time.Time `json:"sentAt"`
}

// Cursor is an opaque bookmark into a channel's message history. The engine
// only ever asks for "messages after this point".
type Cursor struct {
	MessageID string    `json:"messageId"`
	At        time.Time `json:"at"`
}

// ScoreRow is one line of a session scoreboard, dense-ranked.
type ScoreRow struct {
	Rank     int    `json:"rank"`
	PlayerID int64  `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// RankedPlayer is one line of a guild's Elo leaderboard, dense-ranked.
type RankedPlayer struct {
	Rank     int    `json:"rank"`
	PlayerID int64  `json:"playerId"`
	Name     string `json:"name"`
	Rating   int    `json:"rating"`
}

// RatingUpdate carries one player's new rating into a batched store save.
type RatingUpdate struct {
	PlayerID int64  `json:"playerId"`
	Name     string `json:"name"`
	Rating   int    `json:"rating"`
	Delta    int    `json:"delta"`
}

// DenseRanks assigns ranks to scores already sorted in descending order.
// Tied scores share a rank; the next distinct score continues at position+1.
func DenseRanks(sorted []int) []int {
	ranks := make([]int, len(sorted))
	currentRank := 0
	currentScore := 0
	for i, score := range sorted {
		if i == 0 || score != currentScore {
			currentRank = i + 1
			currentScore = score
		}
		ranks[i] = currentRank
	}
	return ranks
}
