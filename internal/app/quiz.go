package app

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/match"
)

// State is the session lifecycle stage.
type State int

const (
	StateConfiguring State = iota
	StateRegistration
	StateRunning
	StateStopped
)

// Settings is one session's immutable configuration snapshot. It is built at
// construction and never shared or mutated across sessions.
type Settings struct {
	Difficulty       string          `json:"difficulty"`
	Mode             match.Mode      `json:"-"`
	TimeBetweenHints time.Duration   `json:"timeBetweenHints"`
	MaxHints         int             `json:"maxHints"`
	QuestionCount    int             `json:"questionCount"`
	Category         domain.Category `json:"category"`
	MaxYear          int             `json:"maxYear,omitempty"`
	Langs            []string        `json:"langs"`
}

// Quiz is one run of question rounds in one channel. The drive loop is the
// only writer of round progression; the mutex covers the cross-goroutine
// reads from commands (stop, skip, register).
type Quiz struct {
	guildID   int64
	channelID int64
	settings  Settings

	mu      sync.Mutex
	state   State
	running bool
	waiting bool
	allowed map[int64]struct{}
	players map[int64]*domain.Player

	rnd *rand.Rand
	now func() time.Time
}

func newQuiz(guildID, channelID int64, settings Settings, rnd *rand.Rand, now func() time.Time) *Quiz {
	return &Quiz{
		guildID:   guildID,
		channelID: channelID,
		settings:  settings,
		state:     StateConfiguring,
		running:   true,
		players:   make(map[int64]*domain.Player),
		rnd:       rnd,
		now:       now,
	}
}

func (q *Quiz) GuildID() int64     { return q.guildID }
func (q *Quiz) ChannelID() int64   { return q.channelID }
func (q *Quiz) Settings() Settings { return q.settings }
func (q *Quiz) IsRanked() bool     { return q.settings.Category == domain.CategoryRanked }

// Plural reports whether answers span several languages, for display.
func (q *Quiz) Plural() bool { return len(q.settings.Langs) >= 2 }

// IsRunning is checked by every wait loop; Stop makes the next check false.
func (q *Quiz) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// State returns the current lifecycle stage.
func (q *Quiz) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Stop is terminal: it forces any in-flight answer wait to exit promptly.
func (q *Quiz) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.state = StateStopped
	q.running = false
	q.waiting = false
}

// Waiting reports whether a question is currently awaiting an answer.
func (q *Quiz) Waiting() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waiting
}

func (q *Quiz) setWaiting(waiting bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if waiting && !q.running {
		return
	}
	q.waiting = waiting
}

func (q *Quiz) openRegistration() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		q.state = StateRegistration
	}
}

// closeRegistration freezes the allowed-player set; it is immutable for the
// rest of the session.
func (q *Quiz) closeRegistration() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.allowed = make(map[int64]struct{}, len(q.players))
	for id := range q.players {
		q.allowed[id] = struct{}{}
	}
	if q.running {
		q.state = StateRunning
	}
}

func (q *Quiz) beginRun() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		q.state = StateRunning
	}
}

// Register adds a player during the registration window. Scores start at
// zero so every registrant appears on the final scoreboard.
func (q *Quiz) Register(player domain.Player) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != StateRegistration || !q.running {
		return domain.ErrRegistrationClosed
	}
	if _, ok := q.players[player.ID]; ok {
		return domain.ErrAlreadyRegistered
	}
	player.Score = 0
	q.players[player.ID] = &player
	return nil
}

// Registrants is the number of signed-up players.
func (q *Quiz) Registrants() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.players)
}

// allowedSet is the frozen participant filter handed to each question; nil
// means anyone may answer (friendly mode).
func (q *Quiz) allowedSet() map[int64]struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.settings.Category != domain.CategoryRanked {
		return nil
	}
	return q.allowed
}

// RecordCorrect awards one point to the message author. Friendly sessions
// create the player entry lazily on their first correct answer; ranked
// sessions only score pre-registered ids.
func (q *Quiz) RecordCorrect(message domain.ChatMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	player, ok := q.players[message.AuthorID]
	if !ok {
		if q.settings.Category == domain.CategoryRanked {
			return
		}
		player = &domain.Player{ID: message.AuthorID, Name: message.AuthorName}
		q.players[message.AuthorID] = player
	}
	player.Score++
}

// Players returns a snapshot of all participants.
func (q *Quiz) Players() []domain.Player {
	q.mu.Lock()
	defer q.mu.Unlock()
	players := make([]domain.Player, 0, len(q.players))
	for _, p := range q.players {
		players = append(players, *p)
	}
	return players
}

// Scoreboard returns the participants sorted by score descending with dense
// ranks: tied scores share a rank.
func (q *Quiz) Scoreboard() []domain.ScoreRow {
	players := q.Players()
	sort.Slice(players, func(i, j int) bool {
		if players[i].Score != players[j].Score {
			return players[i].Score > players[j].Score
		}
		return players[i].Name < players[j].Name
	})

	scores := make([]int, len(players))
	for i, p := range players {
		scores[i] = p.Score
	}
	ranks := domain.DenseRanks(scores)

	board := make([]domain.ScoreRow, len(players))
	for i, p := range players {
		board[i] = domain.ScoreRow{Rank: ranks[i], PlayerID: p.ID, Name: p.Name, Score: p.Score}
	}
	return board
}
