package app

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"trivia-quiz-service/internal/catalogue"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/match"
)

// MaxLeaderboardDisplay caps the guild Elo leaderboard length.
const MaxLeaderboardDisplay = 20

// RatingStore abstracts how per-guild player ratings are persisted
// (in-memory, JSON file, Redis).
type RatingStore interface {
	// Rating returns the player's rating, synthesizing (but not persisting)
	// a default record on first access.
	Rating(ctx context.Context, guildID, playerID int64, name string) (int, error)
	// ApplyDeltas persists a full batch of post-session ratings atomically.
	ApplyDeltas(ctx context.Context, guildID int64, updates []domain.RatingUpdate) error
	// Leaderboard returns up to max rated players, dense-ranked by rating.
	Leaderboard(ctx context.Context, guildID int64, max int) ([]domain.RankedPlayer, error)
	// PlayerRanking finds a player by display name and returns their entry
	// plus the total number of rated players.
	PlayerRanking(ctx context.Context, guildID int64, name string) (domain.RankedPlayer, int, error)
}

// MessageStream supplies candidate-answer events: all messages posted in a
// channel after an opaque cursor, oldest first.
type MessageStream interface {
	MessagesAfter(ctx context.Context, channelID int64, after domain.Cursor) ([]domain.ChatMessage, error)
}

// CloseAnswer is a near-simultaneous correct answer, reported after a win.
type CloseAnswer struct {
	Name    string        `json:"name"`
	Elapsed time.Duration `json:"elapsed"`
	Behind  time.Duration `json:"behind"`
}

// Presenter renders engine effects. The engine never touches platform
// rendering; it hands the presenter structured content and receives opaque
// correlation tokens back where it needs them.
type Presenter interface {
	QuizStarted(channelID int64, settings Settings)
	RegistrationTick(channelID int64, remaining time.Duration)
	RegistrationClosed(channelID int64, players []domain.Player)
	QuizCancelled(channelID int64, reason string)
	// QuestionAsked posts a question and returns the cursor bracketing the
	// round: only messages after it are candidate answers.
	QuestionAsked(channelID int64, index, total int, image string, ranked bool) domain.Cursor
	// HintRevealed posts a hint, replacing the prior hint message identified
	// by replaces, and returns the new hint's correlation id.
	HintRevealed(channelID int64, shown, max int, hints map[string]string, replaces string) string
	Winner(channelID int64, message domain.ChatMessage, answers map[string]string, elapsed time.Duration)
	CloseCalls(channelID int64, calls []CloseAnswer)
	TimedOut(channelID int64, answers map[string]string)
	AnswersRevealed(channelID int64, answers map[string]string, plural bool)
	CountdownTick(channelID int64, remaining time.Duration)
	QuizFinished(channelID int64, board []domain.ScoreRow)
	RatingsUpdated(channelID int64, updates []domain.RatingUpdate)
}

// Tunables are the global timing knobs of the drive loop.
type Tunables struct {
	PollPeriod           time.Duration
	TimeBetweenQuestions time.Duration
	RegistrationWindow   time.Duration
	CloseAnswerWindow    time.Duration
}

func (t Tunables) withDefaults() Tunables {
	if t.PollPeriod <= 0 {
		t.PollPeriod = time.Second
	}
	if t.TimeBetweenQuestions <= 0 {
		t.TimeBetweenQuestions = 10 * time.Second
	}
	if t.RegistrationWindow <= 0 {
		t.RegistrationWindow = 30 * time.Second
	}
	if t.CloseAnswerWindow <= 0 {
		t.CloseAnswerWindow = time.Second
	}
	return t
}

// DifficultySpec is one resolved difficulty preset.
type DifficultySpec struct {
	Mode             match.Mode
	TimeBetweenHints time.Duration
	MaxHints         int
	Description      string
}

// Options configures a QuizService.
type Options struct {
	Difficulties map[string]DifficultySpec
	DefaultLangs []string
	LangsByGuild map[int64][]string
	Tunables     Tunables
}

// QuizService contains the quiz use cases: it gates session creation through
// the registry and drives each session's question loop.
type QuizService struct {
	registry  *Registry
	cat       *catalogue.Catalogue
	ratings   RatingStore
	stream    MessageStream
	presenter Presenter
	opts      Options
	log       zerolog.Logger
	now       func() time.Time
	seed      func() int64
}

func NewQuizService(registry *Registry, cat *catalogue.Catalogue, ratings RatingStore, stream MessageStream, presenter Presenter, opts Options, log zerolog.Logger) *QuizService {
	opts.Tunables = opts.Tunables.withDefaults()
	return &QuizService{
		registry:  registry,
		cat:       cat,
		ratings:   ratings,
		stream:    stream,
		presenter: presenter,
		opts:      opts,
		log:       log,
		now:       time.Now,
		seed:      func() int64 { return time.Now().UnixNano() },
	}
}

// SetClock overrides the service clock and random seed for deterministic tests.
func (s *QuizService) SetClock(now func() time.Time, seed func() int64) {
	s.now = now
	s.seed = seed
}

// TotalQuestions is the number of guessable records loaded at startup.
func (s *QuizService) TotalQuestions() int {
	return s.cat.Len()
}

// Difficulties returns the configured preset descriptions.
func (s *QuizService) Difficulties() map[string]DifficultySpec {
	return s.opts.Difficulties
}

func (s *QuizService) allowedLangs(guildID int64) []string {
	if langs, ok := s.opts.LangsByGuild[guildID]; ok && len(langs) > 0 {
		return langs
	}
	return s.opts.DefaultLangs
}

// StartQuiz validates the requested configuration, claims the channel in the
// registry, and launches the session drive loop. The context bounds the whole
// session, not just this call.
func (s *QuizService) StartQuiz(ctx context.Context, guildID, channelID int64, questionCount int, difficulty, category string, maxYear int) (*Quiz, error) {
	cat, err := domain.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	spec, ok := s.opts.Difficulties[difficulty]
	if !ok {
		return nil, domain.ErrUnknownDifficulty
	}
	if questionCount <= 0 {
		return nil, domain.ErrInvalidQuestionCount
	}

	settings := Settings{
		Difficulty:       difficulty,
		Mode:             spec.Mode,
		TimeBetweenHints: spec.TimeBetweenHints,
		MaxHints:         spec.MaxHints,
		QuestionCount:    questionCount,
		Category:         cat,
		MaxYear:          maxYear,
		Langs:            s.allowedLangs(guildID),
	}

	quiz := newQuiz(guildID, channelID, settings, rand.New(rand.NewSource(s.seed())), s.now)
	if err := s.registry.Add(channelID, quiz); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("guild", guildID).
		Int64("channel", channelID).
		Str("difficulty", difficulty).
		Str("category", category).
		Int("questions", questionCount).
		Msg("quiz started")

	go s.run(ctx, quiz)
	return quiz, nil
}

// StopQuiz suddenly stops the channel's session.
func (s *QuizService) StopQuiz(channelID int64) error {
	if _, ok := s.registry.Get(channelID); !ok {
		return domain.ErrNoActiveQuiz
	}
	s.registry.End(channelID)
	s.log.Info().Int64("channel", channelID).Msg("quiz stopped")
	return nil
}

// SkipQuestion cancels the current question without scoring; the session
// moves on to the next one.
func (s *QuizService) SkipQuestion(channelID int64) error {
	quiz, ok := s.registry.Get(channelID)
	if !ok {
		return domain.ErrNoActiveQuiz
	}
	if !quiz.Waiting() {
		return domain.ErrNoQuestionInProgress
	}
	quiz.setWaiting(false)
	return nil
}

// Register signs a player up for the channel's ranked session while the
// registration window is open. The player's pre-session rating is loaded now.
func (s *QuizService) Register(ctx context.Context, channelID, playerID int64, name, avatar string) (domain.Player, error) {
	quiz, ok := s.registry.Get(channelID)
	if !ok {
		return domain.Player{}, domain.ErrNoActiveQuiz
	}
	elo, err := s.ratings.Rating(ctx, quiz.GuildID(), playerID, name)
	if err != nil {
		return domain.Player{}, err
	}
	player := domain.Player{ID: playerID, Name: name, Avatar: avatar, Rating: elo}
	if err := quiz.Register(player); err != nil {
		return domain.Player{}, err
	}
	return player, nil
}

// PlayerRanking reports a player's rating, dense rank, and the total number
// of rated players in the guild.
func (s *QuizService) PlayerRanking(ctx context.Context, guildID int64, name string) (domain.RankedPlayer, int, error) {
	return s.ratings.PlayerRanking(ctx, guildID, name)
}

// EloLeaderboard returns the guild's rated players, best first.
func (s *QuizService) EloLeaderboard(ctx context.Context, guildID int64) ([]domain.RankedPlayer, error) {
	return s.ratings.Leaderboard(ctx, guildID, MaxLeaderboardDisplay)
}
