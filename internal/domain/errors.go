package domain

import "errors"

var (
	// ErrQuizActive is returned when a channel already has a running session.
	ErrQuizActive = errors.New("a quiz is already in progress in this channel")
	// ErrNoActiveQuiz is returned when a command targets a channel without a session.
	ErrNoActiveQuiz = errors.New("there is no quiz in progress in this channel")
	// ErrNoQuestionInProgress is returned when skip is used between questions.
	ErrNoQuestionInProgress = errors.New("there is no question in progress")
	// ErrUnknownDifficulty indicates a difficulty name absent from the configuration.
	ErrUnknownDifficulty = errors.New("unknown difficulty")
	// ErrUnknownCategory indicates a category other than friendly or ranked.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrInvalidQuestionCount rejects non-positive question counts.
	ErrInvalidQuestionCount = errors.New("question count must be positive")
	// ErrRegistrationClosed is returned when a player registers outside the window.
	ErrRegistrationClosed = errors.New("registration is closed")
	// ErrAlreadyRegistered is returned on duplicate registration.
	ErrAlreadyRegistered = errors.New("player already registered")
	// ErrPlayerNotRanked means the queried player has no recorded rating.
	ErrPlayerNotRanked = errors.New("player is not ranked yet")
	// ErrNoLeaderboard means the guild has no rated players at all.
	ErrNoLeaderboard = errors.New("no leaderboard on this server yet")
	// ErrCatalogueEmpty means sampling found no questions under the filters.
	ErrCatalogueEmpty = errors.New("question catalogue is empty")
)
