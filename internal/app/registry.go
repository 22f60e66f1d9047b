package app

import (
	"sync"

	"trivia-quiz-service/internal/domain"
)

// Registry maps a channel to at most one active session. It is the only
// cross-session invariant requiring synchronization.
type Registry struct {
	mu     sync.Mutex
	active map[int64]*Quiz
}

func NewRegistry() *Registry {
	return &Registry{active: make(map[int64]*Quiz)}
}

// Add claims the channel for quiz. A channel with an active session rejects
// the newcomer without touching the existing session.
func (r *Registry) Add(channelID int64, quiz *Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[channelID]; ok {
		return domain.ErrQuizActive
	}
	r.active[channelID] = quiz
	return nil
}

// Get returns the channel's active session, if any.
func (r *Registry) Get(channelID int64) (*Quiz, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.active[channelID]
	return quiz, ok
}

// HasActive reports whether the channel currently owns a session.
func (r *Registry) HasActive(channelID int64) bool {
	_, ok := r.Get(channelID)
	return ok
}

// End stops the channel's session and releases the channel. Safe to call for
// a channel without a session.
func (r *Registry) End(channelID int64) {
	r.mu.Lock()
	quiz, ok := r.active[channelID]
	delete(r.active, channelID)
	r.mu.Unlock()
	if ok {
		quiz.Stop()
	}
}
