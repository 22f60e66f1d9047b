package app

import (
	"context"
	"sort"
	"time"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/rating"
)

// run drives one session from registration to the final scoreboard. It is
// the session's single cooperative task: every suspension point re-checks the
// running flag so an external stop is observed promptly.
func (s *QuizService) run(ctx context.Context, quiz *Quiz) {
	defer s.registry.End(quiz.ChannelID())

	log := s.log.With().Int64("channel", quiz.ChannelID()).Logger()

	s.presenter.QuizStarted(quiz.ChannelID(), quiz.Settings())

	if quiz.IsRanked() {
		if !s.runRegistration(ctx, quiz) {
			return
		}
	} else {
		quiz.beginRun()
	}

	records := s.cat.Sample(quiz.Settings().MaxYear, quiz.Settings().QuestionCount, quiz.rnd)
	if len(records) == 0 {
		log.Warn().Int("maxYear", quiz.Settings().MaxYear).Msg("no questions under filters")
		s.presenter.QuizCancelled(quiz.ChannelID(), "no questions available")
		return
	}

	for index, record := range records {
		if !quiz.IsRunning() {
			return
		}

		question := newQuestion(record, quiz.Settings(), quiz.allowedSet(), quiz.rnd)
		cursor := s.presenter.QuestionAsked(quiz.ChannelID(), index+1, len(records), question.Image(), quiz.IsRanked())
		question.start(cursor)
		quiz.setWaiting(true)

		for quiz.Waiting() && quiz.IsRunning() {
			if !s.sleep(ctx, s.opts.Tunables.PollPeriod) {
				return
			}
			s.pollOnce(ctx, quiz, question)
		}
		if !quiz.IsRunning() {
			return
		}

		s.presenter.AnswersRevealed(quiz.ChannelID(), question.Answers(), quiz.Plural())

		if index+1 != len(records) {
			if !s.countdown(ctx, quiz, s.opts.Tunables.TimeBetweenQuestions) {
				return
			}
		}
	}

	if !quiz.IsRunning() {
		return
	}
	if !s.sleep(ctx, s.opts.Tunables.TimeBetweenQuestions) {
		return
	}

	s.presenter.QuizFinished(quiz.ChannelID(), quiz.Scoreboard())

	if quiz.IsRanked() {
		s.updateRatings(ctx, quiz)
	}
	log.Info().Msg("quiz finished")
}

// runRegistration keeps the window open, ticking the countdown, until it
// elapses or the session is stopped. Zero registrants cancels the session.
func (s *QuizService) runRegistration(ctx context.Context, quiz *Quiz) bool {
	quiz.openRegistration()

	deadline := s.now().Add(s.opts.Tunables.RegistrationWindow)
	for quiz.IsRunning() {
		remaining := deadline.Sub(s.now())
		if remaining <= 0 {
			break
		}
		s.presenter.RegistrationTick(quiz.ChannelID(), remaining)
		step := time.Second
		if remaining < step {
			step = remaining
		}
		if !s.sleep(ctx, step) {
			return false
		}
	}

	quiz.closeRegistration()
	if !quiz.IsRunning() {
		return false
	}
	if quiz.Registrants() == 0 {
		s.presenter.QuizCancelled(quiz.ChannelID(), "there are no registered players")
		return false
	}
	s.presenter.RegistrationClosed(quiz.ChannelID(), quiz.Players())
	return true
}

// pollOnce is one tick of the round state machine: scan the backlog since
// the last bookmark, resolve a winner, or advance the bookmark and evaluate
// hint eligibility.
func (s *QuizService) pollOnce(ctx context.Context, quiz *Quiz, question *Question) {
	messages, err := s.stream.MessagesAfter(ctx, quiz.ChannelID(), question.cursor)
	if err != nil {
		s.log.Warn().Err(err).Int64("channel", quiz.ChannelID()).Msg("message poll failed")
		return
	}

	for _, message := range messages {
		if !question.IsWinner(message) {
			continue
		}
		quiz.setWaiting(false)
		elapsed := message.SentAt.Sub(question.askedAt)
		s.presenter.Winner(quiz.ChannelID(), message, question.Answers(), elapsed)
		quiz.RecordCorrect(message)
		s.reportCloseCalls(ctx, quiz, question, message, elapsed)
		return
	}

	if len(messages) > 0 {
		last := messages[len(messages)-1]
		question.cursor = domain.Cursor{MessageID: last.ID, At: last.SentAt}
	}

	if !question.hintDue(s.now()) {
		return
	}
	if question.underCap() {
		hints := question.revealHints()
		question.lastHintID = s.presenter.HintRevealed(
			quiz.ChannelID(), question.hintsShown, question.maxHints, hints, question.lastHintID,
		)
		return
	}
	quiz.setWaiting(false)
	s.presenter.TimedOut(quiz.ChannelID(), question.Answers())
}

// reportCloseCalls sweeps the short trailing window after the winning message
// for other independently-correct answers. Reporting only; the primary winner
// never changes and no extra points are granted.
func (s *QuizService) reportCloseCalls(ctx context.Context, quiz *Quiz, question *Question, winner domain.ChatMessage, winnerElapsed time.Duration) {
	window := s.opts.Tunables.CloseAnswerWindow
	if wait := window - s.now().Sub(winner.SentAt); wait > 0 {
		if !s.sleep(ctx, wait) {
			return
		}
	}

	calls := []CloseAnswer{{Name: winner.AuthorName, Elapsed: winnerElapsed}}

	messages, err := s.stream.MessagesAfter(ctx, quiz.ChannelID(), domain.Cursor{MessageID: winner.ID, At: winner.SentAt})
	if err != nil {
		s.log.Warn().Err(err).Int64("channel", quiz.ChannelID()).Msg("close-answer sweep failed")
		return
	}
	cutoff := winner.SentAt.Add(window)
	for _, message := range messages {
		if message.SentAt.After(cutoff) {
			break
		}
		if message.AuthorID == winner.AuthorID || !question.IsWinner(message) {
			continue
		}
		elapsed := message.SentAt.Sub(question.askedAt)
		calls = append(calls, CloseAnswer{Name: message.AuthorName, Elapsed: elapsed, Behind: elapsed - winnerElapsed})
	}

	if len(calls) > 1 {
		s.presenter.CloseCalls(quiz.ChannelID(), calls)
	}
}

// countdown waits the inter-question delay, ticking once a second so the
// presenter can render the timer, and aborts as soon as the session stops.
func (s *QuizService) countdown(ctx context.Context, quiz *Quiz, total time.Duration) bool {
	deadline := s.now().Add(total)
	for quiz.IsRunning() {
		remaining := deadline.Sub(s.now())
		if remaining <= 0 {
			return true
		}
		s.presenter.CountdownTick(quiz.ChannelID(), remaining)
		step := time.Second
		if remaining < step {
			step = remaining
		}
		if !s.sleep(ctx, step) {
			return false
		}
	}
	return false
}

// updateRatings computes pairwise Elo deltas from a frozen pre-session
// snapshot and persists the whole batch in one save. A lone participant gets
// a zero delta and nothing is persisted.
func (s *QuizService) updateRatings(ctx context.Context, quiz *Quiz) {
	players := quiz.Players()

	scores := make(map[int64]int, len(players))
	snapshot := make(map[int64]int, len(players))
	for _, p := range players {
		scores[p.ID] = p.Score
		snapshot[p.ID] = p.Rating
	}

	deltas := rating.Deltas(scores, snapshot)

	updates := make([]domain.RatingUpdate, 0, len(players))
	for _, p := range players {
		updates = append(updates, domain.RatingUpdate{
			PlayerID: p.ID,
			Name:     p.Name,
			Rating:   p.Rating + deltas[p.ID],
			Delta:    deltas[p.ID],
		})
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].Rating > updates[j].Rating })

	if len(players) >= 2 {
		if err := s.ratings.ApplyDeltas(ctx, quiz.GuildID(), updates); err != nil {
			s.log.Error().Err(err).Int64("guild", quiz.GuildID()).Msg("rating save failed")
			return
		}
	}
	s.presenter.RatingsUpdated(quiz.ChannelID(), updates)
}

func (s *QuizService) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
