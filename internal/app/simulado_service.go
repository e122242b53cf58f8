package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"enem-simulado-service/internal/domain"
	"github.com/google/uuid"
)

// ProgressStore abstracts how per-user progress documents are persisted
// (in-memory, Redis, Postgres). Every mutation follows the same protocol:
// LoadForUpdate returns a private snapshot plus its version, the engine
// mutates the snapshot, and Commit applies it only if the stored version is
// unchanged, failing with domain.ErrConflict otherwise.
type ProgressStore interface {
	Create(ctx context.Context, progress domain.UserProgress) error
	LoadForUpdate(ctx context.Context, userID string) (domain.UserProgress, int64, error)
	Commit(ctx context.Context, progress domain.UserProgress, version int64) error
	// RegenEligible lists users with lives below the ceiling whose
	// next-regeneration time is due, in no particular order.
	RegenEligible(ctx context.Context, now time.Time) ([]string, error)
}

// QuestionSource supplies question batches from the exam catalog.
type QuestionSource interface {
	// Fetch returns exactly domain.QuestionsPerAttempt questions for the
	// year and discipline, or domain.ErrQuestionSource /
	// domain.ErrInsufficientQuestions.
	Fetch(ctx context.Context, year int, discipline domain.Discipline) ([]domain.Question, error)
	// ListExams returns the catalog's available exam years.
	ListExams(ctx context.Context) ([]domain.Exam, error)
}

// SimuladoService owns the attempt state machine: starting attempts,
// validating and scoring answers, resolving completion or failure, and the
// interaction with the shared life pool.
type SimuladoService struct {
	store     ProgressStore
	questions QuestionSource
	now       func() time.Time
}

func NewSimuladoService(store ProgressStore, questions QuestionSource) *SimuladoService {
	return NewSimuladoServiceWithClock(store, questions, time.Now)
}

// NewSimuladoServiceWithClock allows deterministic timestamps in tests.
func NewSimuladoServiceWithClock(store ProgressStore, questions QuestionSource, now func() time.Time) *SimuladoService {
	return &SimuladoService{store: store, questions: questions, now: now}
}

// RegisterUser creates a fresh progress record with a full life pool.
func (s *SimuladoService) RegisterUser(ctx context.Context, userID string) (domain.ProgressSummary, error) {
	progress := domain.NewUserProgress(userID)
	if err := s.store.Create(ctx, progress); err != nil {
		return domain.ProgressSummary{}, err
	}
	return summarize(progress), nil
}

// ListExams passes the catalog's exam listing through to the client.
func (s *SimuladoService) ListExams(ctx context.Context) ([]domain.Exam, error) {
	return s.questions.ListExams(ctx)
}

// StartAttempt begins a new attempt for the user in the resolved discipline.
// A stale active attempt is retired first: discarded if nothing was answered,
// force-completed otherwise. That retirement, like lazy regeneration, is
// persisted even when the start itself fails afterwards.
func (s *SimuladoService) StartAttempt(ctx context.Context, userID string, year int, selector, language string) (domain.StartResult, error) {
	discipline, err := domain.ResolveDiscipline(selector, language)
	if err != nil {
		return domain.StartResult{}, err
	}

	progress, version, err := s.store.LoadForUpdate(ctx, userID)
	if err != nil {
		return domain.StartResult{}, err
	}

	now := s.now()
	progress.Lives, progress.NextLifeAt = domain.Regenerate(progress.Lives, progress.NextLifeAt, now)
	s.retireActiveAttempt(&progress, now)

	if progress.Lives < 1 {
		if err := s.store.Commit(ctx, progress, version); err != nil {
			return domain.StartResult{}, err
		}
		return domain.StartResult{}, &domain.NoLivesError{NextLifeAt: progress.NextLifeAt}
	}

	attemptNumber := progress.CompletedAttempts(discipline) + 1
	if attemptNumber > domain.MaxAttemptsPerDiscipline {
		if err := s.store.Commit(ctx, progress, version); err != nil {
			return domain.StartResult{}, err
		}
		return domain.StartResult{}, domain.ErrAttemptLimitReached
	}

	questions, err := s.questions.Fetch(ctx, year, discipline)
	if err != nil {
		// The retirement above is deliberately not rolled back.
		if commitErr := s.store.Commit(ctx, progress, version); commitErr != nil {
			return domain.StartResult{}, commitErr
		}
		return domain.StartResult{}, err
	}

	attempt := domain.Attempt{
		ID:            uuid.NewString(),
		Discipline:    discipline,
		AttemptNumber: attemptNumber,
		Year:          year,
		Questions:     questions,
		Status:        domain.AttemptActive,
		StartedAt:     now,
	}
	progress.Attempts[discipline] = append(progress.Attempts[discipline], attempt)
	progress.Active = &domain.ActiveAttemptRef{
		Discipline:    discipline,
		AttemptID:     attempt.ID,
		QuestionIndex: 0,
		StartedAt:     now,
	}

	if err := s.store.Commit(ctx, progress, version); err != nil {
		return domain.StartResult{}, err
	}

	views := make([]domain.QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, q.View())
	}
	return domain.StartResult{
		AttemptID:     attempt.ID,
		AttemptNumber: attemptNumber,
		Discipline:    discipline,
		Year:          year,
		Questions:     views,
		Lives:         progress.Lives,
		Points:        progress.Points,
		Level:         progress.Level(),
	}, nil
}

// SubmitAnswer validates an answer against the active attempt, scores it, and
// resolves the attempt if the submission was terminal.
func (s *SimuladoService) SubmitAnswer(ctx context.Context, userID, questionID, answer string) (domain.AnswerFeedback, error) {
	progress, version, err := s.store.LoadForUpdate(ctx, userID)
	if err != nil {
		return domain.AnswerFeedback{}, err
	}
	if progress.Active == nil {
		return domain.AnswerFeedback{}, domain.ErrNoActiveAttempt
	}

	attempt := findAttempt(&progress, progress.Active.Discipline, progress.Active.AttemptID)
	if attempt == nil {
		return domain.AnswerFeedback{}, domain.ErrAttemptNotFound
	}

	position := -1
	for i := range attempt.Questions {
		if attempt.Questions[i].QuestionID == questionID {
			position = i
			break
		}
	}
	if position < 0 {
		return domain.AnswerFeedback{}, domain.ErrQuestionNotFound
	}
	if position != progress.Active.QuestionIndex {
		return domain.AnswerFeedback{}, domain.ErrOutOfOrder
	}

	question := &attempt.Questions[position]
	if question.Answered() {
		return domain.AnswerFeedback{}, domain.ErrAlreadyAnswered
	}

	now := s.now()
	correct := answer == question.CorrectAlternative
	question.UserAnswer = answer
	question.IsCorrect = &correct
	question.AnsweredAt = &now

	delta := 0
	if correct {
		progress.Points++
		delta = 1
	} else {
		if progress.Points > 0 {
			progress.Points--
			delta = -1
		}
		progress.Lives--
		progress.NextLifeAt = domain.ArmLifeTimer(progress.Lives, progress.NextLifeAt, now)
	}

	feedback := domain.AnswerFeedback{
		Correct:     correct,
		PointsDelta: delta,
		Points:      progress.Points,
		Level:       progress.Level(),
		Lives:       progress.Lives,
	}
	if !correct {
		feedback.Explanation = fmt.Sprintf("Resposta incorreta. A alternativa correta era %s.", question.CorrectAlternative)
	}

	switch {
	case progress.Lives <= 0:
		// Out of lives mid-attempt: the simulado is lost on the spot.
		score := attempt.CorrectCount()
		attempt.Status = domain.AttemptFailed
		attempt.Score = &score
		attempt.CompletedAt = &now
		progress.Active = nil
		feedback.Failed = true
		feedback.Score = &score
		feedback.NextLifeAt = progress.NextLifeAt
	case position == len(attempt.Questions)-1:
		score := attempt.CorrectCount()
		attempt.Status = domain.AttemptCompleted
		attempt.Score = &score
		attempt.CompletedAt = &now
		progress.Active = nil
		feedback.Completed = true
		feedback.Score = &score
	default:
		progress.Active.QuestionIndex++
	}

	if err := s.store.Commit(ctx, progress, version); err != nil {
		return domain.AnswerFeedback{}, err
	}
	return feedback, nil
}

// GetStatus reports whether an attempt is in progress. Lives are lazily
// regenerated first and persisted when that changed anything.
func (s *SimuladoService) GetStatus(ctx context.Context, userID string) (domain.AttemptStatusView, error) {
	progress, err := s.loadRegenerated(ctx, userID)
	if err != nil {
		return domain.AttemptStatusView{}, err
	}

	status := domain.AttemptStatusView{
		Lives:      progress.Lives,
		NextLifeAt: progress.NextLifeAt,
	}
	if progress.Active == nil {
		return status, nil
	}

	attempt := findAttempt(&progress, progress.Active.Discipline, progress.Active.AttemptID)
	if attempt == nil {
		return status, nil
	}
	status.Active = true
	status.Discipline = attempt.Discipline
	status.AttemptNumber = attempt.AttemptNumber
	status.QuestionIndex = progress.Active.QuestionIndex
	return status, nil
}

// GetSummary returns the home-screen gamification view, lazily regenerating
// lives first.
func (s *SimuladoService) GetSummary(ctx context.Context, userID string) (domain.ProgressSummary, error) {
	progress, err := s.loadRegenerated(ctx, userID)
	if err != nil {
		return domain.ProgressSummary{}, err
	}
	return summarize(progress), nil
}

// GetAttemptDetails returns the full review of one attempt, located by
// discipline and attempt number. When numbers collide (a failed attempt does
// not advance the counter), the most recent match wins.
func (s *SimuladoService) GetAttemptDetails(ctx context.Context, userID, selector, language string, attemptNumber int) (domain.AttemptDetail, error) {
	discipline, err := domain.ResolveDiscipline(selector, language)
	if err != nil {
		return domain.AttemptDetail{}, err
	}
	progress, _, err := s.store.LoadForUpdate(ctx, userID)
	if err != nil {
		return domain.AttemptDetail{}, err
	}

	attempts := progress.Attempts[discipline]
	for i := len(attempts) - 1; i >= 0; i-- {
		if attempts[i].AttemptNumber == attemptNumber {
			return attempts[i].Detail(), nil
		}
	}
	return domain.AttemptDetail{}, domain.ErrAttemptNotFound
}

// ListAttempts returns the attempt history of a discipline in chronological order.
func (s *SimuladoService) ListAttempts(ctx context.Context, userID, selector, language string) ([]domain.AttemptSummary, error) {
	discipline, err := domain.ResolveDiscipline(selector, language)
	if err != nil {
		return nil, err
	}
	progress, _, err := s.store.LoadForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}

	attempts := progress.Attempts[discipline]
	summaries := make([]domain.AttemptSummary, 0, len(attempts))
	for _, a := range attempts {
		summaries = append(summaries, a.Summary())
	}
	return summaries, nil
}

// loadRegenerated loads the user's progress, applies lazy regeneration, and
// persists the result only when it changed. A lost commit race on this read
// path is ignored: the winner already wrote fresher state.
func (s *SimuladoService) loadRegenerated(ctx context.Context, userID string) (domain.UserProgress, error) {
	progress, version, err := s.store.LoadForUpdate(ctx, userID)
	if err != nil {
		return domain.UserProgress{}, err
	}

	lives, nextLifeAt := domain.Regenerate(progress.Lives, progress.NextLifeAt, s.now())
	if lives != progress.Lives || !sameTime(nextLifeAt, progress.NextLifeAt) {
		progress.Lives = lives
		progress.NextLifeAt = nextLifeAt
		if err := s.store.Commit(ctx, progress, version); err != nil && !errors.Is(err, domain.ErrConflict) {
			return domain.UserProgress{}, err
		}
	}
	return progress, nil
}

// retireActiveAttempt clears a leftover active attempt before a new start: an
// untouched attempt is discarded from history, a partially answered one is
// force-completed as if the user had stopped mid-way.
func (s *SimuladoService) retireActiveAttempt(progress *domain.UserProgress, now time.Time) {
	if progress.Active == nil {
		return
	}
	defer func() { progress.Active = nil }()

	discipline := progress.Active.Discipline
	attempts := progress.Attempts[discipline]
	for i := range attempts {
		if attempts[i].ID != progress.Active.AttemptID {
			continue
		}
		if attempts[i].AnsweredCount() == 0 {
			progress.Attempts[discipline] = append(attempts[:i], attempts[i+1:]...)
			return
		}
		forceComplete(&attempts[i], now)
		return
	}
}

// forceComplete closes a partially answered attempt: unanswered questions are
// marked incorrect and the score freezes at the correct count so far.
func forceComplete(attempt *domain.Attempt, now time.Time) {
	for i := range attempt.Questions {
		if !attempt.Questions[i].Answered() {
			incorrect := false
			attempt.Questions[i].IsCorrect = &incorrect
		}
	}
	score := attempt.CorrectCount()
	attempt.Status = domain.AttemptCompleted
	attempt.Score = &score
	attempt.CompletedAt = &now
}

func findAttempt(progress *domain.UserProgress, discipline domain.Discipline, attemptID string) *domain.Attempt {
	attempts := progress.Attempts[discipline]
	for i := range attempts {
		if attempts[i].ID == attemptID {
			return &attempts[i]
		}
	}
	return nil
}

func summarize(progress domain.UserProgress) domain.ProgressSummary {
	return domain.ProgressSummary{
		Lives:      progress.Lives,
		NextLifeAt: progress.NextLifeAt,
		Points:     progress.Points,
		Level:      progress.Level(),
	}
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
