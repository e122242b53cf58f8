package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidDiscipline is returned for unknown disciplines or a bare
	// "linguagens" selector without a valid language.
	ErrInvalidDiscipline = errors.New("discipline not recognized")
	// ErrNoLivesAvailable is returned when a user with zero lives tries to start an attempt.
	ErrNoLivesAvailable = errors.New("no lives available")
	// ErrAttemptLimitReached is returned when a discipline already has the maximum completed attempts.
	ErrAttemptLimitReached = errors.New("attempt limit reached for discipline")
	// ErrQuestionSource indicates the exam catalog could not be reached or answered with an error.
	ErrQuestionSource = errors.New("question source unavailable")
	// ErrInsufficientQuestions indicates the catalog returned fewer questions than an attempt needs.
	ErrInsufficientQuestions = errors.New("not enough questions available")
	// ErrNoActiveAttempt is returned when an answer is submitted with no attempt in progress.
	ErrNoActiveAttempt = errors.New("no active attempt")
	// ErrQuestionNotFound indicates a submitted question id is not part of the active attempt.
	ErrQuestionNotFound = errors.New("question not found in active attempt")
	// ErrOutOfOrder indicates an answer for a question other than the current one.
	ErrOutOfOrder = errors.New("question answered out of order")
	// ErrAlreadyAnswered indicates a repeat submission for an answered question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrConflict is returned when a commit loses an optimistic-concurrency race.
	// The only error a client is expected to resolve by retrying.
	ErrConflict = errors.New("progress modified concurrently")
	// ErrUserNotFound indicates the progress record does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists indicates a progress record is already registered for the user.
	ErrUserExists = errors.New("user already registered")
	// ErrAttemptNotFound indicates no attempt matches the requested discipline and number.
	ErrAttemptNotFound = errors.New("attempt not found")
)

// NoLivesError carries the next regeneration time alongside ErrNoLivesAvailable
// so callers can tell the user when to come back.
type NoLivesError struct {
	NextLifeAt *time.Time
}

func (e *NoLivesError) Error() string {
	if e.NextLifeAt == nil {
		return ErrNoLivesAvailable.Error()
	}
	return fmt.Sprintf("no lives available, next life at %s", e.NextLifeAt.Format(time.RFC3339))
}

func (e *NoLivesError) Unwrap() error { return ErrNoLivesAvailable }
