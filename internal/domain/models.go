package domain

import "time"

// Canonical gamification policy. Earlier product drafts drifted between life
// ceilings of 10 and 40 and level divisors of 15 and 20; these values are the
// ones the shipped user schema and level endpoints agreed on.
const (
	// MaxLives caps the shared life pool across all disciplines.
	MaxLives = 10
	// RegenInterval is how long a single life takes to regenerate.
	RegenInterval = 3 * time.Hour
	// LevelDivisor converts accumulated points into a level.
	LevelDivisor = 20
	// QuestionsPerAttempt is the fixed size of every attempt.
	QuestionsPerAttempt = 10
	// MaxAttemptsPerDiscipline bounds completed attempts per discipline.
	MaxAttemptsPerDiscipline = 10
)

// AttemptStatus is the lifecycle state of an attempt. Completed and failed
// are terminal; a terminal attempt is never mutated again.
type AttemptStatus string

const (
	AttemptActive    AttemptStatus = "active"
	AttemptCompleted AttemptStatus = "completed"
	AttemptFailed    AttemptStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptCompleted || s == AttemptFailed
}

// Alternative is one answer choice of a question.
type Alternative struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
	File   string `json:"file,omitempty"`
}

// Question is a snapshot embedded in an attempt at creation time, not a live
// reference into the catalog. CorrectAlternative is stored here but must never
// reach the client while the attempt is active.
type Question struct {
	QuestionID               string        `json:"questionId"`
	Index                    int           `json:"index"`
	Year                     int           `json:"year"`
	Title                    string        `json:"title"`
	Context                  string        `json:"context"`
	Files                    []string      `json:"files,omitempty"`
	AlternativesIntroduction string        `json:"alternativesIntroduction,omitempty"`
	Alternatives             []Alternative `json:"alternatives"`
	CorrectAlternative       string        `json:"correctAlternative"`
	UserAnswer               string        `json:"userAnswer,omitempty"`
	IsCorrect                *bool         `json:"isCorrect,omitempty"`
	AnsweredAt               *time.Time    `json:"answeredAt,omitempty"`
}

// Answered reports whether the user has submitted an answer for the question.
func (q Question) Answered() bool { return q.UserAnswer != "" }

// Attempt is one instance of a user taking a fixed-size question set in a
// discipline. AttemptNumber counts completed attempts in the discipline at
// creation time, plus one.
type Attempt struct {
	ID            string        `json:"id"`
	Discipline    Discipline    `json:"discipline"`
	AttemptNumber int           `json:"attemptNumber"`
	Year          int           `json:"year"`
	Questions     []Question    `json:"questions"`
	Status        AttemptStatus `json:"status"`
	StartedAt     time.Time     `json:"startedAt"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty"`
	Score         *int          `json:"score,omitempty"`
}

// CorrectCount tallies the questions answered correctly so far.
func (a Attempt) CorrectCount() int {
	count := 0
	for _, q := range a.Questions {
		if q.IsCorrect != nil && *q.IsCorrect {
			count++
		}
	}
	return count
}

// AnsweredCount tallies the questions the user has answered.
func (a Attempt) AnsweredCount() int {
	count := 0
	for _, q := range a.Questions {
		if q.Answered() {
			count++
		}
	}
	return count
}

// ActiveAttemptRef points at the single in-progress attempt of a user.
// QuestionIndex is the position the next answer must target.
type ActiveAttemptRef struct {
	Discipline    Discipline `json:"discipline"`
	AttemptID     string     `json:"attemptId"`
	QuestionIndex int        `json:"questionIndex"`
	StartedAt     time.Time  `json:"startedAt"`
}

// UserProgress is the per-user aggregate. It is owned exclusively by that
// user's requests and mutated only through an atomic load/commit cycle; the
// store enforces the version discipline.
type UserProgress struct {
	UserID     string                   `json:"userId"`
	Lives      int                      `json:"lives"`
	NextLifeAt *time.Time               `json:"nextLifeAt,omitempty"`
	Points     int                      `json:"points"`
	Attempts   map[Discipline][]Attempt `json:"attempts"`
	Active     *ActiveAttemptRef        `json:"activeAttempt,omitempty"`
}

// NewUserProgress returns a fresh record with a full life pool.
func NewUserProgress(userID string) UserProgress {
	return UserProgress{
		UserID:   userID,
		Lives:    MaxLives,
		Attempts: make(map[Discipline][]Attempt),
	}
}

// Level derives the level for a point total. Levels are never stored; they are
// recomputed whenever points change.
func Level(points int) int {
	if points < 0 {
		points = 0
	}
	return points/LevelDivisor + 1
}

// Level derives the user's current level from their points.
func (p UserProgress) Level() int { return Level(p.Points) }

// CompletedAttempts counts completed (not failed) attempts in a discipline.
func (p UserProgress) CompletedAttempts(d Discipline) int {
	count := 0
	for _, a := range p.Attempts[d] {
		if a.Status == AttemptCompleted {
			count++
		}
	}
	return count
}

// Clone deep-copies the aggregate so stores can hand out mutable snapshots
// without aliasing their own state.
func (p UserProgress) Clone() UserProgress {
	out := p
	out.NextLifeAt = copyTime(p.NextLifeAt)
	if p.Active != nil {
		ref := *p.Active
		out.Active = &ref
	}
	out.Attempts = make(map[Discipline][]Attempt, len(p.Attempts))
	for d, attempts := range p.Attempts {
		copied := make([]Attempt, len(attempts))
		for i, a := range attempts {
			copied[i] = a.clone()
		}
		out.Attempts[d] = copied
	}
	return out
}

func (a Attempt) clone() Attempt {
	out := a
	out.CompletedAt = copyTime(a.CompletedAt)
	if a.Score != nil {
		score := *a.Score
		out.Score = &score
	}
	out.Questions = make([]Question, len(a.Questions))
	for i, q := range a.Questions {
		out.Questions[i] = q.clone()
	}
	return out
}

func (q Question) clone() Question {
	out := q
	out.AnsweredAt = copyTime(q.AnsweredAt)
	if q.IsCorrect != nil {
		correct := *q.IsCorrect
		out.IsCorrect = &correct
	}
	out.Files = append([]string(nil), q.Files...)
	out.Alternatives = append([]Alternative(nil), q.Alternatives...)
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}

// Exam is one entry of the catalog's exam listing.
type Exam struct {
	Year  int    `json:"year"`
	Title string `json:"title,omitempty"`
}
