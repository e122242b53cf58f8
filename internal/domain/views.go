package domain

import "time"

// QuestionView is the client-facing shape of a question while its attempt is
// still active: everything except the correct alternative and answer state.
type QuestionView struct {
	QuestionID               string        `json:"questionId"`
	Index                    int           `json:"index"`
	Year                     int           `json:"year"`
	Title                    string        `json:"title"`
	Context                  string        `json:"context"`
	Files                    []string      `json:"files,omitempty"`
	AlternativesIntroduction string        `json:"alternativesIntroduction,omitempty"`
	Alternatives             []Alternative `json:"alternatives"`
}

// View strips the correct alternative and answer bookkeeping from a question.
func (q Question) View() QuestionView {
	return QuestionView{
		QuestionID:               q.QuestionID,
		Index:                    q.Index,
		Year:                     q.Year,
		Title:                    q.Title,
		Context:                  q.Context,
		Files:                    q.Files,
		AlternativesIntroduction: q.AlternativesIntroduction,
		Alternatives:             q.Alternatives,
	}
}

// QuestionReview is the post-attempt shape of a question: the correct
// alternative is revealed once the attempt is terminal.
type QuestionReview struct {
	QuestionView
	CorrectAlternative string     `json:"correctAlternative,omitempty"`
	UserAnswer         string     `json:"userAnswer,omitempty"`
	IsCorrect          *bool      `json:"isCorrect,omitempty"`
	AnsweredAt         *time.Time `json:"answeredAt,omitempty"`
}

// StartResult is returned by a successful attempt start.
type StartResult struct {
	AttemptID     string         `json:"attemptId"`
	AttemptNumber int            `json:"attemptNumber"`
	Discipline    Discipline     `json:"discipline"`
	Year          int            `json:"year"`
	Questions     []QuestionView `json:"questions"`
	Lives         int            `json:"lives"`
	Points        int            `json:"points"`
	Level         int            `json:"level"`
}

// AnswerFeedback is returned after every answer submission. Failed marks the
// terminal life-exhaustion outcome; Completed the terminal all-answered one.
type AnswerFeedback struct {
	Correct     bool       `json:"correct"`
	Explanation string     `json:"explanation,omitempty"`
	PointsDelta int        `json:"pointsDelta"`
	Points      int        `json:"points"`
	Level       int        `json:"level"`
	Lives       int        `json:"lives"`
	Completed   bool       `json:"completed"`
	Failed      bool       `json:"failed"`
	Score       *int       `json:"score,omitempty"`
	NextLifeAt  *time.Time `json:"nextLifeAt,omitempty"`
}

// AttemptStatusView reports whether an attempt is in progress and where.
type AttemptStatusView struct {
	Active        bool       `json:"active"`
	Discipline    Discipline `json:"discipline,omitempty"`
	AttemptNumber int        `json:"attemptNumber,omitempty"`
	QuestionIndex int        `json:"questionIndex,omitempty"`
	Lives         int        `json:"lives"`
	NextLifeAt    *time.Time `json:"nextLifeAt,omitempty"`
}

// ProgressSummary is the home-screen view of a user's gamification state.
type ProgressSummary struct {
	Lives      int        `json:"lives"`
	NextLifeAt *time.Time `json:"nextLifeAt,omitempty"`
	Points     int        `json:"points"`
	Level      int        `json:"level"`
}

// AttemptSummary is one row of a discipline's attempt history.
type AttemptSummary struct {
	AttemptNumber int           `json:"attemptNumber"`
	Year          int           `json:"year"`
	Status        AttemptStatus `json:"status"`
	Score         *int          `json:"score,omitempty"`
	StartedAt     time.Time     `json:"startedAt"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty"`
}

// AttemptDetail is the full review of a single attempt.
type AttemptDetail struct {
	AttemptID     string           `json:"attemptId"`
	Discipline    Discipline       `json:"discipline"`
	AttemptNumber int              `json:"attemptNumber"`
	Year          int              `json:"year"`
	Status        AttemptStatus    `json:"status"`
	Score         *int             `json:"score,omitempty"`
	StartedAt     time.Time        `json:"startedAt"`
	CompletedAt   *time.Time       `json:"completedAt,omitempty"`
	Questions     []QuestionReview `json:"questions"`
}

// Detail builds the review view of an attempt. The correct alternative is
// included only for terminal attempts.
func (a Attempt) Detail() AttemptDetail {
	detail := AttemptDetail{
		AttemptID:     a.ID,
		Discipline:    a.Discipline,
		AttemptNumber: a.AttemptNumber,
		Year:          a.Year,
		Status:        a.Status,
		Score:         a.Score,
		StartedAt:     a.StartedAt,
		CompletedAt:   a.CompletedAt,
		Questions:     make([]QuestionReview, 0, len(a.Questions)),
	}
	for _, q := range a.Questions {
		review := QuestionReview{
			QuestionView: q.View(),
			UserAnswer:   q.UserAnswer,
			IsCorrect:    q.IsCorrect,
			AnsweredAt:   q.AnsweredAt,
		}
		if a.Status.Terminal() {
			review.CorrectAlternative = q.CorrectAlternative
		}
		detail.Questions = append(detail.Questions, review)
	}
	return detail
}

// Summary builds the history-row view of an attempt.
func (a Attempt) Summary() AttemptSummary {
	return AttemptSummary{
		AttemptNumber: a.AttemptNumber,
		Year:          a.Year,
		Status:        a.Status,
		Score:         a.Score,
		StartedAt:     a.StartedAt,
		CompletedAt:   a.CompletedAt,
	}
}
