package memory

import (
	"context"
	"fmt"

	"enem-simulado-service/internal/domain"
)

// StaticQuestionSource serves fixed question sets keyed by year and
// discipline (useful for tests and demos).
type StaticQuestionSource struct {
	exams     []domain.Exam
	questions map[string][]domain.Question
}

func NewStaticQuestionSource(exams []domain.Exam) *StaticQuestionSource {
	return &StaticQuestionSource{
		exams:     exams,
		questions: make(map[string][]domain.Question),
	}
}

// Add registers the question set served for a year and discipline.
func (s *StaticQuestionSource) Add(year int, discipline domain.Discipline, questions []domain.Question) {
	s.questions[key(year, discipline)] = questions
}

func (s *StaticQuestionSource) Fetch(_ context.Context, year int, discipline domain.Discipline) ([]domain.Question, error) {
	questions, ok := s.questions[key(year, discipline)]
	if !ok {
		return nil, domain.ErrQuestionSource
	}
	if len(questions) < domain.QuestionsPerAttempt {
		return nil, domain.ErrInsufficientQuestions
	}
	out := make([]domain.Question, domain.QuestionsPerAttempt)
	copy(out, questions)
	return out, nil
}

func (s *StaticQuestionSource) ListExams(_ context.Context) ([]domain.Exam, error) {
	return s.exams, nil
}

func key(year int, discipline domain.Discipline) string {
	return fmt.Sprintf("%d/%s", year, discipline)
}
