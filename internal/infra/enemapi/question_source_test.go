package enemapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"enem-simulado-service/internal/domain"
)

func catalogHandler(t *testing.T, questionCount int, calls *int) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/exams", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"year": 2020, "title": "ENEM 2020"},
			{"year": 2021, "title": "ENEM 2021"},
		})
	})
	mux.HandleFunc("/exams/2020/questions", func(w http.ResponseWriter, r *http.Request) {
		*calls++
		if got := r.URL.Query().Get("offset"); got != "150" {
			t.Errorf("expected matematica offset 150, got %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "50" {
			t.Errorf("expected limit 50, got %q", got)
		}

		questions := make([]map[string]any, 0, questionCount)
		for i := 0; i < questionCount; i++ {
			questions = append(questions, map[string]any{
				"index":   150 + i,
				"year":    2020,
				"title":   fmt.Sprintf("Questão %d", 150+i),
				"context": "enunciado",
				"alternatives": []map[string]any{
					{"letter": "A", "text": "primeira", "isCorrect": true},
					{"letter": "B", "text": ""},
					{"letter": "C", "text": "terceira"},
				},
				"correctAlternative": "A",
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"questions": questions})
	})
	return mux
}

func TestFetchSamplesExactlyTen(t *testing.T) {
	calls := 0
	server := httptest.NewServer(catalogHandler(t, 50, &calls))
	defer server.Close()

	source := NewSource(NewClient(server.URL), time.Minute)
	questions, err := source.Fetch(context.Background(), 2020, domain.Matematica)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(questions) != domain.QuestionsPerAttempt {
		t.Fatalf("expected %d questions, got %d", domain.QuestionsPerAttempt, len(questions))
	}

	seen := make(map[string]bool)
	for i, q := range questions {
		if q.Index != i {
			t.Fatalf("expected reindexed question at %d, got index %d", i, q.Index)
		}
		if q.CorrectAlternative == "" {
			t.Fatalf("question %s lost its answer key", q.QuestionID)
		}
		if seen[q.QuestionID] {
			t.Fatalf("question %s sampled twice", q.QuestionID)
		}
		seen[q.QuestionID] = true
	}
}

func TestFetchAppliesDefaults(t *testing.T) {
	calls := 0
	server := httptest.NewServer(catalogHandler(t, 50, &calls))
	defer server.Close()

	source := NewSource(NewClient(server.URL), time.Minute)
	questions, err := source.Fetch(context.Background(), 2020, domain.Matematica)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	for _, q := range questions {
		for _, alt := range q.Alternatives {
			if alt.Text == "" {
				t.Fatalf("alternative %s of %s has empty text", alt.Letter, q.QuestionID)
			}
		}
	}
}

func TestFetchCachesPool(t *testing.T) {
	calls := 0
	server := httptest.NewServer(catalogHandler(t, 50, &calls))
	defer server.Close()

	source := NewSource(NewClient(server.URL), time.Minute)
	if _, err := source.Fetch(context.Background(), 2020, domain.Matematica); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := source.Fetch(context.Background(), 2020, domain.Matematica); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one catalog hit, got %d", calls)
	}
}

func TestFetchInsufficientQuestions(t *testing.T) {
	calls := 0
	server := httptest.NewServer(catalogHandler(t, 5, &calls))
	defer server.Close()

	source := NewSource(NewClient(server.URL), time.Minute)
	_, err := source.Fetch(context.Background(), 2020, domain.Matematica)
	if !errors.Is(err, domain.ErrInsufficientQuestions) {
		t.Fatalf("expected ErrInsufficientQuestions, got %v", err)
	}
}

func TestFetchCatalogDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	source := NewSource(NewClient(server.URL), time.Minute)
	_, err := source.Fetch(context.Background(), 2020, domain.Matematica)
	if !errors.Is(err, domain.ErrQuestionSource) {
		t.Fatalf("expected ErrQuestionSource, got %v", err)
	}
}

func TestFetchPassesLanguage(t *testing.T) {
	var gotLanguage, gotOffset string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLanguage = r.URL.Query().Get("language")
		gotOffset = r.URL.Query().Get("offset")
		json.NewEncoder(w).Encode(map[string]any{"questions": []any{}})
	}))
	defer server.Close()

	source := NewSource(NewClient(server.URL), time.Minute)
	_, err := source.Fetch(context.Background(), 2020, domain.LinguagensIngles)
	if !errors.Is(err, domain.ErrInsufficientQuestions) {
		t.Fatalf("expected ErrInsufficientQuestions on empty window, got %v", err)
	}
	if gotLanguage != "ingles" {
		t.Fatalf("expected language=ingles, got %q", gotLanguage)
	}
	if gotOffset != "0" {
		t.Fatalf("expected linguagens offset 0, got %q", gotOffset)
	}
}

func TestListExams(t *testing.T) {
	calls := 0
	server := httptest.NewServer(catalogHandler(t, 50, &calls))
	defer server.Close()

	source := NewSource(NewClient(server.URL), time.Minute)
	exams, err := source.ListExams(context.Background())
	if err != nil {
		t.Fatalf("list exams: %v", err)
	}
	if len(exams) != 2 || exams[0].Year != 2020 {
		t.Fatalf("unexpected exams %+v", exams)
	}
}
