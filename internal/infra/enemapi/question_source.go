package enemapi

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"enem-simulado-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// fetchLimit is how many catalog questions are pulled per discipline window;
// attempts sample from this pool so repeat attempts see different questions.
const fetchLimit = 50

// disciplineOffsets maps each discipline to its window in the catalog's
// question ordering (linguagens first, then humanas, natureza, matematica).
var disciplineOffsets = map[domain.Discipline]int{
	domain.LinguagensIngles:   0,
	domain.LinguagensEspanhol: 0,
	domain.CienciasHumanas:    46,
	domain.CienciasNatureza:   100,
	domain.Matematica:         150,
}

// Source adapts the catalog client to app.QuestionSource. Fetched pools are
// cached per (year, discipline) with a TTL so consecutive attempts don't
// hammer the catalog; singleflight collapses concurrent misses.
type Source struct {
	client *Client
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.Mutex
	rnd   *rand.Rand
	cache map[string]cachedPool
}

type cachedPool struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewSource(client *Client, ttl time.Duration) *Source {
	return &Source{
		client: client,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPool),
	}
}

// ListExams passes through to the catalog.
func (s *Source) ListExams(ctx context.Context) ([]domain.Exam, error) {
	return s.client.ListExams(ctx)
}

// Fetch returns exactly domain.QuestionsPerAttempt questions for the year and
// discipline, sampled uniformly without replacement from the discipline's
// catalog window.
func (s *Source) Fetch(ctx context.Context, year int, discipline domain.Discipline) ([]domain.Question, error) {
	pool, err := s.pool(ctx, year, discipline)
	if err != nil {
		return nil, err
	}
	if len(pool) < domain.QuestionsPerAttempt {
		return nil, fmt.Errorf("%w: got %d questions for %d/%s, need %d",
			domain.ErrInsufficientQuestions, len(pool), year, discipline, domain.QuestionsPerAttempt)
	}

	s.mu.Lock()
	order := s.rnd.Perm(len(pool))
	s.mu.Unlock()

	questions := make([]domain.Question, domain.QuestionsPerAttempt)
	for i := 0; i < domain.QuestionsPerAttempt; i++ {
		q := pool[order[i]]
		q.Index = i
		questions[i] = q
	}
	return questions, nil
}

func (s *Source) pool(ctx context.Context, year int, discipline domain.Discipline) ([]domain.Question, error) {
	key := fmt.Sprintf("%d/%s", year, discipline)
	now := s.clock()

	s.mu.Lock()
	if entry, ok := s.cache[key]; ok && entry.expiresAt.After(now) {
		s.mu.Unlock()
		return entry.questions, nil
	}
	s.mu.Unlock()

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		now := s.clock()
		s.mu.Lock()
		if entry, ok := s.cache[key]; ok && entry.expiresAt.After(now) {
			s.mu.Unlock()
			return entry.questions, nil
		}
		s.mu.Unlock()

		payload, err := s.client.Questions(ctx, year, disciplineOffsets[discipline], fetchLimit, discipline.Language())
		if err != nil {
			return nil, err
		}
		questions := normalize(payload, year)
		ttl := s.ttlWithJitter()

		s.mu.Lock()
		s.cache[key] = cachedPool{questions: questions, expiresAt: now.Add(ttl)}
		s.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// normalize converts catalog payloads into question snapshots, applying the
// defaults the engine relies on and dropping entries without a usable answer
// key.
func normalize(payload []questionPayload, year int) []domain.Question {
	questions := make([]domain.Question, 0, len(payload))
	for _, p := range payload {
		correct := p.CorrectAlternative
		alternatives := make([]domain.Alternative, 0, len(p.Alternatives))
		for _, alt := range p.Alternatives {
			text := alt.Text
			if text == "" {
				text = "Alternativa sem texto"
			}
			alternatives = append(alternatives, domain.Alternative{
				Letter: alt.Letter,
				Text:   text,
				File:   alt.File,
			})
			if correct == "" && alt.IsCorrect {
				correct = alt.Letter
			}
		}
		if correct == "" || len(alternatives) == 0 {
			continue
		}

		qYear := p.Year
		if qYear == 0 {
			qYear = year
		}
		questions = append(questions, domain.Question{
			QuestionID:               fmt.Sprintf("%d-%d", qYear, p.Index),
			Year:                     qYear,
			Title:                    p.Title,
			Context:                  p.Context,
			Files:                    p.Files,
			AlternativesIntroduction: p.AlternativesIntroduction,
			Alternatives:             alternatives,
			CorrectAlternative:       correct,
		})
	}
	return questions
}

func (s *Source) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
