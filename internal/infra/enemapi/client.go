package enemapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"enem-simulado-service/internal/domain"
)

// DefaultBaseURL is the public enem.dev catalog.
const DefaultBaseURL = "https://api.enem.dev/v1"

// Client is a thin HTTP client for the exam catalog:
//
//	GET /exams
//	GET /exams/{year}/questions?offset&limit&language
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type examPayload struct {
	Year  int    `json:"year"`
	Title string `json:"title"`
}

type questionsPayload struct {
	Questions []questionPayload `json:"questions"`
}

type questionPayload struct {
	Index                    int                  `json:"index"`
	Year                     int                  `json:"year"`
	Title                    string               `json:"title"`
	Context                  string               `json:"context"`
	Files                    []string             `json:"files"`
	AlternativesIntroduction string               `json:"alternativesIntroduction"`
	Alternatives             []alternativePayload `json:"alternatives"`
	CorrectAlternative       string               `json:"correctAlternative"`
}

type alternativePayload struct {
	Letter    string `json:"letter"`
	Text      string `json:"text"`
	File      string `json:"file"`
	IsCorrect bool   `json:"isCorrect"`
}

// ListExams fetches the available exam years.
func (c *Client) ListExams(ctx context.Context) ([]domain.Exam, error) {
	var payload []examPayload
	if err := c.getJSON(ctx, c.baseURL+"/exams", &payload); err != nil {
		return nil, err
	}
	exams := make([]domain.Exam, 0, len(payload))
	for _, e := range payload {
		exams = append(exams, domain.Exam{Year: e.Year, Title: e.Title})
	}
	return exams, nil
}

// Questions fetches a window of an exam's question list.
func (c *Client) Questions(ctx context.Context, year, offset, limit int, language string) ([]questionPayload, error) {
	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))
	if language != "" {
		query.Set("language", language)
	}
	endpoint := fmt.Sprintf("%s/exams/%d/questions?%s", c.baseURL, year, query.Encode())

	var payload questionsPayload
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Questions, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQuestionSource, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQuestionSource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: catalog returned status %d", domain.ErrQuestionSource, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrQuestionSource, err)
	}
	return nil
}
