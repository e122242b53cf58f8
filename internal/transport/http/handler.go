package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"enem-simulado-service/internal/app"
	"enem-simulado-service/internal/domain"
)

// Handler exposes the simulado use cases over HTTP. Authentication is handled
// upstream; the authenticated user id arrives in the X-User-ID header.
type Handler struct {
	service *app.SimuladoService
}

func NewHandler(service *app.SimuladoService) *Handler {
	return &Handler{service: service}
}

// Routes wires every endpoint into a mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /users", h.registerUser)
	mux.HandleFunc("GET /home", h.home)
	mux.HandleFunc("GET /simulado/topics", h.topics)
	mux.HandleFunc("POST /simulado/start", h.startAttempt)
	mux.HandleFunc("POST /simulado/answer", h.submitAnswer)
	mux.HandleFunc("GET /simulado/status", h.status)
	mux.HandleFunc("GET /simulado/{discipline}/attempts", h.listAttempts)
	mux.HandleFunc("GET /simulado/{discipline}/{number}", h.attemptDetails)
	mux.HandleFunc("GET /ws/lives", h.serveLivesWS)
	return mux
}

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	summary, err := h.service.RegisterUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	summary, err := h.service.GetSummary(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) topics(w http.ResponseWriter, r *http.Request) {
	exams, err := h.service.ListExams(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": exams})
}

type startRequest struct {
	Year       int    `json:"year"`
	Discipline string `json:"discipline"`
	Language   string `json:"language"`
}

func (h *Handler) startAttempt(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Year == 0 || req.Discipline == "" {
		writeMessage(w, http.StatusBadRequest, "year and discipline are required")
		return
	}

	result, err := h.service.StartAttempt(r.Context(), userID, req.Year, req.Discipline, req.Language)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type answerRequest struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.QuestionID == "" || req.Answer == "" {
		writeMessage(w, http.StatusBadRequest, "questionId and answer are required")
		return
	}

	feedback, err := h.service.SubmitAnswer(r.Context(), userID, req.QuestionID, req.Answer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feedback)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	status, err := h.service.GetStatus(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) listAttempts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	attempts, err := h.service.ListAttempts(r.Context(), userID,
		r.PathValue("discipline"), r.URL.Query().Get("language"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}

func (h *Handler) attemptDetails(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number < 1 {
		writeMessage(w, http.StatusBadRequest, "invalid attempt number")
		return
	}
	detail, err := h.service.GetAttemptDetails(r.Context(), userID,
		r.PathValue("discipline"), r.URL.Query().Get("language"), number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		writeMessage(w, http.StatusUnauthorized, "missing X-User-ID header")
		return "", false
	}
	return id, true
}

type errorResponse struct {
	Message    string     `json:"message"`
	NextLifeAt *time.Time `json:"nextLifeAt,omitempty"`
}

// writeError maps engine errors to HTTP statuses. Conflict is the one status
// a client resolves by retrying; unexpected errors are logged and returned as
// an opaque 500.
func writeError(w http.ResponseWriter, err error) {
	var noLives *domain.NoLivesError
	if errors.As(err, &noLives) {
		writeJSON(w, http.StatusForbidden, errorResponse{
			Message:    "no lives available",
			NextLifeAt: noLives.NextLifeAt,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidDiscipline):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoLivesAvailable),
		errors.Is(err, domain.ErrAttemptLimitReached):
		writeMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrNoActiveAttempt):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrOutOfOrder),
		errors.Is(err, domain.ErrAlreadyAnswered),
		errors.Is(err, domain.ErrUserExists),
		errors.Is(err, domain.ErrConflict):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrQuestionSource),
		errors.Is(err, domain.ErrInsufficientQuestions):
		writeMessage(w, http.StatusBadGateway, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
