// Package handler exposes the JSON HTTP API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/auth"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/cache"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/exam"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/llm"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	exam    *exam.Service
	llm     *llm.Client
	auth    *auth.Manager
	cache   *cache.Cache
	limiter *cache.RateLimiter
}

// New creates a new Handler.
func New(st *store.Store, svc *exam.Service, l *llm.Client, am *auth.Manager, c *cache.Cache, rl *cache.RateLimiter) *Handler {
	return &Handler{store: st, exam: svc, llm: l, auth: am, cache: c, limiter: rl}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.handleRegister)
		r.Post("/auth/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Get("/auth/me", h.handleMe)

			r.Post("/exams/start", h.handleStartExam)
			r.Post("/exams/answer", h.handleAnswer)
			r.Post("/exams/finish", h.handleFinish)
			r.Get("/exams/history", h.handleHistory)
			r.Post("/exams/compare-score", h.handleCompareScore)

			r.Get("/users/stats", h.handleUserStats)
			r.Get("/users/profile", h.handleProfile)
			r.Get("/users/course", h.handleGetCourse)
			r.Put("/users/course", h.handleSetCourse)

			r.Get("/stats/by-area", h.handleStatsByArea)
			r.Get("/stats/evolution", h.handleEvolution)

			r.Get("/rewards", h.handleListRewards)
			r.Post("/rewards/redeem", h.handleRedeem)

			r.Get("/challenges/current", h.handleCurrentChallenge)
			r.Post("/challenges/progress", h.handleChallengeProgress)

			r.Get("/courses", h.handleListCourses)

			r.Post("/explain", h.handleExplain)
			r.Post("/explain/again", h.handleExplainAgain)
		})
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireAuth rejects requests without a valid bearer token and stores the
// authenticated user in the request context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, err := h.auth.Verify(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		user, err := h.store.GetUserByID(userID)
		if err != nil {
			slog.Error("load user for token", "error", err)
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if user == nil {
			respondError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		next.ServeHTTP(w, r.WithContext(model.ContextWithUser(r.Context(), user)))
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON parses a request body, refusing unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// serviceError maps core errors onto the HTTP taxonomy.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, exam.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, exam.ErrSessionFinalized):
		respondError(w, http.StatusConflict, "session already finalized")
	case errors.Is(err, exam.ErrNoQuestions):
		respondJSON(w, http.StatusConflict, map[string]string{
			"error": "no questions available for this discipline",
			"code":  "no_questions",
		})
	case errors.Is(err, exam.ErrInsufficientPoints):
		respondError(w, http.StatusBadRequest, "insufficient focus points")
	case errors.Is(err, exam.ErrInvalid):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, llm.ErrExhausted):
		respondError(w, http.StatusServiceUnavailable, "explanation service unavailable, try again later")
	default:
		slog.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
