package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/exam"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/i18n"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"
)

type startRequest struct {
	Discipline string `json:"discipline"`
	Count      int    `json:"count"`
}

func (h *Handler) handleStartExam(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.exam.Start(r.Context(), user.ID, req.Discipline, req.Count)
	if err != nil {
		serviceError(w, err)
		return
	}
	if res.Repeated > 0 {
		slog.Warn("question bank short, repeating seen questions",
			"user", user.ID, "discipline", req.Discipline,
			"fresh", res.Fresh, "repeated", res.Repeated)
	}
	respondJSON(w, http.StatusCreated, res)
}

type answerRequest struct {
	SessionID   int64 `json:"session_id"`
	QuestionID  int64 `json:"question_id"`
	MarkedIndex *int  `json:"marked_index"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.exam.RecordAnswer(r.Context(), user.ID, req.SessionID, req.QuestionID, req.MarkedIndex)
	if err != nil {
		serviceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

type finishRequest struct {
	SessionID int64 `json:"session_id"`
}

func (h *Handler) handleFinish(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	var req finishRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.exam.Finish(r.Context(), user.ID, req.SessionID)
	if err != nil {
		serviceError(w, err)
		return
	}

	type finishResponse struct {
		*exam.ScoreResult
		Message string `json:"message"`
		Warning string `json:"warning,omitempty"`
	}
	resp := finishResponse{
		ScoreResult: res,
		Message:     i18n.T(r.Context(), res.Label),
	}
	if res.Repeated > 0 {
		resp.Warning = i18n.T(r.Context(), "RepeatedQuestions")
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	limit := queryInt(r, "limit", 20)
	history, err := h.exam.History(r.Context(), user.ID, limit)
	if err != nil {
		serviceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

type compareRequest struct {
	SessionID int64  `json:"session_id"`
	CourseID  string `json:"course_id"`
}

func (h *Handler) handleCompareScore(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	var req compareRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cmp, err := h.exam.CompareScore(r.Context(), user.ID, req.SessionID, req.CourseID)
	if err != nil {
		serviceError(w, err)
		return
	}

	msgID := "CutoffNotMet"
	data := map[string]any{
		"Course": cmp.CourseName, "Cutoff": cmp.Cutoff,
		"Score": cmp.Score, "Difference": -cmp.Difference,
	}
	if cmp.MetCutoff {
		msgID = "CutoffMet"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"comparison": cmp,
		"message":    i18n.Td(r.Context(), msgID, data),
	})
}

func (h *Handler) handleUserStats(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	stats, err := h.exam.UserStats(r.Context(), user.ID)
	if err != nil {
		serviceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	stats, err := h.exam.UserStats(r.Context(), user.ID)
	if err != nil {
		serviceError(w, err)
		return
	}
	claims, err := h.store.RewardClaimCount(user.ID)
	if err != nil {
		serviceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user":            user,
		"stats":           stats,
		"rewards_claimed": claims,
	})
}

func (h *Handler) handleStatsByArea(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	areas, err := h.exam.StatsByArea(r.Context(), user.ID)
	if err != nil {
		serviceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, areas)
}

func (h *Handler) handleEvolution(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	limit := queryInt(r, "limit", 30)
	points, err := h.exam.Evolution(r.Context(), user.ID, limit)
	if err != nil {
		serviceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, points)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
