package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/llm"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"
)

type explainRequest struct {
	QuestionID  int64  `json:"question_id"`
	MarkedIndex *int   `json:"marked_index"`
	Level       string `json:"level"`
}

type explainResponse struct {
	QuestionID  int64  `json:"question_id"`
	Level       string `json:"level"`
	Explanation string `json:"explanation"`
	Cached      bool   `json:"cached"`
}

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	h.explain(w, r, false)
}

// handleExplainAgain re-explains with a simpler level, bypassing the cache
// so the student gets a fresh rendition.
func (h *Handler) handleExplainAgain(w http.ResponseWriter, r *http.Request) {
	h.explain(w, r, true)
}

func (h *Handler) explain(w http.ResponseWriter, r *http.Request, skipCache bool) {
	user := model.UserFromContext(r.Context())
	var req explainRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Level == "" {
		req.Level = string(llm.LevelNormal)
	}
	if !llm.ValidLevel(req.Level) {
		respondError(w, http.StatusBadRequest, "unknown simplification level")
		return
	}
	if req.MarkedIndex != nil && (*req.MarkedIndex < 0 || *req.MarkedIndex >= model.OptionCount) {
		respondError(w, http.StatusBadRequest, "marked index out of range")
		return
	}

	question, err := h.store.GetQuestion(req.QuestionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "question not found")
			return
		}
		serviceError(w, err)
		return
	}

	llmReq := llm.ExplainRequest{
		Question: question,
		Marked:   req.MarkedIndex,
		Level:    llm.Level(req.Level),
	}
	key := llmReq.CacheKey()

	if !skipCache {
		if text, ok := h.cache.Get(key); ok {
			respondJSON(w, http.StatusOK, explainResponse{
				QuestionID: question.ID, Level: req.Level, Explanation: text, Cached: true,
			})
			return
		}
	}

	if !h.limiter.Allow(user.ID) {
		respondError(w, http.StatusTooManyRequests, "too many explanation requests, slow down")
		return
	}

	text, err := h.llm.Explain(r.Context(), llmReq)
	if err != nil {
		serviceError(w, err)
		return
	}
	h.cache.Set(key, text)

	respondJSON(w, http.StatusOK, explainResponse{
		QuestionID: question.ID, Level: req.Level, Explanation: text, Cached: false,
	})
}
