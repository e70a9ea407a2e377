package handler

import (
	"net/http"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/i18n"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"
)

func (h *Handler) handleListRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.store.ListRewards()
	if err != nil {
		serviceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rewards)
}

type redeemRequest struct {
	RewardID string `json:"reward_id"`
}

func (h *Handler) handleRedeem(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	var req redeemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.exam.Redeem(r.Context(), user.ID, req.RewardID)
	if err != nil {
		serviceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"redeemed": res,
		"message": i18n.Td(r.Context(), "RewardRedeemed", map[string]any{
			"Title": res.Reward.Title, "Remaining": res.Remaining,
		}),
	})
}

func (h *Handler) handleCurrentChallenge(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	state, err := h.exam.CurrentChallenge(r.Context(), user.ID)
	if err != nil {
		serviceError(w, err)
		return
	}
	if state == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"challenge": nil,
			"message":   i18n.T(r.Context(), "NoActiveChallenge"),
		})
		return
	}
	respondJSON(w, http.StatusOK, state)
}

type challengeProgressRequest struct {
	ChallengeID string `json:"challenge_id"`
	Increment   int    `json:"increment"`
}

func (h *Handler) handleChallengeProgress(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	var req challengeProgressRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := h.exam.AdvanceChallenge(r.Context(), user.ID, req.ChallengeID, req.Increment)
	if err != nil {
		serviceError(w, err)
		return
	}

	resp := map[string]any{"state": state}
	if state.FPAwarded > 0 {
		resp["message"] = i18n.Td(r.Context(), "ChallengeCompleted", map[string]any{"FP": state.FPAwarded})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListCourses(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	limit := queryInt(r, "limit", 50)
	courses, err := h.store.ListCourses(search, limit)
	if err != nil {
		serviceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, courses)
}

func (h *Handler) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	if user.CourseID == nil {
		respondJSON(w, http.StatusOK, map[string]any{"course": nil})
		return
	}
	course, err := h.store.GetCourse(*user.CourseID)
	if err != nil {
		serviceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"course": course})
}

type setCourseRequest struct {
	CourseID *string `json:"course_id"`
}

func (h *Handler) handleSetCourse(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	var req setCourseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CourseID != nil {
		course, err := h.store.GetCourse(*req.CourseID)
		if err != nil {
			serviceError(w, err)
			return
		}
		if course == nil {
			respondError(w, http.StatusBadRequest, "unknown course")
			return
		}
	}
	if err := h.store.SetUserCourse(user.ID, req.CourseID); err != nil {
		serviceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"course_id": req.CourseID})
}
