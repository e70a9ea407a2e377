package exam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"
)

// ErrInsufficientPoints is returned when a redemption costs more than the
// user's focus-point balance.
var ErrInsufficientPoints = errors.New("insufficient focus points")

// RedeemResult reports the outcome of a reward redemption.
type RedeemResult struct {
	Reward    model.Reward `json:"reward"`
	Remaining int          `json:"remaining_points"`
	Level     model.Level  `json:"level"`
}

// Redeem deducts a reward's cost from the user's balance and records the
// claim. The deduction is conditional, the balance never goes negative.
func (s *Service) Redeem(ctx context.Context, userID, rewardID string) (*RedeemResult, error) {
	reward, err := s.store.GetReward(rewardID)
	if err != nil {
		return nil, fmt.Errorf("load reward: %w", err)
	}
	if reward == nil || !reward.Available {
		return nil, fmt.Errorf("%w: reward %q not found", ErrInvalid, rewardID)
	}

	remaining, ok, err := s.store.SpendPoints(userID, reward.CostFP)
	if err != nil {
		return nil, fmt.Errorf("spend points: %w", err)
	}
	if !ok {
		return nil, ErrInsufficientPoints
	}
	if err := s.store.RecordRewardClaim(userID, rewardID); err != nil {
		return nil, fmt.Errorf("record claim: %w", err)
	}

	return &RedeemResult{
		Reward:    *reward,
		Remaining: remaining,
		Level:     model.LevelForPoints(remaining),
	}, nil
}

// ChallengeState pairs the active weekly challenge with the user's progress.
type ChallengeState struct {
	Challenge model.WeeklyChallenge `json:"challenge"`
	Progress  int                   `json:"progress"`
	Completed bool                  `json:"completed"`
	FPAwarded int                   `json:"fp_awarded,omitempty"`
}

// CurrentChallenge returns the active weekly challenge with the user's
// progress, or nil when no challenge window covers now.
func (s *Service) CurrentChallenge(ctx context.Context, userID string) (*ChallengeState, error) {
	ch, err := s.store.ActiveChallenge(time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("load challenge: %w", err)
	}
	if ch == nil {
		return nil, nil
	}
	p, err := s.store.GetOrCreateProgress(userID, ch.ID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return &ChallengeState{Challenge: *ch, Progress: p.Progress, Completed: p.Completed}, nil
}

// AdvanceChallenge increments the user's progress on a challenge. Crossing
// the goal marks it completed and awards the challenge's focus points once;
// further increments on a completed challenge are no-ops.
func (s *Service) AdvanceChallenge(ctx context.Context, userID, challengeID string, increment int) (*ChallengeState, error) {
	if increment < 1 {
		return nil, fmt.Errorf("%w: increment must be positive", ErrInvalid)
	}
	ch, err := s.store.GetChallenge(challengeID)
	if err != nil {
		return nil, fmt.Errorf("load challenge: %w", err)
	}
	if ch == nil {
		return nil, fmt.Errorf("%w: challenge %q not found", ErrInvalid, challengeID)
	}
	now := time.Now().UTC()
	if now.Before(ch.StartsAt) || now.After(ch.EndsAt) {
		return nil, fmt.Errorf("%w: challenge %q is not active", ErrInvalid, challengeID)
	}

	p, err := s.store.GetOrCreateProgress(userID, challengeID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	state := &ChallengeState{Challenge: *ch, Progress: p.Progress, Completed: p.Completed}
	if p.Completed {
		return state, nil
	}

	progress := p.Progress + increment
	if progress > ch.Goal {
		progress = ch.Goal
	}
	completed := progress >= ch.Goal
	if err := s.store.UpdateProgress(p.ID, progress, completed); err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}
	state.Progress = progress
	state.Completed = completed

	if completed {
		if _, err := s.store.AddPoints(userID, ch.RewardFP); err != nil {
			return nil, fmt.Errorf("award challenge points: %w", err)
		}
		state.FPAwarded = ch.RewardFP
	}
	return state, nil
}
