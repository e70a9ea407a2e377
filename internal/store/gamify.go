package store

import (
	"database/sql"
	"time"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"
)

// ListRewards returns all rewards ordered by cost ascending.
func (s *Store) ListRewards() ([]model.Reward, error) {
	rows, err := s.db.Query(
		`SELECT id, title, description, cost_fp, emoji, category, available
		 FROM rewards ORDER BY cost_fp`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rewards []model.Reward
	for rows.Next() {
		var r model.Reward
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.CostFP, &r.Emoji, &r.Category, &r.Available); err != nil {
			return nil, err
		}
		rewards = append(rewards, r)
	}
	return rewards, rows.Err()
}

// GetReward returns a reward by ID, or nil if not found.
func (s *Store) GetReward(id string) (*model.Reward, error) {
	var r model.Reward
	err := s.db.QueryRow(
		`SELECT id, title, description, cost_fp, emoji, category, available FROM rewards WHERE id = ?`, id,
	).Scan(&r.ID, &r.Title, &r.Description, &r.CostFP, &r.Emoji, &r.Category, &r.Available)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// InsertReward stores a shop reward.
func (s *Store) InsertReward(r model.Reward) error {
	_, err := s.db.Exec(
		`INSERT INTO rewards (id, title, description, cost_fp, emoji, category, available)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.Description, r.CostFP, r.Emoji, r.Category, r.Available,
	)
	return err
}

// RecordRewardClaim stores a redemption.
func (s *Store) RecordRewardClaim(userID, rewardID string) error {
	_, err := s.db.Exec(
		`INSERT INTO reward_claims (user_id, reward_id, claimed_at) VALUES (?, ?, ?)`,
		userID, rewardID, time.Now(),
	)
	return err
}

// RewardClaimCount returns how many rewards the user has redeemed.
func (s *Store) RewardClaimCount(userID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM reward_claims WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

// ActiveChallenge returns the challenge whose window contains now, or nil.
func (s *Store) ActiveChallenge(now time.Time) (*model.WeeklyChallenge, error) {
	var c model.WeeklyChallenge
	err := s.db.QueryRow(
		`SELECT id, title, description, goal, reward_fp, emoji, starts_at, ends_at
		 FROM weekly_challenges WHERE starts_at <= ? AND ends_at >= ?
		 ORDER BY starts_at DESC LIMIT 1`, now, now,
	).Scan(&c.ID, &c.Title, &c.Description, &c.Goal, &c.RewardFP, &c.Emoji, &c.StartsAt, &c.EndsAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetChallenge returns a challenge by ID, or nil if not found.
func (s *Store) GetChallenge(id string) (*model.WeeklyChallenge, error) {
	var c model.WeeklyChallenge
	err := s.db.QueryRow(
		`SELECT id, title, description, goal, reward_fp, emoji, starts_at, ends_at
		 FROM weekly_challenges WHERE id = ?`, id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.Goal, &c.RewardFP, &c.Emoji, &c.StartsAt, &c.EndsAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertChallenge stores a weekly challenge.
func (s *Store) InsertChallenge(c model.WeeklyChallenge) error {
	_, err := s.db.Exec(
		`INSERT INTO weekly_challenges (id, title, description, goal, reward_fp, emoji, starts_at, ends_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Description, c.Goal, c.RewardFP, c.Emoji, c.StartsAt, c.EndsAt,
	)
	return err
}

// GetOrCreateProgress returns the user's progress row for a challenge,
// creating a zeroed one on first access.
func (s *Store) GetOrCreateProgress(userID, challengeID string) (model.ChallengeProgress, error) {
	_, err := s.db.Exec(
		`INSERT INTO challenge_progress (user_id, challenge_id, progress, completed)
		 VALUES (?, ?, 0, 0)
		 ON CONFLICT(user_id, challenge_id) DO NOTHING`,
		userID, challengeID,
	)
	if err != nil {
		return model.ChallengeProgress{}, err
	}
	var p model.ChallengeProgress
	err = s.db.QueryRow(
		`SELECT id, user_id, challenge_id, progress, completed
		 FROM challenge_progress WHERE user_id = ? AND challenge_id = ?`,
		userID, challengeID,
	).Scan(&p.ID, &p.UserID, &p.ChallengeID, &p.Progress, &p.Completed)
	return p, err
}

// UpdateProgress sets the progress counter and completion flag.
func (s *Store) UpdateProgress(id int64, progress int, completed bool) error {
	_, err := s.db.Exec(
		`UPDATE challenge_progress SET progress = ?, completed = ? WHERE id = ?`,
		progress, completed, id,
	)
	return err
}
