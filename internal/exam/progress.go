package exam

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"
)

// UserStats is a snapshot of one user's practice history.
type UserStats struct {
	Points       int         `json:"points"`
	Level        model.Level `json:"level"`
	Streak       int         `json:"streak"`
	SessionCount int         `json:"session_count"`
	AverageScore float64     `json:"average_score"`
}

// AreaStats aggregates finalized sessions within one knowledge area.
type AreaStats struct {
	Area         string  `json:"area"`
	SessionCount int     `json:"session_count"`
	Percentage   float64 `json:"percentage"`
	AverageScore float64 `json:"average_score"`
}

// EvolutionPoint is one entry in the chronological score series.
type EvolutionPoint struct {
	SessionID   int64     `json:"session_id"`
	Discipline  string    `json:"discipline"`
	Score       float64   `json:"score"`
	FinalizedAt time.Time `json:"finalized_at"`
}

// UserStats computes the user's streak, session count, and average score
// from finalized sessions. Users with no history get zeroed stats at the
// Bronze tier.
func (s *Service) UserStats(ctx context.Context, userID string) (*UserStats, error) {
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}

	sessions, err := s.store.FinalizedSessionsForUser(userID, 0)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	stats := &UserStats{
		Points:       user.Points,
		Level:        user.Level,
		SessionCount: len(sessions),
	}
	if stats.Level == "" {
		stats.Level = model.LevelBronze
	}
	if len(sessions) == 0 {
		return stats, nil
	}

	var sum float64
	days := make([]time.Time, 0, len(sessions))
	seen := make(map[time.Time]bool)
	for _, sess := range sessions {
		sum += sess.Score
		if sess.FinalizedAt == nil {
			continue
		}
		day := sess.FinalizedAt.UTC().Truncate(24 * time.Hour)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	stats.AverageScore = round2(sum / float64(len(sessions)))
	stats.Streak = streakFromDays(days, time.Now().UTC())
	return stats, nil
}

// streakFromDays counts consecutive UTC practice days ending today or
// yesterday. days must hold distinct day-truncated times; order is free.
func streakFromDays(days []time.Time, now time.Time) int {
	if len(days) == 0 {
		return 0
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	today := now.Truncate(24 * time.Hour)
	yesterday := today.AddDate(0, 0, -1)
	if !days[0].Equal(today) && !days[0].Equal(yesterday) {
		return 0
	}

	streak := 1
	for i := 1; i < len(days); i++ {
		if days[i-1].Sub(days[i]) != 24*time.Hour {
			break
		}
		streak++
	}
	return streak
}

// StatsByArea rolls finalized sessions up by ENEM knowledge area.
func (s *Service) StatsByArea(ctx context.Context, userID string) ([]AreaStats, error) {
	sessions, err := s.store.FinalizedSessionsForUser(userID, 0)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	type acc struct {
		sessions int
		correct  int
		total    int
		scoreSum float64
	}
	byArea := make(map[string]*acc)
	var order []string
	for _, sess := range sessions {
		area := model.AreaForDiscipline(sess.Discipline)
		a, ok := byArea[area]
		if !ok {
			a = &acc{}
			byArea[area] = a
			order = append(order, area)
		}
		a.sessions++
		a.correct += sess.CorrectCount
		a.total += sess.Total
		a.scoreSum += sess.Score
	}
	sort.Strings(order)

	stats := make([]AreaStats, 0, len(order))
	for _, area := range order {
		a := byArea[area]
		as := AreaStats{Area: area, SessionCount: a.sessions}
		if a.total > 0 {
			as.Percentage = round2(float64(a.correct) / float64(a.total) * 100)
		}
		as.AverageScore = round2(a.scoreSum / float64(a.sessions))
		stats = append(stats, as)
	}
	return stats, nil
}

// Evolution returns the user's finalized scores in chronological order,
// keeping at most the latest limit entries. limit <= 0 means no limit.
func (s *Service) Evolution(ctx context.Context, userID string, limit int) ([]EvolutionPoint, error) {
	sessions, err := s.store.FinalizedSessionsForUser(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	points := make([]EvolutionPoint, 0, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		sess := sessions[i]
		p := EvolutionPoint{
			SessionID:  sess.ID,
			Discipline: sess.Discipline,
			Score:      sess.Score,
		}
		if sess.FinalizedAt != nil {
			p.FinalizedAt = *sess.FinalizedAt
		}
		points = append(points, p)
	}
	return points, nil
}

// HistoryEntry is one finalized session in a user's history listing.
type HistoryEntry struct {
	SessionID    int64      `json:"session_id"`
	Discipline   string     `json:"discipline"`
	Total        int        `json:"total"`
	CorrectCount int        `json:"correct_count"`
	Score        float64    `json:"score"`
	StartedAt    time.Time  `json:"started_at"`
	FinalizedAt  *time.Time `json:"finalized_at"`
}

// History returns the user's recent finalized sessions, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	sessions, err := s.store.FinalizedSessionsForUser(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	entries := make([]HistoryEntry, 0, len(sessions))
	for _, sess := range sessions {
		entries = append(entries, HistoryEntry{
			SessionID:    sess.ID,
			Discipline:   sess.Discipline,
			Total:        sess.Total,
			CorrectCount: sess.CorrectCount,
			Score:        sess.Score,
			StartedAt:    sess.StartedAt,
			FinalizedAt:  sess.FinalizedAt,
		})
	}
	return entries, nil
}
