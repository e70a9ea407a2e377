package model

import (
	"context"
	"time"
)

// SessionStatus represents the status of an exam session.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusFinalized  SessionStatus = "finalized"
)

// Level is a gamification tier derived from accumulated focus points.
type Level string

const (
	LevelBronze   Level = "Bronze"
	LevelSilver   Level = "Silver"
	LevelGold     Level = "Gold"
	LevelPlatinum Level = "Platinum"
	LevelDiamond  Level = "Diamond"
)

// LevelForPoints maps a focus-point balance to its tier.
func LevelForPoints(points int) Level {
	switch {
	case points >= 6000:
		return LevelDiamond
	case points >= 3000:
		return LevelPlatinum
	case points >= 1500:
		return LevelGold
	case points >= 500:
		return LevelSilver
	default:
		return LevelBronze
	}
}

// OptionCount is the number of alternatives on every ENEM question (A-E).
const OptionCount = 5

// Question is an immutable multiple-choice question.
// Options always has exactly OptionCount entries and Correct is in [0,4].
type Question struct {
	ID         int64    `json:"id"`
	Discipline string   `json:"discipline"`
	Prompt     string   `json:"prompt"`
	Options    []string `json:"options"`
	Correct    int      `json:"-"`
	Year       int      `json:"year,omitempty"`
	Hash       string   `json:"-"`
}

// QuestionPayload is the client-facing view of a question: no answer key.
type QuestionPayload struct {
	ID         int64    `json:"id"`
	Discipline string   `json:"discipline"`
	Prompt     string   `json:"prompt"`
	Options    []string `json:"options"`
}

// Payload strips the answer key for delivery to clients.
func (q Question) Payload() QuestionPayload {
	return QuestionPayload{ID: q.ID, Discipline: q.Discipline, Prompt: q.Prompt, Options: q.Options}
}

// Exam is a set of questions assembled for one delivery.
type Exam struct {
	ID         int64     `json:"id"`
	Discipline string    `json:"discipline"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExamSession is one user's attempt at an Exam.
type ExamSession struct {
	ID           int64         `json:"id"`
	UserID       string        `json:"user_id"`
	ExamID       int64         `json:"exam_id"`
	Total        int           `json:"total"`
	Repeated     int           `json:"repeated"`
	Status       SessionStatus `json:"status"`
	Score        float64       `json:"score"`
	CorrectCount int           `json:"correct_count"`
	StartedAt    time.Time     `json:"started_at"`
	FinalizedAt  *time.Time    `json:"finalized_at,omitempty"`
}

// Answer is a user's marked choice for one question within a session.
// Marked is nil when the question was left blank.
type Answer struct {
	ID         int64 `json:"id"`
	SessionID  int64 `json:"session_id"`
	QuestionID int64 `json:"question_id"`
	Marked     *int  `json:"marked_index"`
}

// User is the long-lived aggregate root.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Points       int       `json:"points"`
	Level        Level     `json:"level"`
	CourseID     *string   `json:"course_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Course is a degree program with an entrance cutoff score.
type Course struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Institution string  `json:"institution"`
	Campus      string  `json:"campus,omitempty"`
	Shift       string  `json:"shift,omitempty"`
	Cutoff      float64 `json:"cutoff"`
	Year        int     `json:"year"`
	Active      bool    `json:"active"`
}

// Reward is a shop item redeemable with focus points.
type Reward struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CostFP      int    `json:"cost_fp"`
	Emoji       string `json:"emoji"`
	Category    string `json:"category"`
	Available   bool   `json:"available"`
}

// RewardClaim records one redemption.
type RewardClaim struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	RewardID  string    `json:"reward_id"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// WeeklyChallenge is a timed mission that grants focus points on completion.
type WeeklyChallenge struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Goal        int       `json:"goal"`
	RewardFP    int       `json:"reward_fp"`
	Emoji       string    `json:"emoji"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

// ChallengeProgress tracks one user's progress on one challenge.
type ChallengeProgress struct {
	ID          int64  `json:"id"`
	UserID      string `json:"user_id"`
	ChallengeID string `json:"challenge_id"`
	Progress    int    `json:"progress"`
	Completed   bool   `json:"completed"`
}

type userCtxKey struct{}

// ContextWithUser stores the authenticated user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// AreaForDiscipline maps a discipline tag to its ENEM knowledge area.
func AreaForDiscipline(discipline string) string {
	switch discipline {
	case "matematica", "math":
		return "Matemática"
	case "linguagens", "portugues", "literatura", "ingles", "espanhol":
		return "Linguagens"
	case "ciencias_humanas", "historia", "geografia", "filosofia", "sociologia":
		return "Ciências Humanas"
	case "ciencias_natureza", "biologia", "fisica", "quimica":
		return "Ciências da Natureza"
	default:
		return "Geral"
	}
}

// ValidDiscipline reports whether the tag is one the platform knows about.
func ValidDiscipline(d string) bool {
	switch d {
	case "matematica", "fisica", "quimica", "biologia",
		"historia", "geografia", "portugues", "literatura",
		"filosofia", "sociologia", "ingles", "espanhol", "geral":
		return true
	}
	return false
}
