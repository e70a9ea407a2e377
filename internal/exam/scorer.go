package exam

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"
)

// PointsPerCorrect is the focus-point award per correct answer on finish.
const PointsPerCorrect = 10

// Performance label keys, resolved to localized text by the i18n layer.
const (
	LabelExcellent        = "PerformanceExcellent"
	LabelVeryGood         = "PerformanceVeryGood"
	LabelGood             = "PerformanceGood"
	LabelModerate         = "PerformanceModerate"
	LabelNeedsImprovement = "PerformanceNeedsImprovement"
)

// labelForPercentage maps a hit percentage to its performance bucket.
func labelForPercentage(pct float64) string {
	switch {
	case pct >= 90:
		return LabelExcellent
	case pct >= 75:
		return LabelVeryGood
	case pct >= 60:
		return LabelGood
	case pct >= 50:
		return LabelModerate
	default:
		return LabelNeedsImprovement
	}
}

// QuestionError describes one question the user missed.
type QuestionError struct {
	QuestionID   int64 `json:"question_id"`
	CorrectIndex int   `json:"correct_index"`
	MarkedIndex  *int  `json:"marked_index"`
}

// CutoffComparison relates a score to a target course's entrance cutoff.
// Informational only, ENEM admission uses weighted area scores.
type CutoffComparison struct {
	CourseID   string  `json:"course_id"`
	CourseName string  `json:"course_name"`
	Cutoff     float64 `json:"cutoff"`
	Score      float64 `json:"score"`
	Difference float64 `json:"difference"`
	MetCutoff  bool    `json:"met_cutoff"`
}

// ScoreResult is the outcome of finalizing a session. Repeated carries the
// assembly-time repeat count forward so callers can surface a non-fatal
// warning alongside the result.
type ScoreResult struct {
	SessionID  int64             `json:"session_id"`
	Total      int               `json:"total"`
	Repeated   int               `json:"repeated"`
	Correct    int               `json:"correct"`
	Percentage float64           `json:"percentage"`
	Score      float64           `json:"score"`
	Label      string            `json:"label"`
	Errors     []QuestionError   `json:"errors"`
	FPAwarded  int               `json:"fp_awarded"`
	Points     int               `json:"points"`
	Level      model.Level       `json:"level"`
	Cutoff     *CutoffComparison `json:"cutoff,omitempty"`
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// scoreFor converts a hit count into the 300-1000 ENEM-like scale. A linear
// transform, not IRT. A session with no bound questions resolves to 0, not
// the 300 floor.
func scoreFor(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(300 + float64(correct)*(700/float64(total)))
}

// Finish scores an open session and finalizes it. Unanswered and blank
// questions count as incorrect. Awards focus points per correct answer and
// recomputes the user's level tier. When the user has a target course the
// result carries an informational cutoff comparison.
func (s *Service) Finish(ctx context.Context, userID string, sessionID int64) (*ScoreResult, error) {
	sess, err := s.store.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil || sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	if sess.Status == model.StatusFinalized {
		return nil, ErrSessionFinalized
	}

	questions, err := s.store.QuestionsForExam(sess.ExamID)
	if err != nil {
		return nil, fmt.Errorf("load exam questions: %w", err)
	}
	answers, err := s.store.AnswersForSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	markedByQuestion := make(map[int64]*int, len(answers))
	for _, a := range answers {
		markedByQuestion[a.QuestionID] = a.Marked
	}

	var correct int
	var errorsList []QuestionError
	for _, q := range questions {
		marked := markedByQuestion[q.ID]
		if marked != nil && *marked == q.Correct {
			correct++
			continue
		}
		errorsList = append(errorsList, QuestionError{
			QuestionID:   q.ID,
			CorrectIndex: q.Correct,
			MarkedIndex:  marked,
		})
	}

	total := len(questions)
	var percentage float64
	if total > 0 {
		percentage = round2(float64(correct) / float64(total) * 100)
	}
	score := scoreFor(correct, total)

	if err := s.store.FinalizeSession(sessionID, score, correct, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("finalize session: %w", err)
	}

	awarded := correct * PointsPerCorrect
	points, err := s.store.AddPoints(userID, awarded)
	if err != nil {
		return nil, fmt.Errorf("award points: %w", err)
	}

	result := &ScoreResult{
		SessionID:  sessionID,
		Total:      total,
		Repeated:   sess.Repeated,
		Correct:    correct,
		Percentage: percentage,
		Score:      score,
		Label:      labelForPercentage(percentage),
		Errors:     errorsList,
		FPAwarded:  awarded,
		Points:     points,
		Level:      model.LevelForPoints(points),
	}

	user, err := s.store.GetUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user != nil && user.CourseID != nil {
		course, err := s.store.GetCourse(*user.CourseID)
		if err != nil {
			return nil, fmt.Errorf("load target course: %w", err)
		}
		if course != nil {
			result.Cutoff = compareToCutoff(score, course)
		}
	}

	return result, nil
}

// CompareScore relates one finalized session's score to a course cutoff.
func (s *Service) CompareScore(ctx context.Context, userID string, sessionID int64, courseID string) (*CutoffComparison, error) {
	sess, err := s.store.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil || sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	if sess.Status != model.StatusFinalized {
		return nil, fmt.Errorf("%w: session is not finalized", ErrInvalid)
	}

	course, err := s.store.GetCourse(courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return nil, fmt.Errorf("%w: course %q not found", ErrInvalid, courseID)
	}
	return compareToCutoff(sess.Score, course), nil
}

func compareToCutoff(score float64, course *model.Course) *CutoffComparison {
	return &CutoffComparison{
		CourseID:   course.ID,
		CourseName: course.Name,
		Cutoff:     course.Cutoff,
		Score:      score,
		Difference: round2(score - course.Cutoff),
		MetCutoff:  score >= course.Cutoff,
	}
}
