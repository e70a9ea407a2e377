package store

import (
	"fmt"
	"time"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"
)

// SessionExport is an export-ready view of one finalized session.
type SessionExport struct {
	Email        string         `json:"email"`
	Name         string         `json:"name"`
	SessionID    int64          `json:"session_id"`
	Discipline   string         `json:"discipline"`
	Total        int            `json:"total"`
	CorrectCount int            `json:"correct_count"`
	Score        float64        `json:"score"`
	StartedAt    time.Time      `json:"started_at"`
	FinalizedAt  *time.Time     `json:"finalized_at"`
	Answers      []AnswerExport `json:"answers"`
}

// AnswerExport pairs a question with the choice the student marked.
type AnswerExport struct {
	QuestionID int64  `json:"question_id"`
	Prompt     string `json:"prompt"`
	Correct    int    `json:"correct_index"`
	Marked     *int   `json:"marked_index"`
}

// ExportAllSessions builds export-ready results from every finalized
// session in the database, newest first per user.
func (s *Store) ExportAllSessions() ([]SessionExport, error) {
	rows, err := s.db.Query(
		`SELECT es.id, es.user_id, es.total, es.correct_count, es.score,
		        es.started_at, es.finalized_at, e.discipline
		 FROM exam_sessions es JOIN exams e ON e.id = es.exam_id
		 WHERE es.status = 'finalized'
		 ORDER BY es.user_id, es.finalized_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list finalized sessions: %w", err)
	}
	defer rows.Close()

	type sessionRow struct {
		export SessionExport
		userID string
	}
	var raw []sessionRow
	for rows.Next() {
		var sr sessionRow
		if err := rows.Scan(&sr.export.SessionID, &sr.userID, &sr.export.Total,
			&sr.export.CorrectCount, &sr.export.Score, &sr.export.StartedAt,
			&sr.export.FinalizedAt, &sr.export.Discipline); err != nil {
			return nil, err
		}
		raw = append(raw, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	users := make(map[string]*model.User)
	var results []SessionExport
	for _, sr := range raw {
		user, ok := users[sr.userID]
		if !ok {
			user, err = s.GetUserByID(sr.userID)
			if err != nil {
				return nil, fmt.Errorf("get user %s: %w", sr.userID, err)
			}
			users[sr.userID] = user
		}
		if user != nil {
			sr.export.Email = user.Email
			sr.export.Name = user.Name
		}

		answers, err := s.sessionAnswerExports(sr.export.SessionID)
		if err != nil {
			return nil, fmt.Errorf("answers for session %d: %w", sr.export.SessionID, err)
		}
		sr.export.Answers = answers
		results = append(results, sr.export)
	}
	return results, nil
}

func (s *Store) sessionAnswerExports(sessionID int64) ([]AnswerExport, error) {
	rows, err := s.db.Query(
		`SELECT a.question_id, q.prompt, q.correct, a.marked
		 FROM answers a JOIN questions q ON q.id = a.question_id
		 WHERE a.session_id = ? ORDER BY a.id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var answers []AnswerExport
	for rows.Next() {
		var a AnswerExport
		if err := rows.Scan(&a.QuestionID, &a.Prompt, &a.Correct, &a.Marked); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
