package store

import (
	"database/sql"
	"time"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"
)

// CreateExamWithSession creates an exam, its question bindings, and a fresh
// in_progress session for the user, in one transaction. repeated records how
// many of the bound questions the user had already seen.
func (s *Store) CreateExamWithSession(userID, discipline string, questionIDs []int64, repeated int) (examID, sessionID int64, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.Exec(`INSERT INTO exams (discipline, created_at) VALUES (?, ?)`, discipline, now)
	if err != nil {
		return 0, 0, err
	}
	examID, err = res.LastInsertId()
	if err != nil {
		return 0, 0, err
	}

	for i, qID := range questionIDs {
		if _, err := tx.Exec(
			`INSERT INTO exam_questions (exam_id, question_id, position) VALUES (?, ?, ?)`,
			examID, qID, i,
		); err != nil {
			return 0, 0, err
		}
	}

	res, err = tx.Exec(
		`INSERT INTO exam_sessions (user_id, exam_id, total, repeated, status, started_at) VALUES (?, ?, ?, ?, 'in_progress', ?)`,
		userID, examID, len(questionIDs), repeated, now,
	)
	if err != nil {
		return 0, 0, err
	}
	sessionID, err = res.LastInsertId()
	if err != nil {
		return 0, 0, err
	}

	return examID, sessionID, tx.Commit()
}

// GetSession returns a session by ID, or nil if it does not exist.
func (s *Store) GetSession(id int64) (*model.ExamSession, error) {
	var sess model.ExamSession
	err := s.db.QueryRow(
		`SELECT id, user_id, exam_id, total, repeated, status, score, correct_count, started_at, finalized_at
		 FROM exam_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.ExamID, &sess.Total, &sess.Repeated, &sess.Status,
		&sess.Score, &sess.CorrectCount, &sess.StartedAt, &sess.FinalizedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// QuestionsForExam returns the exam's questions in bound order.
func (s *Store) QuestionsForExam(examID int64) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT q.id, q.discipline, q.prompt, q.options, q.correct, q.year, q.hash
		 FROM exam_questions eq JOIN questions q ON q.id = eq.question_id
		 WHERE eq.exam_id = ? ORDER BY eq.position`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// QuestionBoundToExam reports whether the question belongs to the exam.
func (s *Store) QuestionBoundToExam(examID, questionID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM exam_questions WHERE exam_id = ? AND question_id = ?`,
		examID, questionID,
	).Scan(&n)
	return n > 0, err
}

// UpsertAnswer records a marked choice, overwriting any previous mark for the
// same (session, question) pair. A nil marked index means "left blank".
func (s *Store) UpsertAnswer(sessionID, questionID int64, marked *int) (model.Answer, error) {
	_, err := s.db.Exec(
		`INSERT INTO answers (session_id, question_id, marked) VALUES (?, ?, ?)
		 ON CONFLICT(session_id, question_id) DO UPDATE SET marked = ?`,
		sessionID, questionID, marked, marked,
	)
	if err != nil {
		return model.Answer{}, err
	}
	var a model.Answer
	err = s.db.QueryRow(
		`SELECT id, session_id, question_id, marked FROM answers WHERE session_id = ? AND question_id = ?`,
		sessionID, questionID,
	).Scan(&a.ID, &a.SessionID, &a.QuestionID, &a.Marked)
	return a, err
}

// AnswersForSession returns all answers recorded for the session.
func (s *Store) AnswersForSession(sessionID int64) ([]model.Answer, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, question_id, marked FROM answers WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.SessionID, &a.QuestionID, &a.Marked); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// AnsweredQuestionIDs returns the distinct question ids the user has ever
// answered across all of their sessions, regardless of session status.
func (s *Store) AnsweredQuestionIDs(userID string) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT a.question_id
		 FROM answers a JOIN exam_sessions es ON es.id = a.session_id
		 WHERE es.user_id = ?`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FinalizeSession marks the session finalized with its computed results.
func (s *Store) FinalizeSession(id int64, score float64, correctCount int, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE exam_sessions SET status = 'finalized', score = ?, correct_count = ?, finalized_at = ? WHERE id = ?`,
		score, correctCount, at, id,
	)
	return err
}

// FinalizedSession pairs a finalized session with its exam's discipline.
type FinalizedSession struct {
	model.ExamSession
	Discipline string
}

// FinalizedSessionsForUser returns the user's finalized sessions, newest
// first, with the exam discipline joined in. limit <= 0 means no limit.
func (s *Store) FinalizedSessionsForUser(userID string, limit int) ([]FinalizedSession, error) {
	query := `SELECT es.id, es.user_id, es.exam_id, es.total, es.repeated, es.status, es.score,
	                 es.correct_count, es.started_at, es.finalized_at, e.discipline
	          FROM exam_sessions es JOIN exams e ON e.id = es.exam_id
	          WHERE es.user_id = ? AND es.status = 'finalized'
	          ORDER BY es.finalized_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []FinalizedSession
	for rows.Next() {
		var fs FinalizedSession
		if err := rows.Scan(&fs.ID, &fs.UserID, &fs.ExamID, &fs.Total, &fs.Repeated, &fs.Status,
			&fs.Score, &fs.CorrectCount, &fs.StartedAt, &fs.FinalizedAt, &fs.Discipline); err != nil {
			return nil, err
		}
		sessions = append(sessions, fs)
	}
	return sessions, rows.Err()
}
