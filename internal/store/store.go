package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		discipline TEXT NOT NULL DEFAULT 'geral',
		prompt TEXT NOT NULL,
		options TEXT NOT NULL,
		correct INTEGER NOT NULL,
		year INTEGER NOT NULL DEFAULT 0,
		hash TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS exams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		discipline TEXT NOT NULL DEFAULT 'geral',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exam_questions (
		exam_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (exam_id, question_id),
		FOREIGN KEY (exam_id) REFERENCES exams(id),
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS exam_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		exam_id INTEGER NOT NULL,
		total INTEGER NOT NULL,
		repeated INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'in_progress',
		score REAL NOT NULL DEFAULT 0,
		correct_count INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		finalized_at DATETIME,
		FOREIGN KEY (exam_id) REFERENCES exams(id),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		marked INTEGER,
		UNIQUE (session_id, question_id),
		FOREIGN KEY (session_id) REFERENCES exam_sessions(id) ON DELETE CASCADE,
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		points INTEGER NOT NULL DEFAULT 0,
		level TEXT NOT NULL DEFAULT 'Bronze',
		course_id TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (course_id) REFERENCES courses(id)
	);

	CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		institution TEXT NOT NULL,
		campus TEXT NOT NULL DEFAULT '',
		shift TEXT NOT NULL DEFAULT '',
		cutoff REAL NOT NULL,
		year INTEGER NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS rewards (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		cost_fp INTEGER NOT NULL,
		emoji TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT 'motivacao',
		available INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS reward_claims (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		reward_id TEXT NOT NULL,
		claimed_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (reward_id) REFERENCES rewards(id)
	);

	CREATE TABLE IF NOT EXISTS weekly_challenges (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		goal INTEGER NOT NULL,
		reward_fp INTEGER NOT NULL,
		emoji TEXT NOT NULL DEFAULT '',
		starts_at DATETIME NOT NULL,
		ends_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS challenge_progress (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		challenge_id TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0,
		UNIQUE (user_id, challenge_id),
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (challenge_id) REFERENCES weekly_challenges(id)
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user ON exam_sessions(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_answers_session ON answers(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertQuestion stores a question. Options are serialized as a JSON array.
func (s *Store) InsertQuestion(q model.Question) (int64, error) {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO questions (discipline, prompt, options, correct, year, hash)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		q.Discipline, q.Prompt, string(opts), q.Correct, q.Year, q.Hash,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetQuestion returns a question by ID.
func (s *Store) GetQuestion(id int64) (model.Question, error) {
	row := s.db.QueryRow(
		`SELECT id, discipline, prompt, options, correct, year, hash FROM questions WHERE id = ?`, id,
	)
	return scanQuestion(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (model.Question, error) {
	var q model.Question
	var opts string
	if err := row.Scan(&q.ID, &q.Discipline, &q.Prompt, &opts, &q.Correct, &q.Year, &q.Hash); err != nil {
		return q, err
	}
	if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
		return q, fmt.Errorf("decode options for question %d: %w", q.ID, err)
	}
	return q, nil
}

// ListQuestionsExcluding returns up to limit questions matching the
// discipline filter (empty means all) whose ids are not in exclude.
// Order is by id; callers must not rely on randomness.
func (s *Store) ListQuestionsExcluding(discipline string, exclude []int64, limit int) ([]model.Question, error) {
	query := `SELECT id, discipline, prompt, options, correct, year, hash FROM questions WHERE 1=1`
	var args []any
	if discipline != "" && discipline != "geral" {
		query += ` AND discipline = ?`
		args = append(args, discipline)
	}
	if len(exclude) > 0 {
		query += ` AND id NOT IN (?` + strings.Repeat(",?", len(exclude)-1) + `)`
		for _, id := range exclude {
			args = append(args, id)
		}
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
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

// QuestionHashExists reports whether a question with the content hash exists.
func (s *Store) QuestionHashExists(hash string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions WHERE hash = ?`, hash).Scan(&n)
	return n > 0, err
}

// QuestionCount returns the number of questions in the database.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}
