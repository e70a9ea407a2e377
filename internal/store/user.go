package store

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"
)

// CreateUser inserts a new user.
func (s *Store) CreateUser(u model.User) error {
	if u.Level == "" {
		u.Level = model.LevelBronze
	}
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, name, password_hash, points, level, course_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Points, u.Level, u.CourseID, time.Now(),
	)
	if err != nil {
		slog.Error("failed to create user", "email", u.Email, "error", err)
		return err
	}
	slog.Info("created user", "id", u.ID, "email", u.Email)
	return nil
}

func (s *Store) scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Points, &u.Level, &u.CourseID, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail returns a user by email, or nil if not found.
func (s *Store) GetUserByEmail(email string) (*model.User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT id, email, name, password_hash, points, level, course_id, created_at
		 FROM users WHERE email = ?`, email,
	))
}

// GetUserByID returns a user by ID, or nil if not found.
func (s *Store) GetUserByID(id string) (*model.User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT id, email, name, password_hash, points, level, course_id, created_at
		 FROM users WHERE id = ?`, id,
	))
}

// AddPoints adds delta focus points to the user and recomputes the level
// tier. Returns the new balance.
func (s *Store) AddPoints(userID string, delta int) (int, error) {
	if _, err := s.db.Exec(`UPDATE users SET points = points + ? WHERE id = ?`, delta, userID); err != nil {
		return 0, err
	}
	var points int
	if err := s.db.QueryRow(`SELECT points FROM users WHERE id = ?`, userID).Scan(&points); err != nil {
		return 0, err
	}
	if _, err := s.db.Exec(`UPDATE users SET level = ? WHERE id = ?`, model.LevelForPoints(points), userID); err != nil {
		return 0, err
	}
	return points, nil
}

// SpendPoints deducts cost from the user's balance only if sufficient.
// Returns the remaining balance and whether the deduction happened.
func (s *Store) SpendPoints(userID string, cost int) (remaining int, ok bool, err error) {
	res, err := s.db.Exec(
		`UPDATE users SET points = points - ? WHERE id = ? AND points >= ?`,
		cost, userID, cost,
	)
	if err != nil {
		return 0, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if err := s.db.QueryRow(`SELECT points FROM users WHERE id = ?`, userID).Scan(&remaining); err != nil {
		return 0, false, err
	}
	if n > 0 {
		if _, err := s.db.Exec(`UPDATE users SET level = ? WHERE id = ?`, model.LevelForPoints(remaining), userID); err != nil {
			return 0, false, err
		}
	}
	return remaining, n > 0, nil
}

// SetUserCourse sets or clears (nil) the user's target course.
func (s *Store) SetUserCourse(userID string, courseID *string) error {
	_, err := s.db.Exec(`UPDATE users SET course_id = ? WHERE id = ?`, courseID, userID)
	return err
}

// UserCount returns the total number of users.
func (s *Store) UserCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
