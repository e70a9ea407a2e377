package store

import (
	"database/sql"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"
)

// ListCourses returns active courses, optionally filtered by a substring
// match on name, institution, or campus, ordered by institution then name.
func (s *Store) ListCourses(search string, limit int) ([]model.Course, error) {
	query := `SELECT id, name, institution, campus, shift, cutoff, year, active
	          FROM courses WHERE active = 1`
	var args []any
	if search != "" {
		query += ` AND (name LIKE ? OR institution LIKE ? OR campus LIKE ?)`
		pat := "%" + search + "%"
		args = append(args, pat, pat, pat)
	}
	query += ` ORDER BY institution, name LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Institution, &c.Campus, &c.Shift, &c.Cutoff, &c.Year, &c.Active); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// GetCourse returns a course by ID, or nil if not found.
func (s *Store) GetCourse(id string) (*model.Course, error) {
	var c model.Course
	err := s.db.QueryRow(
		`SELECT id, name, institution, campus, shift, cutoff, year, active FROM courses WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Institution, &c.Campus, &c.Shift, &c.Cutoff, &c.Year, &c.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertCourse stores a course.
func (s *Store) InsertCourse(c model.Course) error {
	_, err := s.db.Exec(
		`INSERT INTO courses (id, name, institution, campus, shift, cutoff, year, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Institution, c.Campus, c.Shift, c.Cutoff, c.Year, c.Active,
	)
	return err
}
