// Package exam implements the practice-exam core: assembling exams from the
// question bank, recording answers, scoring finalized sessions, and
// aggregating user progress.
package exam

import (
	"errors"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/store"
)

var (
	// ErrSessionNotFound is returned when a session does not exist or does
	// not belong to the requesting user.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionFinalized is returned when a mutation targets a session
	// that has already been finalized.
	ErrSessionFinalized = errors.New("session already finalized")

	// ErrNoQuestions is returned when the question bank has nothing
	// matching the requested discipline.
	ErrNoQuestions = errors.New("no questions available")

	// ErrInvalid wraps request validation failures.
	ErrInvalid = errors.New("invalid input")
)

// Service wires the exam core to persistent storage.
type Service struct {
	store *store.Store
}

func New(st *store.Store) *Service {
	return &Service{store: st}
}
