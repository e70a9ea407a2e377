package exam

import (
	"context"
	"fmt"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"
)

// MaxExamSize bounds how many questions one exam may hold.
const MaxExamSize = 90

// StartResult describes a freshly assembled exam. Fresh and Repeated report
// how many questions were new to the user versus served again because the
// bank ran short; callers log a warning when Repeated > 0.
type StartResult struct {
	ExamID    int64                   `json:"exam_id"`
	SessionID int64                   `json:"session_id"`
	Questions []model.QuestionPayload `json:"questions"`
	Fresh     int                     `json:"fresh"`
	Repeated  int                     `json:"repeated"`
}

// Start assembles an exam of up to count questions for the user and opens an
// in_progress session. Questions the user has never answered are preferred;
// already-seen questions fill the remainder when the bank runs short. A
// question never appears twice within one exam. Selection order follows
// store order, there is no shuffling.
func (s *Service) Start(ctx context.Context, userID, discipline string, count int) (*StartResult, error) {
	if count < 1 || count > MaxExamSize {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalid, MaxExamSize)
	}
	if discipline != "" && !model.ValidDiscipline(discipline) {
		return nil, fmt.Errorf("%w: unknown discipline %q", ErrInvalid, discipline)
	}

	seen, err := s.store.AnsweredQuestionIDs(userID)
	if err != nil {
		return nil, fmt.Errorf("load seen questions: %w", err)
	}

	fresh, err := s.store.ListQuestionsExcluding(discipline, seen, count)
	if err != nil {
		return nil, fmt.Errorf("select fresh questions: %w", err)
	}

	picked := make([]model.Question, 0, count)
	inExam := make(map[int64]bool, count)
	for _, q := range fresh {
		if !inExam[q.ID] {
			inExam[q.ID] = true
			picked = append(picked, q)
		}
	}
	freshCount := len(picked)

	if freshCount < count {
		exclude := make([]int64, 0, freshCount)
		for id := range inExam {
			exclude = append(exclude, id)
		}
		repeats, err := s.store.ListQuestionsExcluding(discipline, exclude, count-freshCount)
		if err != nil {
			return nil, fmt.Errorf("select repeat questions: %w", err)
		}
		for _, q := range repeats {
			if !inExam[q.ID] {
				inExam[q.ID] = true
				picked = append(picked, q)
			}
		}
	}

	if len(picked) == 0 {
		return nil, ErrNoQuestions
	}

	ids := make([]int64, len(picked))
	payloads := make([]model.QuestionPayload, len(picked))
	for i, q := range picked {
		ids[i] = q.ID
		payloads[i] = q.Payload()
	}

	repeated := len(picked) - freshCount
	examID, sessionID, err := s.store.CreateExamWithSession(userID, discipline, ids, repeated)
	if err != nil {
		return nil, fmt.Errorf("persist exam: %w", err)
	}

	return &StartResult{
		ExamID:    examID,
		SessionID: sessionID,
		Questions: payloads,
		Fresh:     freshCount,
		Repeated:  repeated,
	}, nil
}

// RecordAnswer upserts the user's marked choice for one question in an open
// session. A nil marked index records the question as left blank. Re-marking
// the same question overwrites the previous choice.
func (s *Service) RecordAnswer(ctx context.Context, userID string, sessionID, questionID int64, marked *int) (model.Answer, error) {
	if marked != nil && (*marked < 0 || *marked >= model.OptionCount) {
		return model.Answer{}, fmt.Errorf("%w: marked index must be between 0 and %d", ErrInvalid, model.OptionCount-1)
	}

	sess, err := s.store.GetSession(sessionID)
	if err != nil {
		return model.Answer{}, fmt.Errorf("load session: %w", err)
	}
	if sess == nil || sess.UserID != userID {
		return model.Answer{}, ErrSessionNotFound
	}
	if sess.Status == model.StatusFinalized {
		return model.Answer{}, ErrSessionFinalized
	}

	bound, err := s.store.QuestionBoundToExam(sess.ExamID, questionID)
	if err != nil {
		return model.Answer{}, fmt.Errorf("check question binding: %w", err)
	}
	if !bound {
		return model.Answer{}, fmt.Errorf("%w: question %d is not part of this exam", ErrInvalid, questionID)
	}

	a, err := s.store.UpsertAnswer(sessionID, questionID, marked)
	if err != nil {
		return model.Answer{}, fmt.Errorf("record answer: %w", err)
	}
	return a, nil
}
