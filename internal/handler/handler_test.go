package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/auth"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/cache"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/exam"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/i18n"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/llm"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"
	"github.com/brandaorrrodrigo/enem-ia-backend/internal/store"
)

type testEnv struct {
	handler *Handler
	router  chi.Router
	store   *store.Store
	cache   *cache.Cache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if err := i18n.Init("pt-BR"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	c := cache.New(time.Minute, 100)
	h := New(
		st,
		exam.New(st),
		llm.New("", "test-key", "test-model"),
		auth.NewManager("test-secret", time.Hour),
		c,
		cache.NewRateLimiter(10, time.Minute),
	)
	r := chi.NewRouter()
	h.Routes(r)
	return &testEnv{handler: h, router: r, store: st, cache: c}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func (e *testEnv) register(t *testing.T, email string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "name": "Aluno", "password": "segredo123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[map[string]any](t, rec)
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatal("register: expected token")
	}
	return token
}

func (e *testEnv) addQuestions(t *testing.T, discipline string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := e.store.InsertQuestion(model.Question{
			Discipline: discipline,
			Prompt:     fmt.Sprintf("%s question %d", discipline, i),
			Options:    []string{"A", "B", "C", "D", "E"},
			Correct:    0,
			Hash:       fmt.Sprintf("%s-%d", discipline, i),
		})
		if err != nil {
			t.Fatalf("InsertQuestion: %v", err)
		}
	}
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv(t)
	token := e.register(t, "aluno@example.com")

	// Duplicate registration conflicts.
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "aluno@example.com", "password": "segredo123",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register: expected 409, got %d", rec.Code)
	}

	// Short password rejected.
	rec = e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "outro@example.com", "password": "123",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("short password: expected 400, got %d", rec.Code)
	}

	// Login works with the right password only.
	rec = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "aluno@example.com", "password": "segredo123",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("login: expected 200, got %d", rec.Code)
	}
	rec = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "aluno@example.com", "password": "errada",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login: expected 401, got %d", rec.Code)
	}

	// Me requires and honors the token.
	rec = e.do(t, http.MethodGet, "/api/auth/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me without token: expected 401, got %d", rec.Code)
	}
	rec = e.do(t, http.MethodGet, "/api/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}
	me := decode[model.User](t, rec)
	if me.Email != "aluno@example.com" {
		t.Errorf("unexpected me payload: %+v", me)
	}
}

func TestExamFlow(t *testing.T) {
	e := newTestEnv(t)
	token := e.register(t, "aluno@example.com")
	e.addQuestions(t, "matematica", 5)

	rec := e.do(t, http.MethodPost, "/api/exams/start", token, map[string]any{
		"discipline": "matematica", "count": 5,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	start := decode[exam.StartResult](t, rec)
	if len(start.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(start.Questions))
	}

	// Answer the first three correctly (correct index is 0).
	for _, q := range start.Questions[:3] {
		rec = e.do(t, http.MethodPost, "/api/exams/answer", token, map[string]any{
			"session_id": start.SessionID, "question_id": q.ID, "marked_index": 0,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("answer: expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	}

	rec = e.do(t, http.MethodPost, "/api/exams/finish", token, map[string]any{
		"session_id": start.SessionID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("finish: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	finish := decode[map[string]any](t, rec)
	if finish["correct"].(float64) != 3 {
		t.Errorf("expected 3 correct, got %v", finish["correct"])
	}
	if finish["score"].(float64) != 720.0 {
		t.Errorf("expected score 720.0, got %v", finish["score"])
	}
	if finish["message"] == "" {
		t.Error("expected localized message")
	}
	if _, ok := finish["warning"]; ok {
		t.Errorf("expected no warning for an all-fresh exam, got %v", finish["warning"])
	}

	// Finishing again conflicts.
	rec = e.do(t, http.MethodPost, "/api/exams/finish", token, map[string]any{
		"session_id": start.SessionID,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("double finish: expected 409, got %d", rec.Code)
	}

	// Late answers conflict too.
	rec = e.do(t, http.MethodPost, "/api/exams/answer", token, map[string]any{
		"session_id": start.SessionID, "question_id": start.Questions[0].ID, "marked_index": 1,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("late answer: expected 409, got %d", rec.Code)
	}

	// Unknown session is 404.
	rec = e.do(t, http.MethodPost, "/api/exams/finish", token, map[string]any{
		"session_id": 9999,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session: expected 404, got %d", rec.Code)
	}

	// History lists the finalized session.
	rec = e.do(t, http.MethodGet, "/api/exams/history", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", rec.Code)
	}
	history := decode[[]exam.HistoryEntry](t, rec)
	if len(history) != 1 || history[0].Score != 720.0 {
		t.Errorf("unexpected history: %+v", history)
	}

	// Stats reflect the run.
	rec = e.do(t, http.MethodGet, "/api/users/stats", token, nil)
	stats := decode[exam.UserStats](t, rec)
	if stats.SessionCount != 1 || stats.Points != 30 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestFinishRepeatWarning(t *testing.T) {
	e := newTestEnv(t)
	token := e.register(t, "aluno@example.com")
	e.addQuestions(t, "matematica", 3)

	// First pass answers every question, marking all of them as seen.
	rec := e.do(t, http.MethodPost, "/api/exams/start", token, map[string]any{
		"discipline": "matematica", "count": 3,
	})
	start := decode[exam.StartResult](t, rec)
	for _, q := range start.Questions {
		e.do(t, http.MethodPost, "/api/exams/answer", token, map[string]any{
			"session_id": start.SessionID, "question_id": q.ID, "marked_index": 0,
		})
	}
	e.do(t, http.MethodPost, "/api/exams/finish", token, map[string]any{
		"session_id": start.SessionID,
	})

	// Second pass has to repeat seen questions, which finish reports.
	rec = e.do(t, http.MethodPost, "/api/exams/start", token, map[string]any{
		"discipline": "matematica", "count": 3,
	})
	start = decode[exam.StartResult](t, rec)
	if start.Repeated != 3 {
		t.Fatalf("expected 3 repeated questions, got %d", start.Repeated)
	}
	rec = e.do(t, http.MethodPost, "/api/exams/finish", token, map[string]any{
		"session_id": start.SessionID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("finish: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	finish := decode[map[string]any](t, rec)
	if finish["repeated"].(float64) != 3 {
		t.Errorf("expected repeated 3 on finish, got %v", finish["repeated"])
	}
	warning, _ := finish["warning"].(string)
	if warning == "" {
		t.Error("expected repeat warning on finish")
	}
}

func TestStartNoQuestionsConflict(t *testing.T) {
	e := newTestEnv(t)
	token := e.register(t, "aluno@example.com")

	rec := e.do(t, http.MethodPost, "/api/exams/start", token, map[string]any{
		"discipline": "matematica", "count": 5,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["code"] != "no_questions" {
		t.Errorf("expected no_questions code, got %q", body["code"])
	}
}

func TestRewardsAndChallenges(t *testing.T) {
	e := newTestEnv(t)
	token := e.register(t, "aluno@example.com")

	if err := e.store.InsertReward(model.Reward{
		ID: "r1", Title: "Pausa", CostFP: 50, Available: true,
	}); err != nil {
		t.Fatalf("InsertReward: %v", err)
	}

	rec := e.do(t, http.MethodGet, "/api/rewards", token, nil)
	rewards := decode[[]model.Reward](t, rec)
	if len(rewards) != 1 {
		t.Fatalf("expected 1 reward, got %d", len(rewards))
	}

	// Broke user cannot redeem.
	rec = e.do(t, http.MethodPost, "/api/rewards/redeem", token, map[string]string{"reward_id": "r1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("broke redeem: expected 400, got %d", rec.Code)
	}

	// No active challenge.
	rec = e.do(t, http.MethodGet, "/api/challenges/current", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("current challenge: expected 200, got %d", rec.Code)
	}
	current := decode[map[string]any](t, rec)
	if current["challenge"] != nil {
		t.Errorf("expected nil challenge, got %v", current["challenge"])
	}

	now := time.Now().UTC()
	if err := e.store.InsertChallenge(model.WeeklyChallenge{
		ID: "w1", Title: "Resolva 3", Goal: 3, RewardFP: 60,
		StartsAt: now.Add(-time.Hour), EndsAt: now.Add(24 * time.Hour),
	}); err != nil {
		t.Fatalf("InsertChallenge: %v", err)
	}

	rec = e.do(t, http.MethodPost, "/api/challenges/progress", token, map[string]any{
		"challenge_id": "w1", "increment": 3,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("progress: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	progress := decode[map[string]any](t, rec)
	if progress["message"] == nil {
		t.Error("expected completion message")
	}

	// The award makes the reward affordable.
	rec = e.do(t, http.MethodPost, "/api/rewards/redeem", token, map[string]string{"reward_id": "r1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("redeem: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCourses(t *testing.T) {
	e := newTestEnv(t)
	token := e.register(t, "aluno@example.com")
	if err := e.store.InsertCourse(model.Course{
		ID: "c1", Name: "Medicina", Institution: "USP", Cutoff: 810.0, Year: 2024, Active: true,
	}); err != nil {
		t.Fatalf("InsertCourse: %v", err)
	}

	rec := e.do(t, http.MethodGet, "/api/courses?search=medi", token, nil)
	courses := decode[[]model.Course](t, rec)
	if len(courses) != 1 {
		t.Fatalf("expected 1 course, got %d", len(courses))
	}

	// No target course yet.
	rec = e.do(t, http.MethodGet, "/api/users/course", token, nil)
	got := decode[map[string]any](t, rec)
	if got["course"] != nil {
		t.Errorf("expected nil course, got %v", got["course"])
	}

	rec = e.do(t, http.MethodPut, "/api/users/course", token, map[string]string{"course_id": "c1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set course: expected 200, got %d", rec.Code)
	}
	rec = e.do(t, http.MethodPut, "/api/users/course", token, map[string]string{"course_id": "nope"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown course: expected 400, got %d", rec.Code)
	}

	rec = e.do(t, http.MethodGet, "/api/users/course", token, nil)
	got = decode[map[string]any](t, rec)
	course, _ := got["course"].(map[string]any)
	if course == nil || course["id"] != "c1" {
		t.Errorf("expected course c1, got %v", got["course"])
	}
}

func TestExplainValidationAndCache(t *testing.T) {
	e := newTestEnv(t)
	token := e.register(t, "aluno@example.com")
	e.addQuestions(t, "matematica", 1)

	// Unknown level.
	rec := e.do(t, http.MethodPost, "/api/explain", token, map[string]any{
		"question_id": 1, "level": "complexo",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown level: expected 400, got %d", rec.Code)
	}

	// Unknown question.
	rec = e.do(t, http.MethodPost, "/api/explain", token, map[string]any{
		"question_id": 9999,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown question: expected 404, got %d", rec.Code)
	}

	// Cached explanations are served without touching the LLM.
	q, err := e.store.GetQuestion(1)
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	key := llm.ExplainRequest{Question: q, Level: llm.LevelNormal}.CacheKey()
	e.cache.Set(key, "explicação em cache")

	rec = e.do(t, http.MethodPost, "/api/explain", token, map[string]any{
		"question_id": 1,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("cached explain: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[map[string]any](t, rec)
	if resp["explanation"] != "explicação em cache" || resp["cached"] != true {
		t.Errorf("unexpected explain response: %v", resp)
	}
}
