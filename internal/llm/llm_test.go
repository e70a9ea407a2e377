package llm

import (
	"strings"
	"testing"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"
)

func TestValidLevel(t *testing.T) {
	for _, l := range []string{"normal", "simples", "muito_simples", "eli5"} {
		if !ValidLevel(l) {
			t.Errorf("expected %q valid", l)
		}
	}
	for _, l := range []string{"", "complexo", "ELI5"} {
		if ValidLevel(l) {
			t.Errorf("expected %q invalid", l)
		}
	}
}

func TestBuildExplainPrompt(t *testing.T) {
	q := model.Question{
		ID:      7,
		Prompt:  "Qual é a capital do Brasil?",
		Options: []string{"São Paulo", "Rio de Janeiro", "Brasília", "Salvador", "Recife"},
		Correct: 2,
	}

	t.Run("correct answer letter", func(t *testing.T) {
		prompt := buildExplainPrompt(q, nil, LevelNormal)
		if !strings.Contains(prompt, q.Prompt) {
			t.Error("prompt should contain question text")
		}
		if !strings.Contains(prompt, "RESPOSTA CORRETA: C") {
			t.Error("prompt should name alternative C as correct")
		}
		if strings.Contains(prompt, "estudante marcou") {
			t.Error("prompt should not mention a marked choice")
		}
	})

	t.Run("wrong mark is addressed", func(t *testing.T) {
		marked := 0
		prompt := buildExplainPrompt(q, &marked, LevelNormal)
		if !strings.Contains(prompt, "marcou A") {
			t.Error("prompt should mention the student's choice")
		}
	})

	t.Run("correct mark not repeated", func(t *testing.T) {
		marked := 2
		prompt := buildExplainPrompt(q, &marked, LevelNormal)
		if strings.Contains(prompt, "estudante marcou") {
			t.Error("correct mark needs no extra explanation")
		}
	})

	t.Run("levels change instructions", func(t *testing.T) {
		normal := buildExplainPrompt(q, nil, LevelNormal)
		eli5 := buildExplainPrompt(q, nil, LevelELI5)
		if normal == eli5 {
			t.Error("expected level to change the prompt")
		}
		if !strings.Contains(eli5, "cinco anos") {
			t.Error("eli5 prompt should ask for a five-year-old explanation")
		}
	})
}

func TestCacheKey(t *testing.T) {
	q := model.Question{ID: 1, Prompt: "P"}
	a := ExplainRequest{Question: q, Level: LevelNormal}.CacheKey()
	b := ExplainRequest{Question: q, Level: LevelNormal}.CacheKey()
	if a != b {
		t.Error("expected stable cache key")
	}
	c := ExplainRequest{Question: q, Level: LevelELI5}.CacheKey()
	if a == c {
		t.Error("expected level to change the cache key")
	}
	d := ExplainRequest{Question: model.Question{ID: 2, Prompt: "P"}, Level: LevelNormal}.CacheKey()
	if a == d {
		t.Error("expected question id to change the cache key")
	}
}
