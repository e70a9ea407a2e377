// Package llm generates question explanations through an OpenAI-compatible
// chat completion API.
package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brandaorrrodrigo/enem-ia-backend/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// ErrExhausted is returned when every retry attempt against the LLM failed.
var ErrExhausted = errors.New("llm retries exhausted")

// Level selects how much an explanation is simplified.
type Level string

const (
	LevelNormal     Level = "normal"
	LevelSimple     Level = "simples"
	LevelVerySimple Level = "muito_simples"
	LevelELI5       Level = "eli5"
)

// ValidLevel reports whether the simplification level is known.
func ValidLevel(l string) bool {
	switch Level(l) {
	case LevelNormal, LevelSimple, LevelVerySimple, LevelELI5:
		return true
	}
	return false
}

// Client wraps an OpenAI-compatible API client with bounded retries.
type Client struct {
	api        *openai.Client
	model      string
	maxRetries int
	retryDelay time.Duration
}

// New creates a new LLM client. baseURL may be empty for the default
// OpenAI endpoint.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:        openai.NewClientWithConfig(config),
		model:      modelName,
		maxRetries: 2,
		retryDelay: 2 * time.Second,
	}
}

// Ping verifies the endpoint is reachable and credentials work.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// ExplainRequest asks for an explanation of one question, optionally noting
// which alternative the student marked.
type ExplainRequest struct {
	Question model.Question
	Marked   *int
	Level    Level
}

// CacheKey derives a stable cache key for an explanation request.
func (r ExplainRequest) CacheKey() string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|", r.Question.ID, r.Level)
	h.Write([]byte(r.Question.Prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// Explain asks the LLM to explain the question's correct answer. Transient
// API failures are retried a bounded number of times with a fixed delay;
// when all attempts fail the error wraps ErrExhausted.
func (c *Client) Explain(ctx context.Context, req ExplainRequest) (string, error) {
	level := req.Level
	if level == "" {
		level = LevelNormal
	}
	systemPrompt := buildExplainPrompt(req.Question, req.Marked, level)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			slog.Warn("retrying LLM explanation", "attempt", attempt, "question", req.Question.ID, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: "Explique a resposta correta."},
			},
			Temperature: 0.3,
		})
		if err != nil {
			lastErr = fmt.Errorf("LLM API call: %w", err)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = errors.New("LLM returned no choices")
			continue
		}
		text := strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			lastErr = errors.New("LLM returned empty explanation")
			continue
		}
		return text, nil
	}
	return "", fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}

func buildExplainPrompt(q model.Question, marked *int, level Level) string {
	var sb strings.Builder
	sb.WriteString("Você é um professor preparando estudantes para o ENEM. ")
	sb.WriteString("Explique a questão abaixo em português.\n\n")
	sb.WriteString("QUESTÃO: " + q.Prompt + "\n\n")
	sb.WriteString("ALTERNATIVAS:\n")
	for i, opt := range q.Options {
		sb.WriteString(fmt.Sprintf("%c) %s\n", 'A'+i, opt))
	}
	sb.WriteString(fmt.Sprintf("\nRESPOSTA CORRETA: %c\n", 'A'+q.Correct))
	if marked != nil && *marked != q.Correct {
		sb.WriteString(fmt.Sprintf("O estudante marcou %c. Explique também por que essa alternativa está errada.\n", 'A'+*marked))
	}

	sb.WriteString("\nINSTRUÇÕES:\n")
	sb.WriteString("- Explique por que a resposta correta está certa, passo a passo.\n")
	switch level {
	case LevelSimple:
		sb.WriteString("- Use linguagem simples e frases curtas.\n")
	case LevelVerySimple:
		sb.WriteString("- Use linguagem muito simples, sem jargão, com exemplos do cotidiano.\n")
	case LevelELI5:
		sb.WriteString("- Explique como se o estudante tivesse cinco anos, usando uma analogia concreta.\n")
	default:
		sb.WriteString("- Use o nível de detalhe de uma aula de cursinho.\n")
	}
	sb.WriteString("- Não invente informações que não estão na questão.\n")
	return sb.String()
}
