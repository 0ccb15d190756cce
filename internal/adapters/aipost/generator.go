package aipost

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"world-builder/internal/adapters/prompts"
	"world-builder/internal/domain"
	"world-builder/internal/infra/backoff"
	"world-builder/internal/infra/metrics"
	openai "world-builder/internal/infra/openai"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Generator пишет короткие комментарии от лица персоны.
// Идемпотентность (HasExistingPost) проверяет вызывающая сторона.
type Generator struct {
	client  chatClient
	model   string
	prompts prompts.Catalog
	clock   domain.Clock
	policy  backoff.Policy
	timeout time.Duration
	log     zerolog.Logger
}

// NewGenerator создаёт генератор AI-постов.
func NewGenerator(client chatClient, model string, catalog prompts.Catalog, clock domain.Clock, policy backoff.Policy, logger zerolog.Logger) *Generator {
	if model == "" {
		model = "gpt-4.1-mini"
	}
	return &Generator{
		client:  client,
		model:   model,
		prompts: catalog,
		clock:   clock,
		policy:  policy,
		timeout: 60 * time.Second,
		log:     logger.With().Str("component", "aipost_generator").Logger(),
	}
}

type postsPayload struct {
	Posts []string `json:"posts"`
}

// Generate возвращает до count постов, каждый не длиннее MaxPostLength рун.
func (g *Generator) Generate(ctx context.Context, persona domain.Persona, sourceText string, count int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	system := prompts.Render(g.prompts.AiPost.System, map[string]string{
		"name":        persona.Name,
		"description": persona.Description,
		"count":       strconv.Itoa(count),
		"max_length":  strconv.Itoa(MaxPostLength),
	})
	user := prompts.Render(g.prompts.AiPost.User, map[string]string{"source": Sanitize(sourceText)})

	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: 0.9,
		MaxTokens:   600,
		Messages: []openai.ChatMessage{
			{Role: openai.RoleSystem, Content: system},
			{Role: openai.RoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ResponseFormatTypeJSONObject},
	}

	var resp openai.ChatCompletionResponse
	err := backoff.RetryRateLimited(ctx, g.clock, g.policy, g.onRetry, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		var err error
		resp, err = g.client.CreateChatCompletion(callCtx, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	content, err := resp.FirstContent()
	if err != nil {
		return nil, err
	}
	var parsed postsPayload
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("распаковка ответа LLM: %w", err)
	}

	out := make([]string, 0, count)
	for _, p := range parsed.Posts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		out = append(out, clipRunes(trimmed, MaxPostLength))
		if len(out) == count {
			break
		}
	}
	return out, nil
}

func (g *Generator) onRetry(attempt int, delay time.Duration, err error) {
	metrics.IncProviderRetry("openai")
	g.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("aipost: лимит запросов, повтор")
}
