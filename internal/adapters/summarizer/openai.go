package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"world-builder/internal/adapters/aipost"
	"world-builder/internal/adapters/prompts"
	"world-builder/internal/domain"
	"world-builder/internal/infra/backoff"
	"world-builder/internal/infra/metrics"
	openai "world-builder/internal/infra/openai"
)

// MaxSummaryLength — предел длины брифа недели в рунах.
const MaxSummaryLength = 400

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI сворачивает записи недели в бриф для иллюстратора через Chat Completions.
type OpenAI struct {
	client  chatClient
	model   string
	timeout time.Duration
	prompts prompts.Catalog
	clock   domain.Clock
	policy  backoff.Policy
	log     zerolog.Logger
}

// NewOpenAI создаёт провайдер суммаризации.
func NewOpenAI(client chatClient, model string, timeout time.Duration, catalog prompts.Catalog, clock domain.Clock, policy backoff.Policy, logger zerolog.Logger) *OpenAI {
	if model == "" {
		model = "gpt-4.1-mini"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAI{
		client:  client,
		model:   model,
		timeout: timeout,
		prompts: catalog,
		clock:   clock,
		policy:  policy,
		log:     logger.With().Str("component", "summarizer").Logger(),
	}
}

type summaryPayload struct {
	Summary string `json:"summary"`
}

// Summarize строит бриф недели по записям дневника.
func (s *OpenAI) Summarize(ctx context.Context, posts []domain.DiaryPost) (string, error) {
	entries := formatEntries(posts)
	if entries == "" {
		return "", fmt.Errorf("summarizer: нет текста для суммаризации")
	}
	req := openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.4,
		MaxTokens:   400,
		Messages: []openai.ChatMessage{
			{Role: openai.RoleSystem, Content: s.prompts.WeeklySummary.System},
			{Role: openai.RoleUser, Content: prompts.Render(s.prompts.WeeklySummary.User, map[string]string{"entries": entries})},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ResponseFormatTypeJSONObject},
	}

	var resp openai.ChatCompletionResponse
	err := backoff.RetryRateLimited(ctx, s.clock, s.policy, s.onRetry, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		var err error
		resp, err = s.client.CreateChatCompletion(callCtx, req)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	content, err := resp.FirstContent()
	if err != nil {
		return "", err
	}
	var parsed summaryPayload
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return "", fmt.Errorf("распаковка ответа LLM: %w", err)
	}
	summary := strings.TrimSpace(parsed.Summary)
	if summary == "" {
		return "", fmt.Errorf("summarizer: пустой бриф")
	}
	return clipRunes(summary, MaxSummaryLength), nil
}

func (s *OpenAI) onRetry(attempt int, delay time.Duration, err error) {
	metrics.IncProviderRetry("openai")
	s.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("summarizer: лимит запросов, повтор")
}

// formatEntries собирает записи в список «- день: текст», очищая каждую от инъекций.
func formatEntries(posts []domain.DiaryPost) string {
	lines := make([]string, 0, len(posts))
	for _, p := range posts {
		text := aipost.Sanitize(p.Content)
		if text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", p.CreatedAt.Format("Mon"), strings.ReplaceAll(text, "\n", " ")))
	}
	return strings.Join(lines, "\n")
}

func clipRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
