// Package imagegen перестраивает одно поле мира через модель генерации изображений.
package imagegen

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"world-builder/internal/adapters/prompts"
	"world-builder/internal/domain"
	"world-builder/internal/imaging"
	"world-builder/internal/infra/backoff"
	"world-builder/internal/infra/gemini"
	"world-builder/internal/infra/metrics"
)

const (
	// Temperature и Seed фиксированы, чтобы соседние правки мира оставались похожими.
	Temperature = 0.2
	Seed        = 42
)

type imageClient interface {
	GenerateImage(ctx context.Context, req gemini.ImageRequest) ([]byte, error)
}

// Generator генерирует новое изображение мира и убирает белый фон.
type Generator struct {
	client  imageClient
	prompts prompts.Catalog
	clock   domain.Clock
	policy  backoff.Policy
	log     zerolog.Logger
}

// NewGenerator создаёт генератор изображений.
func NewGenerator(client imageClient, catalog prompts.Catalog, clock domain.Clock, policy backoff.Policy, logger zerolog.Logger) *Generator {
	return &Generator{
		client:  client,
		prompts: catalog,
		clock:   clock,
		policy:  policy,
		log:     logger.With().Str("component", "imagegen").Logger(),
	}
}

// Generate отправляет текущий мир, маску поля и бриф из дневника.
// Ответ без изображения возвращается как domain.ErrNoImage.
func (g *Generator) Generate(ctx context.Context, base, fieldMask []byte, fieldID int, diaryText string) ([]byte, error) {
	if len(base) == 0 {
		return nil, fmt.Errorf("imagegen: пустое исходное изображение")
	}
	images := []gemini.InlineImage{{Data: base}}
	if len(fieldMask) > 0 {
		images = append(images, gemini.InlineImage{Data: fieldMask})
	}
	req := gemini.ImageRequest{
		SystemPrompt: g.prompts.WorldImage.System,
		Prompt: prompts.Render(g.prompts.WorldImage.Brief, map[string]string{
			"field": domain.DescribeField(fieldID),
			"diary": diaryText,
		}),
		Images:      images,
		Temperature: Temperature,
		Seed:        Seed,
	}

	var raw []byte
	err := backoff.RetryRateLimited(ctx, g.clock, g.policy, g.onRetry, func(ctx context.Context) error {
		var err error
		raw, err = g.client.GenerateImage(ctx, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("генерация поля %d: %w", fieldID, err)
	}
	out, err := imaging.RemoveWhiteBackground(raw)
	if err != nil {
		return nil, fmt.Errorf("удаление фона: %w", err)
	}
	return out, nil
}

func (g *Generator) onRetry(attempt int, delay time.Duration, err error) {
	metrics.IncProviderRetry("gemini")
	g.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("imagegen: лимит запросов, повтор")
}
