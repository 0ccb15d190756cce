package aipost

import (
	"context"
	"fmt"
	"time"

	"world-builder/internal/collection"
	"world-builder/internal/domain"
	"world-builder/internal/infra/metrics"
	"world-builder/internal/usecase/pipeline"
)

// batch описывает одну пачку постов для владельца (или самостоятельную при OwnerID == nil).
type batch struct {
	OwnerID *string
	Window  domain.SourceWindow
	Source  string
	Count   int
	// PublishDelay возвращает задержку публикации очередного поста.
	PublishDelay func() time.Duration
}

// writeBatch проверяет, что пачки для окна ещё нет, генерирует посты и сохраняет их одной записью.
// Возвращает число созданных постов; 0 без ошибки означает, что пачка уже существует.
func writeBatch(ctx context.Context, deps pipeline.Deps, personas []domain.Persona, b batch) (int, error) {
	exists, err := deps.AiPosts.HasExistingPost(ctx, b.OwnerID, b.Window)
	if err != nil {
		return 0, fmt.Errorf("проверка существующих постов: %w", err)
	}
	if exists {
		return 0, nil
	}

	picked := make([]domain.Persona, b.Count)
	for i := range picked {
		picked[i] = personas[deps.Rand.Intn(len(personas))]
	}
	now := deps.Clock.Now()
	posts := make([]domain.AiPost, 0, b.Count)
	for _, group := range collection.GroupBy(picked, func(p domain.Persona) string { return p.ID }) {
		texts, err := deps.Posts.Generate(ctx, group.Items[0], b.Source, len(group.Items))
		if err != nil {
			return 0, fmt.Errorf("генерация от лица %s: %w", group.Items[0].Name, err)
		}
		for _, text := range texts {
			posts = append(posts, domain.AiPost{
				PersonaID:     group.Key,
				OwnerID:       b.OwnerID,
				Content:       text,
				SourceStartAt: b.Window.Start,
				SourceEndAt:   b.Window.End,
				PublishedAt:   now.Add(b.PublishDelay()),
			})
		}
	}
	if len(posts) == 0 {
		return 0, nil
	}
	if err := deps.AiPosts.CreateAiPosts(ctx, posts); err != nil {
		return 0, fmt.Errorf("сохранение постов: %w", err)
	}
	metrics.IncGenerated("ai_post", len(posts))
	return len(posts), nil
}

func ownerUnit(ownerID *string) string {
	if ownerID == nil {
		return "standalone"
	}
	return "owner " + *ownerID
}

func loadPersonas(ctx context.Context, deps pipeline.Deps) ([]domain.Persona, error) {
	personas, err := deps.Personas.ListPersonas(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение персон: %w", err)
	}
	if len(personas) == 0 {
		return nil, fmt.Errorf("%w: не настроено ни одной персоны", domain.ErrInvalidOption)
	}
	return personas, nil
}

// randomDelay возвращает случайную задержку из [lo, hi] с шагом в минуту.
func randomDelay(rng domain.Rand, lo, hi time.Duration) time.Duration {
	steps := int((hi - lo) / time.Minute)
	if steps <= 0 {
		return lo
	}
	return lo + time.Duration(rng.Intn(steps+1))*time.Minute
}
