package world

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"world-builder/internal/domain"
	"world-builder/internal/usecase/pipeline"
)

// seedFields полей строится при создании мира по записям прошлой недели.
const seedFields = 2

// WeeklyReset создаёт миры новой недели.
type WeeklyReset struct {
	deps pipeline.Deps
	log  zerolog.Logger
}

// NewWeeklyReset создаёт оркестратор weekly-reset.
func NewWeeklyReset(deps pipeline.Deps) *WeeklyReset {
	return &WeeklyReset{deps: deps, log: deps.JobLogger(domain.JobWeeklyReset)}
}

// Name реализует domain.Job.
func (w *WeeklyReset) Name() domain.JobName { return domain.JobWeeklyReset }

// Run реализует domain.Job. TargetWeekStart задаёт уходящую неделю и должен быть понедельником;
// по умолчанию это прошлая неделя.
func (w *WeeklyReset) Run(ctx context.Context, opts domain.JobOptions) (domain.JobResult, error) {
	loc := w.deps.Loc()
	target := domain.WeekStart(w.deps.Now(), loc).AddDate(0, 0, -7)
	if opts.TargetWeekStart != "" {
		parsed, err := domain.ParseDate(opts.TargetWeekStart, loc)
		if err != nil {
			return domain.JobResult{}, err
		}
		if parsed.Weekday() != time.Monday {
			return domain.JobResult{}, fmt.Errorf("%w: %s не понедельник", domain.ErrInvalidOption, opts.TargetWeekStart)
		}
		target = parsed
	}
	newStart := target.AddDate(0, 0, 7)

	profiles, err := w.deps.Profiles.ListActiveProfiles(ctx)
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("получение профилей: %w", err)
	}

	res := domain.NewJobResult()
	for _, profile := range profiles {
		generated, created, err := w.processOwner(ctx, profile.ID, target, newStart)
		if err != nil {
			w.log.Error().Err(err).Str("owner", profile.ID).Msg("weekly-reset: не удалось создать мир")
			res.Fail("owner "+profile.ID, err)
			continue
		}
		if !created {
			continue
		}
		res.ProcessedCount++
		res.GeneratedCount += generated
	}
	return res, nil
}

func (w *WeeklyReset) processOwner(ctx context.Context, ownerID string, target, newStart time.Time) (int, bool, error) {
	_, err := w.deps.Worlds.GetWorld(ctx, ownerID, newStart)
	if err == nil {
		w.log.Debug().Str("owner", ownerID).Msg("weekly-reset: мир новой недели уже есть")
		return 0, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, false, fmt.Errorf("получение мира: %w", err)
	}

	posts, err := w.deps.Diary.ListOwnerDiaryPosts(ctx, ownerID, target, newStart)
	if err != nil {
		return 0, false, fmt.Errorf("получение записей недели: %w", err)
	}
	if len(posts) == 0 {
		world := domain.WeeklyWorld{OwnerID: ownerID, WeekStartDate: newStart, CurrentImageURL: w.deps.Assets.BaseURL()}
		if _, err := w.deps.Worlds.CreateWorld(ctx, world); err != nil {
			return 0, false, fmt.Errorf("создание мира: %w", err)
		}
		w.log.Info().Str("owner", ownerID).Msg("weekly-reset: мир создан из шаблона")
		return 0, true, nil
	}

	brief, err := w.deps.Summarizer.Summarize(ctx, posts)
	if err != nil {
		return 0, false, fmt.Errorf("суммаризация недели: %w", err)
	}
	fields := PickDistinct(w.deps.Rand, seedFields)

	img, err := w.deps.Assets.Base(ctx)
	if err != nil {
		return 0, false, err
	}
	var url string
	for step, fieldID := range fields {
		if step > 0 {
			// следующий шаг строится поверх уже загруженного результата
			if img, err = w.deps.Storage.Fetch(ctx, url); err != nil {
				return 0, false, fmt.Errorf("получение %s: %w", url, err)
			}
		}
		mask, err := w.deps.Assets.FieldMask(ctx, fieldID)
		if err != nil {
			return 0, false, err
		}
		out, err := w.deps.Images.Generate(ctx, img, mask, fieldID, brief)
		if err != nil {
			return 0, false, err
		}
		path := fmt.Sprintf("worlds/%s/week-%s/seed%d-field%d-%s.png", ownerID, newStart.Format(domain.DateLayout), step+1, fieldID, uuid.NewString())
		if url, err = w.deps.Storage.Upload(ctx, path, out, "image/png"); err != nil {
			return 0, false, fmt.Errorf("загрузка %s (владелец %s): %w", path, ownerID, err)
		}
	}

	world, err := w.deps.Worlds.CreateSeededWorld(ctx, domain.WeeklyWorld{OwnerID: ownerID, WeekStartDate: newStart, CurrentImageURL: url}, fields, newStart)
	if err != nil {
		return 0, false, fmt.Errorf("создание мира с журналом полей %v: %w", fields, err)
	}
	w.log.Info().Str("owner", ownerID).Ints("fields", fields).Msg("weekly-reset: мир создан по записям недели")
	notifyOwner(ctx, w.deps, w.log, ownerID, domain.PushMessage{
		Title: "World Builder",
		Body:  "新しい一週間の世界ができました。",
		Data:  map[string]string{"type": "world_created", "world_id": world.ID},
	})
	return len(fields), true, nil
}
