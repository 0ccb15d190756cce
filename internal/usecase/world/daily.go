package world

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"world-builder/internal/collection"
	"world-builder/internal/domain"
	"world-builder/internal/usecase/pipeline"
)

// DailyUpdate перестраивает одно поле мира каждого владельца, писавшего в дневник в целевой день.
type DailyUpdate struct {
	deps     pipeline.Deps
	selector *Selector
	log      zerolog.Logger
}

// NewDailyUpdate создаёт оркестратор daily-update.
func NewDailyUpdate(deps pipeline.Deps) *DailyUpdate {
	return &DailyUpdate{
		deps:     deps,
		selector: NewSelector(deps.BuildLogs, deps.Rand),
		log:      deps.JobLogger(domain.JobDailyUpdate),
	}
}

// Name реализует domain.Job.
func (d *DailyUpdate) Name() domain.JobName { return domain.JobDailyUpdate }

// Run реализует domain.Job. Без TargetDate берётся вчерашний день.
func (d *DailyUpdate) Run(ctx context.Context, opts domain.JobOptions) (domain.JobResult, error) {
	loc := d.deps.Loc()
	date := domain.StartOfDay(d.deps.Now(), loc).AddDate(0, 0, -1)
	if opts.TargetDate != "" {
		parsed, err := domain.ParseDate(opts.TargetDate, loc)
		if err != nil {
			return domain.JobResult{}, err
		}
		date = parsed
	}

	posts, err := d.deps.Diary.ListDiaryPosts(ctx, date, date.AddDate(0, 0, 1))
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("получение записей за %s: %w", date.Format(domain.DateLayout), err)
	}
	weekStart := domain.WeekStart(date, loc)

	res := domain.NewJobResult()
	for _, group := range collection.GroupBy(posts, func(p domain.DiaryPost) string { return p.OwnerID }) {
		if err := d.processOwner(ctx, group.Key, group.Items, date, weekStart); err != nil {
			d.log.Error().Err(err).Str("owner", group.Key).Msg("daily-update: не удалось обновить мир")
			res.Fail("owner "+group.Key, err)
			continue
		}
		res.ProcessedCount++
		res.GeneratedCount++
	}
	return res, nil
}

func (d *DailyUpdate) processOwner(ctx context.Context, ownerID string, posts []domain.DiaryPost, date, weekStart time.Time) error {
	world, err := d.deps.Worlds.GetWorld(ctx, ownerID, weekStart)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("мир недели %s не найден: %w", weekStart.Format(domain.DateLayout), err)
	}
	if err != nil {
		return fmt.Errorf("получение мира: %w", err)
	}

	fieldID, overwrite, err := d.selector.SelectField(ctx, world.ID)
	if err != nil {
		return err
	}

	current, err := currentImage(ctx, d.deps, world)
	if err != nil {
		return err
	}
	mask, err := d.deps.Assets.FieldMask(ctx, fieldID)
	if err != nil {
		return err
	}
	img, err := d.deps.Images.Generate(ctx, current, mask, fieldID, pipeline.CombineDiaryText(posts))
	if err != nil {
		return err
	}

	path := fmt.Sprintf("worlds/%s/%s/%s-field%d-%s.png", ownerID, world.ID, date.Format(domain.DateLayout), fieldID, uuid.NewString())
	url, err := d.deps.Storage.Upload(ctx, path, img, "image/png")
	if err != nil {
		return fmt.Errorf("загрузка %s (владелец %s): %w", path, ownerID, err)
	}
	if err := d.deps.Worlds.UpdateWorldImage(ctx, world.ID, url); err != nil {
		return fmt.Errorf("обновление изображения мира: %w", err)
	}

	if overwrite {
		err = d.deps.BuildLogs.TouchBuildLog(ctx, world.ID, fieldID, date)
	} else {
		err = d.deps.BuildLogs.InsertBuildLog(ctx, domain.WorldBuildLog{WeeklyWorldID: world.ID, FieldID: fieldID, BuildDate: date})
	}
	if err != nil {
		return fmt.Errorf("запись журнала поля %d: %w", fieldID, err)
	}

	d.log.Info().Str("owner", ownerID).Int("field", fieldID).Bool("overwrite", overwrite).Msg("daily-update: поле перестроено")
	notifyOwner(ctx, d.deps, d.log, ownerID, domain.PushMessage{
		Title: "World Builder",
		Body:  "昨日の日記から、あなたの世界が少し広がりました。",
		Data:  map[string]string{"type": "world_updated", "world_id": world.ID},
	})
	return nil
}

// currentImage возвращает байты текущего изображения мира, для мира без изображения отдаёт шаблон.
func currentImage(ctx context.Context, deps pipeline.Deps, world domain.WeeklyWorld) ([]byte, error) {
	if world.CurrentImageURL == "" || world.CurrentImageURL == deps.Assets.BaseURL() {
		return deps.Assets.Base(ctx)
	}
	data, err := deps.Storage.Fetch(ctx, world.CurrentImageURL)
	if err != nil {
		return nil, fmt.Errorf("получение изображения мира: %w", err)
	}
	return data, nil
}

// notifyOwner отправляет push владельцу. Ошибка доставки не влияет на результат единицы работы.
func notifyOwner(ctx context.Context, deps pipeline.Deps, log zerolog.Logger, ownerID string, msg domain.PushMessage) {
	if deps.Pusher == nil {
		return
	}
	msg.ExternalUserIDs = []string{ownerID}
	if err := deps.Pusher.Send(ctx, msg); err != nil {
		log.Warn().Err(err).Str("owner", ownerID).Msg("world: не удалось отправить уведомление")
	}
}
