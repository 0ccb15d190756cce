// Package app собирает зависимости конвейера из конфигурации.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	aipostgen "world-builder/internal/adapters/aipost"
	"world-builder/internal/adapters/assets"
	"world-builder/internal/adapters/imagegen"
	"world-builder/internal/adapters/prompts"
	"world-builder/internal/adapters/repo"
	"world-builder/internal/adapters/summarizer"
	"world-builder/internal/domain"
	"world-builder/internal/infra/backoff"
	"world-builder/internal/infra/cache"
	"world-builder/internal/infra/clock"
	"world-builder/internal/infra/config"
	"world-builder/internal/infra/db"
	"world-builder/internal/infra/gemini"
	openai "world-builder/internal/infra/openai"
	"world-builder/internal/infra/push"
	"world-builder/internal/infra/random"
	"world-builder/internal/infra/storage"
	aipostjob "world-builder/internal/usecase/aipost"
	"world-builder/internal/usecase/notify"
	"world-builder/internal/usecase/pipeline"
	"world-builder/internal/usecase/schedule"
	"world-builder/internal/usecase/world"
)

// App — собранный конвейер.
type App struct {
	Runner   *schedule.Runner
	Location *time.Location
	// Cache равен nil, если Redis не настроен.
	Cache domain.Cache

	closers []func()
}

// Build подключается к хранилищам и собирает все задания.
func Build(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a := &App{Location: loc}

	pool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pool.Close)
	pg := repo.NewPostgres(pool)

	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.Cache = cache.NewRedis(client, "world-builder:")
	} else {
		logger.Info().Msg("app: REDIS_ADDR не задан, кэш и защита от повторов отключены")
	}

	gcs, err := storage.NewGCS(ctx, storage.Config{
		Bucket:          cfg.Storage.Bucket,
		PublicBaseURL:   cfg.Storage.PublicBaseURL,
		CredentialsFile: cfg.Storage.CredentialsFile,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = gcs.Close() })

	catalog, err := prompts.Load()
	if err != nil {
		a.Close()
		return nil, err
	}

	seed := cfg.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	clk := clock.Real{}
	policy := backoff.DefaultPolicy

	chat := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout)
	var weekly pipeline.Summarizer = summarizer.NewSimple()
	if cfg.OpenAI.APIKey != "" {
		weekly = summarizer.NewOpenAI(chat, cfg.OpenAI.Model, cfg.OpenAI.Timeout, catalog, clk, policy, logger)
	} else {
		logger.Warn().Msg("app: OPENAI_API_KEY не задан, недельный бриф строится без LLM")
	}
	images := gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.BaseURL, cfg.Gemini.Model, cfg.Gemini.Timeout)

	deps := pipeline.Deps{
		Profiles:   pg,
		Diary:      pg,
		Worlds:     pg,
		BuildLogs:  pg,
		AiPosts:    pg,
		Personas:   pg,
		Images:     imagegen.NewGenerator(images, catalog, clk, policy, logger),
		Posts:      aipostgen.NewGenerator(chat, cfg.OpenAI.Model, catalog, clk, policy, logger),
		Summarizer: weekly,
		Assets:     assets.NewLoader(gcs, a.Cache, cfg.World.BaseImageURL, cfg.World.FieldMaskURLTemplate, logger),
		Storage:    gcs,
		Clock:      clk,
		Rand:       random.NewLocked(seed),
		Location:   loc,
		Logger:     logger,
	}
	if cfg.Push.AppID != "" {
		deps.Pusher = push.NewOneSignal(cfg.Push.BaseURL, cfg.Push.AppID, cfg.Push.APIKey)
	}

	gate := GatePolicy(cfg)
	registry := schedule.NewRegistry(
		world.NewDailyUpdate(deps),
		world.NewWeeklyReset(deps),
		aipostjob.NewShortTerm(deps, gate, catalog.StandaloneBrief),
		aipostjob.NewLongTerm(deps, gate),
		notify.NewPushCheck(deps),
	)
	a.Runner = schedule.NewRunner(registry, logger)
	logger.Info().Int64("seed", seed).Str("tz", loc.String()).Msg("app: конвейер собран")
	return a, nil
}

// GatePolicy переносит лимиты AI-постов из конфигурации.
func GatePolicy(cfg config.AppConfig) aipostjob.Policy {
	p := aipostjob.DefaultPolicy()
	p.MaxPerHour = cfg.AiPost.MaxPerHour
	p.MinPerHour = cfg.AiPost.MinPerHour
	p.ShortTermChance = cfg.AiPost.ShortTermChance
	p.LongTermJobChance = cfg.AiPost.LongTermJobChance
	p.LongTermUserChance = cfg.AiPost.LongTermUserChance
	if cfg.AiPost.ExclusionWindow > 0 {
		p.ExclusionWindow = cfg.AiPost.ExclusionWindow
	}
	return p
}

// Entries возвращает расписание заданий. notification-test запускается только вручную.
func Entries(cfg config.AppConfig) []schedule.Entry {
	return []schedule.Entry{
		{Job: domain.JobDailyUpdate, Spec: cfg.Schedule.DailyUpdate},
		{Job: domain.JobWeeklyReset, Spec: cfg.Schedule.WeeklyReset},
		{Job: domain.JobAiPostShortTerm, Spec: cfg.Schedule.AiPostShortTerm},
		{Job: domain.JobAiPostLongTerm, Spec: cfg.Schedule.AiPostLongTerm},
	}
}

// ManualOptions возвращает параметры ручного запуска из окружения.
func ManualOptions(cfg config.AppConfig) domain.JobOptions {
	return domain.JobOptions{
		TargetDate:      cfg.Manual.TargetDate,
		TargetWeekStart: cfg.Manual.TargetWeekStart,
		TestUserID:      cfg.Manual.TestUserID,
	}
}

// Close освобождает подключения в обратном порядке.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
