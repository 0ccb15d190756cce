package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"world-builder/internal/domain"
	applog "world-builder/internal/infra/log"
)

// guardTTL задаёт срок жизни отметки о запуске по расписанию.
const guardTTL = time.Hour

// Entry привязывает задание к cron-выражению.
type Entry struct {
	Job  domain.JobName
	Spec string
}

// Scheduler запускает задания по cron-выражениям в заданном часовом поясе.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	guard  domain.Cache
	loc    *time.Location
	now    func() time.Time
	log    zerolog.Logger
	ctx    context.Context
}

// NewScheduler создаёт планировщик. guard необязателен: с ним каждое задание
// запускается один раз на минуту расписания, даже если процессов несколько.
func NewScheduler(ctx context.Context, runner *Runner, loc *time.Location, guard domain.Cache, logger zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	logger = logger.With().Str("component", "scheduler").Logger()
	adapter := applog.CronAdapter{Logger: logger}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc), cron.WithLogger(adapter), cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter))),
		runner: runner,
		guard:  guard,
		loc:    loc,
		now:    time.Now,
		log:    logger,
		ctx:    ctx,
	}
}

// Register добавляет записи расписания. Пустое выражение отключает задание.
func (s *Scheduler) Register(entries []Entry) error {
	for _, e := range entries {
		if e.Spec == "" {
			s.log.Info().Str("job", string(e.Job)).Msg("scheduler: задание отключено")
			continue
		}
		if _, ok := s.runner.Registry().Get(e.Job); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownJob, e.Job)
		}
		name := e.Job
		if _, err := s.cron.AddFunc(e.Spec, func() { s.fire(name) }); err != nil {
			return fmt.Errorf("расписание %s %q: %w", e.Job, e.Spec, err)
		}
		s.log.Info().Str("job", string(e.Job)).Str("spec", e.Spec).Msg("scheduler: задание зарегистрировано")
	}
	return nil
}

// Start запускает cron в фоне.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop останавливает cron и ждёт завершения текущих заданий или отмены ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) fire(name domain.JobName) {
	ran := false
	run := func() error {
		ran = true
		_, err := s.runner.Run(s.ctx, name, domain.JobOptions{})
		return err
	}
	if s.guard == nil {
		_ = run()
		return
	}
	key := fmt.Sprintf("run:%s:%s", name, s.now().In(s.loc).Truncate(time.Minute).Format("2006-01-02T15:04"))
	err := s.guard.Once(s.ctx, key, guardTTL, run)
	if err != nil && !ran {
		s.log.Warn().Err(err).Str("job", string(name)).Msg("scheduler: защита от повторов недоступна, запускаем без неё")
		_ = run()
		return
	}
	if !ran {
		s.log.Debug().Str("job", string(name)).Str("key", key).Msg("scheduler: задание уже запущено другим процессом")
	}
}
