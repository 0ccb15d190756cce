// Package schedule связывает задания с cron-расписанием и ручным запуском.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"world-builder/internal/domain"
	"world-builder/internal/infra/metrics"
)

// ErrUnknownJob возвращается для незарегистрированного имени задания.
var ErrUnknownJob = fmt.Errorf("%w: unknown job", domain.ErrNotFound)

// Registry хранит задания в порядке регистрации.
type Registry struct {
	jobs  map[domain.JobName]domain.Job
	order []domain.JobName
}

// NewRegistry создаёт реестр заданий.
func NewRegistry(jobs ...domain.Job) *Registry {
	r := &Registry{jobs: make(map[domain.JobName]domain.Job, len(jobs))}
	for _, job := range jobs {
		if _, ok := r.jobs[job.Name()]; !ok {
			r.order = append(r.order, job.Name())
		}
		r.jobs[job.Name()] = job
	}
	return r
}

// Get возвращает задание по имени.
func (r *Registry) Get(name domain.JobName) (domain.Job, bool) {
	job, ok := r.jobs[name]
	return job, ok
}

// Names возвращает имена заданий в порядке регистрации.
func (r *Registry) Names() []domain.JobName {
	return append([]domain.JobName(nil), r.order...)
}

// Runner запускает задание, пишет лог начала и итога и обновляет метрики.
// Задания выполняются строго по одному: расписание и ручные запуски ждут друг друга.
type Runner struct {
	registry *Registry
	log      zerolog.Logger
	mu       sync.Mutex
}

// NewRunner создаёт Runner.
func NewRunner(registry *Registry, logger zerolog.Logger) *Runner {
	return &Runner{registry: registry, log: logger.With().Str("component", "scheduler").Logger()}
}

// Registry возвращает реестр заданий.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Run выполняет задание до конца. Ошибка означает ошибку конфигурации или неизвестное имя.
func (r *Runner) Run(ctx context.Context, name domain.JobName, opts domain.JobOptions) (domain.JobResult, error) {
	job, ok := r.registry.Get(name)
	if !ok {
		return domain.JobResult{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	log := r.log.With().Str("job", string(name)).Logger()

	r.mu.Lock()
	defer r.mu.Unlock()
	log.Info().Interface("options", opts).Msg("scheduler: запуск задания")

	start := time.Now()
	res, err := job.Run(ctx, opts)
	if err != nil {
		metrics.ObserveJob(string(name), start, false, false, 0)
		log.Error().Err(err).Dur("took", time.Since(start)).Msg("scheduler: задание не выполнено")
		return res, err
	}
	metrics.ObserveJob(string(name), start, res.Success, res.Skipped, len(res.Errors))

	event := log.Info()
	msg := "scheduler: задание выполнено"
	if !res.Success {
		event = log.Warn().Strs("errors", res.Errors)
		msg = "scheduler: задание выполнено с ошибками"
	}
	event.
		Bool("success", res.Success).
		Bool("skipped", res.Skipped).
		Int("processed", res.ProcessedCount).
		Int("generated", res.GeneratedCount).
		Dur("took", time.Since(start)).
		Msg(msg)
	return res, nil
}
