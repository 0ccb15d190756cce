package aipost

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"world-builder/internal/collection"
	"world-builder/internal/domain"
	"world-builder/internal/usecase/pipeline"
)

const (
	// ShortTermWindow — насколько свежие записи учитываются.
	ShortTermWindow = 30 * time.Minute
	rateWindow      = time.Hour
)

// ShortTerm реагирует на записи последних 30 минут и пишет самостоятельные посты.
// Лимит постов в час общий для всех владельцев и самостоятельных постов.
type ShortTerm struct {
	deps            pipeline.Deps
	policy          Policy
	standaloneBrief string
	log             zerolog.Logger
}

// NewShortTerm создаёт оркестратор ai-post-short-term.
// standaloneBrief используется как источник самостоятельных постов, когда свежих записей нет.
func NewShortTerm(deps pipeline.Deps, policy Policy, standaloneBrief string) *ShortTerm {
	return &ShortTerm{deps: deps, policy: policy, standaloneBrief: standaloneBrief, log: deps.JobLogger(domain.JobAiPostShortTerm)}
}

// Name реализует domain.Job.
func (s *ShortTerm) Name() domain.JobName { return domain.JobAiPostShortTerm }

type shortTermUnit struct {
	ownerID *string
	window  domain.SourceWindow
	source  string
}

// Run реализует domain.Job.
func (s *ShortTerm) Run(ctx context.Context, _ domain.JobOptions) (domain.JobResult, error) {
	now := s.deps.Clock.Now()
	recent, err := s.deps.AiPosts.CountAllCreatedSince(ctx, now.Add(-rateWindow))
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("подсчёт постов за час: %w", err)
	}

	res := domain.NewJobResult()
	count, ok := PlanShortTerm(s.deps.Rand, recent, s.policy)
	if !ok {
		s.log.Debug().Int("recent", recent).Msg("ai-post-short-term: гейт не пройден")
		res.Skipped = true
		return res, nil
	}

	posts, err := s.deps.Diary.ListDiaryPosts(ctx, now.Add(-ShortTermWindow), now)
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("получение свежих записей: %w", err)
	}
	personas, err := loadPersonas(ctx, s.deps)
	if err != nil {
		return domain.JobResult{}, err
	}

	for i, unit := range s.units(posts, now) {
		if i > 0 {
			// следующие единицы планируются от уже набранного за час
			if count, ok = PlanShortTerm(s.deps.Rand, recent, s.policy); !ok {
				s.log.Debug().Str("unit", ownerUnit(unit.ownerID)).Int("recent", recent).Msg("ai-post-short-term: квота часа исчерпана")
				continue
			}
		}
		n, err := writeBatch(ctx, s.deps, personas, batch{
			OwnerID: unit.ownerID,
			Window:  unit.window,
			Source:  unit.source,
			Count:   count,
			PublishDelay: func() time.Duration {
				return randomDelay(s.deps.Rand, time.Minute, ShortTermWindow)
			},
		})
		recent += n
		s.record(&res, unit.ownerID, n, err)
	}
	return res, nil
}

// units возвращает единицы работы: владельцев со свежими записями и одну самостоятельную.
func (s *ShortTerm) units(posts []domain.DiaryPost, now time.Time) []shortTermUnit {
	var units []shortTermUnit
	for _, group := range collection.GroupBy(posts, func(p domain.DiaryPost) string { return p.OwnerID }) {
		owner := group.Key
		units = append(units, shortTermUnit{
			ownerID: &owner,
			window:  domain.SourceWindow{Start: group.Items[0].CreatedAt, End: group.Items[len(group.Items)-1].CreatedAt},
			source:  pipeline.CombineDiaryText(group.Items),
		})
	}

	end := now.Truncate(time.Minute)
	source := pipeline.CombineDiaryText(posts)
	if source == "" {
		source = s.standaloneBrief
	}
	return append(units, shortTermUnit{
		window: domain.SourceWindow{Start: end.Add(-ShortTermWindow), End: end},
		source: source,
	})
}

func (s *ShortTerm) record(res *domain.JobResult, ownerID *string, n int, err error) {
	unit := ownerUnit(ownerID)
	if err != nil {
		s.log.Error().Err(err).Str("unit", unit).Msg("ai-post-short-term: не удалось написать посты")
		res.Fail(unit, err)
		return
	}
	res.ProcessedCount++
	res.GeneratedCount += n
	if n > 0 {
		s.log.Info().Str("unit", unit).Int("posts", n).Msg("ai-post-short-term: посты созданы")
	}
}
