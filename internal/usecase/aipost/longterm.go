package aipost

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"world-builder/internal/domain"
	"world-builder/internal/usecase/pipeline"
)

const (
	// Повод выбирается среди candidatePosts последних старых записей.
	candidatePosts  = 100
	longTermMinWait = time.Hour
	longTermMaxWait = 24 * time.Hour
)

// LongTerm вспоминает старые записи выбранных владельцев.
type LongTerm struct {
	deps   pipeline.Deps
	policy Policy
	log    zerolog.Logger
}

// NewLongTerm создаёт оркестратор ai-post-long-term.
func NewLongTerm(deps pipeline.Deps, policy Policy) *LongTerm {
	return &LongTerm{deps: deps, policy: policy, log: deps.JobLogger(domain.JobAiPostLongTerm)}
}

// Name реализует domain.Job.
func (l *LongTerm) Name() domain.JobName { return domain.JobAiPostLongTerm }

// Run реализует domain.Job.
func (l *LongTerm) Run(ctx context.Context, _ domain.JobOptions) (domain.JobResult, error) {
	res := domain.NewJobResult()
	if !ShouldExecute(l.deps.Rand, l.policy.LongTermJobChance) {
		res.Skipped = true
		return res, nil
	}

	now := l.deps.Clock.Now()
	cutoff := now.Add(-l.policy.ExclusionWindow)
	owners, err := l.deps.Diary.ListOwnersWithPostsBefore(ctx, cutoff)
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("получение владельцев: %w", err)
	}
	personas, err := loadPersonas(ctx, l.deps)
	if err != nil {
		return domain.JobResult{}, err
	}

	passed := false
	for _, owner := range owners {
		ran, n, err := l.processOwner(ctx, personas, owner, cutoff, now)
		if err != nil {
			l.log.Error().Err(err).Str("owner", owner).Msg("ai-post-long-term: не удалось написать посты")
			res.Fail("owner "+owner, err)
			continue
		}
		if !ran {
			continue
		}
		passed = true
		res.ProcessedCount++
		res.GeneratedCount += n
	}
	if !passed && len(res.Errors) == 0 {
		res.Skipped = true
	}
	return res, nil
}

func (l *LongTerm) processOwner(ctx context.Context, personas []domain.Persona, owner string, cutoff, now time.Time) (bool, int, error) {
	recent, err := l.deps.AiPosts.CountCreatedSince(ctx, &owner, now.Add(-rateWindow))
	if err != nil {
		return false, 0, fmt.Errorf("подсчёт постов за час: %w", err)
	}
	if !EligibleForLongTerm(l.deps.Rand, recent, l.policy) {
		return false, 0, nil
	}
	candidates, err := l.deps.Diary.ListOwnerPostsBefore(ctx, owner, cutoff, candidatePosts)
	if err != nil {
		return false, 0, fmt.Errorf("получение старых записей: %w", err)
	}
	if len(candidates) == 0 {
		return false, 0, nil
	}
	post := candidates[l.deps.Rand.Intn(len(candidates))]

	n, err := writeBatch(ctx, l.deps, personas, batch{
		OwnerID: &owner,
		Window:  domain.SourceWindow{Start: post.CreatedAt, End: post.CreatedAt},
		Source:  post.Content,
		Count:   LongTermBatch(l.deps.Rand, recent, l.policy),
		PublishDelay: func() time.Duration {
			return randomDelay(l.deps.Rand, longTermMinWait, longTermMaxWait)
		},
	})
	if err != nil {
		return true, 0, err
	}
	if n > 0 {
		l.log.Info().Str("owner", owner).Str("post", post.ID).Int("posts", n).Msg("ai-post-long-term: посты созданы")
	}
	return true, n, nil
}
