// Package notify содержит ручную задачу проверки push-уведомлений.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"world-builder/internal/domain"
	"world-builder/internal/usecase/pipeline"
)

// PushCheck отправляет тестовое уведомление одному пользователю.
type PushCheck struct {
	deps pipeline.Deps
	log  zerolog.Logger
}

// NewPushCheck создаёт задачу notification-test.
func NewPushCheck(deps pipeline.Deps) *PushCheck {
	return &PushCheck{deps: deps, log: deps.JobLogger(domain.JobNotificationTest)}
}

// Name реализует domain.Job.
func (n *PushCheck) Name() domain.JobName { return domain.JobNotificationTest }

// Run реализует domain.Job. TestUserID обязателен.
func (n *PushCheck) Run(ctx context.Context, opts domain.JobOptions) (domain.JobResult, error) {
	userID := strings.TrimSpace(opts.TestUserID)
	if userID == "" {
		return domain.JobResult{}, fmt.Errorf("%w: не задан TEST_USER_ID", domain.ErrInvalidOption)
	}
	if n.deps.Pusher == nil {
		return domain.JobResult{}, fmt.Errorf("%w: push-провайдер не настроен", domain.ErrInvalidOption)
	}

	res := domain.NewJobResult()
	msg := domain.PushMessage{
		ExternalUserIDs: []string{userID},
		Title:           "World Builder",
		Body:            "テスト通知です。",
		Data:            map[string]string{"type": "test", "sent_at": n.deps.Now().Format(time.RFC3339)},
	}
	if err := n.deps.Pusher.Send(ctx, msg); err != nil {
		n.log.Error().Err(err).Str("user", userID).Msg("notification-test: не удалось отправить")
		res.Fail("user "+userID, err)
		return res, nil
	}
	n.log.Info().Str("user", userID).Msg("notification-test: отправлено")
	res.ProcessedCount = 1
	return res, nil
}
