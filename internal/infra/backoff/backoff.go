package backoff

import (
	"context"
	"errors"
	"math"
	"time"

	cbackoff "github.com/cenkalti/backoff/v4"

	"world-builder/internal/domain"
)

// Policy задаёт экспоненциальные ретраи.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultPolicy — 3 повтора, пауза от 1с с удвоением, не больше 10с.
var DefaultPolicy = Policy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

// OnRetry вызывается перед каждой паузой.
type OnRetry func(attempt int, delay time.Duration, err error)

func (p Policy) backOff(ctx context.Context, clk domain.Clock) cbackoff.BackOff {
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Duration(math.MaxInt64)
	}
	exp := &cbackoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxDelay,
		MaxElapsedTime:      0,
		Stop:                cbackoff.Stop,
		Clock:               clk,
	}
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return cbackoff.WithContext(cbackoff.WithMaxRetries(exp, uint64(retries)), ctx)
}

// clockTimer реализует cbackoff.Timer поверх domain.Clock, чтобы паузы шли через инжектированные часы.
type clockTimer struct {
	ctx context.Context
	clk domain.Clock
	c   chan time.Time
}

func (t *clockTimer) Start(d time.Duration) {
	t.c = make(chan time.Time, 1)
	if err := t.clk.Sleep(t.ctx, d); err == nil {
		t.c <- t.clk.Now()
	}
}

func (t *clockTimer) Stop() {}

func (t *clockTimer) C() <-chan time.Time { return t.c }

// RetryRateLimited выполняет fn и повторяет её, пока она возвращает domain.ErrRateLimited,
// но не более MaxRetries раз. Остальные ошибки возвращаются сразу.
func RetryRateLimited(ctx context.Context, clk domain.Clock, p Policy, onRetry OnRetry, fn func(ctx context.Context) error) error {
	attempt := 0
	op := func() error {
		err := fn(ctx)
		if err != nil && !errors.Is(err, domain.ErrRateLimited) {
			return cbackoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		attempt++
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
	}
	return cbackoff.RetryNotifyWithTimer(op, p.backOff(ctx, clk), notify, &clockTimer{ctx: ctx, clk: clk})
}
