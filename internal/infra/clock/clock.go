package clock

import (
	"context"
	"time"
)

// Real реализует domain.Clock через системное время.
type Real struct{}

// Now возвращает текущее время.
func (Real) Now() time.Time { return time.Now() }

// Sleep ждёт d или отмены контекста.
func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Fake управляемые часы для тестов. Sleep сдвигает время мгновенно.
type Fake struct {
	Current time.Time
	Slept   []time.Duration
}

// NewFake создаёт часы, стоящие на t.
func NewFake(t time.Time) *Fake {
	return &Fake{Current: t}
}

// Now возвращает текущее время часов.
func (f *Fake) Now() time.Time { return f.Current }

// Sleep запоминает паузу и сдвигает часы.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.Slept = append(f.Slept, d)
	f.Current = f.Current.Add(d)
	return nil
}
