// Package random содержит потокобезопасный источник случайности для заданий.
package random

import (
	"math/rand"
	"sync"
)

// Locked оборачивает *rand.Rand мьютексом: cron и ручной запуск вызывают задания из разных горутин.
type Locked struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLocked создаёт источник с заданным seed.
func NewLocked(seed int64) *Locked {
	return &Locked{rng: rand.New(rand.NewSource(seed))}
}

// Intn реализует domain.Rand.
func (l *Locked) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Intn(n)
}

// Float64 реализует domain.Rand.
func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}
