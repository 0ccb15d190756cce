// Package aipost решает, когда и сколько AI-постов писать, и запускает генерацию.
package aipost

import (
	"time"

	"world-builder/internal/domain"
)

// Policy задаёт лимиты и вероятности генерации.
type Policy struct {
	MaxPerHour         int
	MinPerHour         int
	ShortTermChance    float64
	LongTermJobChance  float64
	LongTermUserChance float64
	ExclusionWindow    time.Duration
	DefaultBatch       int
	LongTermMinBatch   int
	LongTermMaxBatch   int
}

// DefaultPolicy возвращает значения по умолчанию.
func DefaultPolicy() Policy {
	return Policy{
		MaxPerHour:         6,
		MinPerHour:         1,
		ShortTermChance:    0.02,
		LongTermJobChance:  0.5,
		LongTermUserChance: 0.3,
		ExclusionWindow:    7 * 24 * time.Hour,
		DefaultBatch:       3,
		LongTermMinBatch:   1,
		LongTermMaxBatch:   3,
	}
}

// ShouldExecute — испытание Бернулли с вероятностью chance.
func ShouldExecute(rng domain.Rand, chance float64) bool {
	if chance <= 0 {
		return false
	}
	if chance >= 1 {
		return true
	}
	return rng.Float64() < chance
}

// PlanShortTerm решает, запускать ли краткосрочную генерацию при recent постах за последний час,
// и сколько постов писать.
func PlanShortTerm(rng domain.Rand, recent int, p Policy) (int, bool) {
	if recent >= p.MaxPerHour {
		return 0, false
	}
	if recent >= p.MinPerHour && !ShouldExecute(rng, p.ShortTermChance) {
		return 0, false
	}
	remaining := p.MaxPerHour - recent
	if remaining < p.DefaultBatch {
		n := rng.Intn(remaining + 1)
		if n == 0 {
			return 0, false
		}
		return n, true
	}
	return p.DefaultBatch, true
}

// EligibleForLongTerm проверяет персональный лимит и проводит персональное испытание.
func EligibleForLongTerm(rng domain.Rand, recent int, p Policy) bool {
	if recent >= p.MaxPerHour {
		return false
	}
	return ShouldExecute(rng, p.LongTermUserChance)
}

// LongTermBatch возвращает размер пачки в [LongTermMinBatch, LongTermMaxBatch], не больше остатка квоты.
func LongTermBatch(rng domain.Rand, recent int, p Policy) int {
	lo, hi := p.LongTermMinBatch, p.LongTermMaxBatch
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	n := lo + rng.Intn(hi-lo+1)
	if remaining := p.MaxPerHour - recent; n > remaining {
		n = remaining
	}
	return n
}
