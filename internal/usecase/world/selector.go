// Package world строит недельные миры: выбор поля, daily-update и weekly-reset.
package world

import (
	"context"
	"fmt"

	"world-builder/internal/domain"
)

// Selector выбирает следующее поле мира для перестройки.
type Selector struct {
	logs domain.BuildLogRepo
	rng  domain.Rand
}

// NewSelector создаёт селектор полей.
func NewSelector(logs domain.BuildLogRepo, rng domain.Rand) *Selector {
	return &Selector{logs: logs, rng: rng}
}

// SelectField возвращает случайное ещё не построенное поле. Когда построены все девять,
// выбирает любое из них и возвращает isOverwrite=true.
func (s *Selector) SelectField(ctx context.Context, worldID string) (int, bool, error) {
	built, err := s.logs.ListBuiltFields(ctx, worldID)
	if err != nil {
		return 0, false, fmt.Errorf("получение журнала мира %s: %w", worldID, err)
	}
	var seen [domain.FieldCount]bool
	for _, id := range built {
		if domain.ValidField(id) {
			seen[id] = true
		}
	}
	free := make([]int, 0, domain.FieldCount)
	for id := 0; id < domain.FieldCount; id++ {
		if !seen[id] {
			free = append(free, id)
		}
	}
	if len(free) == 0 {
		return s.rng.Intn(domain.FieldCount), true, nil
	}
	return free[s.rng.Intn(len(free))], false, nil
}

// PickDistinct возвращает n разных полей в случайном порядке.
func PickDistinct(rng domain.Rand, n int) []int {
	if n > domain.FieldCount {
		n = domain.FieldCount
	}
	ids := make([]int, domain.FieldCount)
	for i := range ids {
		ids[i] = i
	}
	for i := 0; i < n; i++ {
		j := i + rng.Intn(domain.FieldCount-i)
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids[:n]
}
