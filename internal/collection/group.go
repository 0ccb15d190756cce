// Package collection содержит обобщённые помощники для срезов.
package collection

// Group хранит ключ и элементы, попавшие в группу, в исходном порядке.
type Group[K comparable, V any] struct {
	Key   K
	Items []V
}

// GroupBy группирует элементы по ключу. Группы идут в порядке первого появления ключа,
// поэтому результат детерминирован при одинаковом входе.
func GroupBy[K comparable, V any](items []V, key func(V) K) []Group[K, V] {
	index := make(map[K]int)
	groups := make([]Group[K, V], 0)
	for _, item := range items {
		k := key(item)
		idx, ok := index[k]
		if !ok {
			idx = len(groups)
			index[k] = idx
			groups = append(groups, Group[K, V]{Key: k})
		}
		groups[idx].Items = append(groups[idx].Items, item)
	}
	return groups
}
