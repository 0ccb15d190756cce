package collection

import "testing"

type item struct {
	owner string
	n     int
}

func TestGroupByKeepsFirstAppearanceOrder(t *testing.T) {
	items := []item{{"b", 1}, {"a", 2}, {"b", 3}, {"c", 4}, {"a", 5}}
	groups := GroupBy(items, func(i item) string { return i.owner })
	if len(groups) != 3 {
		t.Fatalf("ожидали 3 группы, получили %d", len(groups))
	}
	wantKeys := []string{"b", "a", "c"}
	for i, g := range groups {
		if g.Key != wantKeys[i] {
			t.Fatalf("группа %d: ожидали ключ %q, получили %q", i, wantKeys[i], g.Key)
		}
	}
	if len(groups[0].Items) != 2 || groups[0].Items[0].n != 1 || groups[0].Items[1].n != 3 {
		t.Fatalf("элементы группы b перепутаны: %+v", groups[0].Items)
	}
}

func TestGroupByEmpty(t *testing.T) {
	groups := GroupBy([]item(nil), func(i item) string { return i.owner })
	if len(groups) != 0 {
		t.Fatalf("ожидали пустой результат, получили %d", len(groups))
	}
}
