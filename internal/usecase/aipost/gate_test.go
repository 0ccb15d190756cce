package aipost

import "testing"

func TestShouldExecute(t *testing.T) {
	if ShouldExecute(&scriptedRand{}, 0) {
		t.Fatalf("нулевая вероятность не должна срабатывать")
	}
	if !ShouldExecute(&scriptedRand{floats: []float64{0.99}}, 1) {
		t.Fatalf("единичная вероятность должна срабатывать")
	}
	if !ShouldExecute(&scriptedRand{floats: []float64{0.49}}, 0.5) {
		t.Fatalf("0.49 < 0.5 должно срабатывать")
	}
	if ShouldExecute(&scriptedRand{floats: []float64{0.5}}, 0.5) {
		t.Fatalf("0.5 не меньше 0.5")
	}
}

func TestPlanShortTerm(t *testing.T) {
	p := DefaultPolicy()
	cases := []struct {
		name   string
		recent int
		rng    *scriptedRand
		count  int
		ok     bool
	}{
		{name: "верхний предел", recent: p.MaxPerHour, rng: &scriptedRand{}, ok: false},
		{name: "выше предела", recent: p.MaxPerHour + 2, rng: &scriptedRand{}, ok: false},
		{name: "ниже минимума принудительно", recent: 0, rng: &scriptedRand{floats: []float64{0.99}}, count: p.DefaultBatch, ok: true},
		{name: "гейт не пройден", recent: 2, rng: &scriptedRand{floats: []float64{0.5}}, ok: false},
		{name: "гейт пройден", recent: 2, rng: &scriptedRand{floats: []float64{0.01}}, count: p.DefaultBatch, ok: true},
		{name: "малый остаток, ноль", recent: 4, rng: &scriptedRand{floats: []float64{0.01}, ints: []int{0}}, ok: false},
		{name: "малый остаток, два", recent: 4, rng: &scriptedRand{floats: []float64{0.01}, ints: []int{2}}, count: 2, ok: true},
	}
	for _, tc := range cases {
		count, ok := PlanShortTerm(tc.rng, tc.recent, p)
		if ok != tc.ok || count != tc.count {
			t.Fatalf("%s: ожидали %d/%v, получили %d/%v", tc.name, tc.count, tc.ok, count, ok)
		}
	}
}

func TestPlanShortTermSmallRemainderBelowMinimum(t *testing.T) {
	p := DefaultPolicy()
	p.MaxPerHour = 2
	p.MinPerHour = 1
	count, ok := PlanShortTerm(&scriptedRand{ints: []int{5}}, 0, p)
	if !ok || count != 2 {
		t.Fatalf("ожидали 2 поста из остатка 2, получили %d/%v", count, ok)
	}
}

func TestEligibleForLongTerm(t *testing.T) {
	p := DefaultPolicy()
	if EligibleForLongTerm(&scriptedRand{}, p.MaxPerHour, p) {
		t.Fatalf("владелец на пределе не должен проходить")
	}
	if !EligibleForLongTerm(&scriptedRand{floats: []float64{0.1}}, 0, p) {
		t.Fatalf("0.1 < 0.3 должно проходить")
	}
	if EligibleForLongTerm(&scriptedRand{floats: []float64{0.9}}, 0, p) {
		t.Fatalf("0.9 не должно проходить")
	}
}

func TestLongTermBatch(t *testing.T) {
	p := DefaultPolicy()
	if n := LongTermBatch(&scriptedRand{ints: []int{2}}, 0, p); n != 3 {
		t.Fatalf("ожидали 3, получили %d", n)
	}
	if n := LongTermBatch(&scriptedRand{ints: []int{2}}, p.MaxPerHour-1, p); n != 1 {
		t.Fatalf("ожидали обрезку до остатка 1, получили %d", n)
	}
}
