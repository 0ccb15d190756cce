package domain

import (
	"strings"
	"testing"
)

func TestFieldLayoutIsDiamond(t *testing.T) {
	widths := map[int]int{}
	for _, c := range FieldLayout {
		widths[c.Row]++
	}
	want := []int{1, 2, 3, 2, 1}
	for row, w := range want {
		if widths[row] != w {
			t.Fatalf("ряд %d: ожидали %d клеток, получили %d", row, w, widths[row])
		}
	}
}

func TestValidField(t *testing.T) {
	if ValidField(-1) || ValidField(FieldCount) {
		t.Fatalf("поля вне диапазона должны быть невалидны")
	}
	for id := 0; id < FieldCount; id++ {
		if !ValidField(id) {
			t.Fatalf("поле %d должно быть валидно", id)
		}
	}
}

func TestDescribeField(t *testing.T) {
	cases := map[int]string{
		0: "the top center tile",
		3: "the middle left tile",
		4: "the middle center tile",
		7: "the lower right tile",
		8: "the bottom center tile",
	}
	for id, prefix := range cases {
		if got := DescribeField(id); !strings.HasPrefix(got, prefix) {
			t.Fatalf("DescribeField(%d) = %q, ожидали префикс %q", id, got, prefix)
		}
	}
	if got := DescribeField(12); got != "field 12" {
		t.Fatalf("неожиданное описание %q", got)
	}
}
