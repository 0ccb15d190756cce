package domain

import "fmt"

// FieldCount — число фиксированных полей мира.
const FieldCount = 9

// FieldCell задаёт положение поля в ромбовидной раскладке.
type FieldCell struct {
	Row int
	Col int
}

// FieldLayout раскладывает поля 0..8 ромбом: ряды из 1, 2, 3, 2 и 1 клетки сверху вниз.
var FieldLayout = [FieldCount]FieldCell{
	{Row: 0, Col: 0},
	{Row: 1, Col: 0}, {Row: 1, Col: 1},
	{Row: 2, Col: 0}, {Row: 2, Col: 1}, {Row: 2, Col: 2},
	{Row: 3, Col: 0}, {Row: 3, Col: 1},
	{Row: 4, Col: 0},
}

var rowNames = [...]string{"top", "upper", "middle", "lower", "bottom"}

// ValidField проверяет, что id поля в диапазоне [0, 8].
func ValidField(id int) bool {
	return id >= 0 && id < FieldCount
}

// DescribeField возвращает словесное описание положения поля для промпта.
func DescribeField(id int) string {
	if !ValidField(id) {
		return fmt.Sprintf("field %d", id)
	}
	cell := FieldLayout[id]
	width := rowWidth(cell.Row)
	var side string
	switch {
	case width == 1:
		side = "center"
	case cell.Col == 0:
		side = "left"
	case cell.Col == width-1:
		side = "right"
	default:
		side = "center"
	}
	return fmt.Sprintf("the %s %s tile of the diamond (field %d)", rowNames[cell.Row], side, id)
}

func rowWidth(row int) int {
	n := 0
	for _, c := range FieldLayout {
		if c.Row == row {
			n++
		}
	}
	return n
}
