package imaging

import (
	"image"
	"image/color"
	"testing"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func fill(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func roundTrip(t *testing.T, img *image.NRGBA) *image.NRGBA {
	t.Helper()
	raw, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := RemoveWhiteBackground(raw)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	decoded, err := Decode(out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return decoded
}

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	nearW = color.NRGBA{R: 231, G: 240, B: 230, A: 255}
	red   = color.NRGBA{R: 200, G: 20, B: 20, A: 255}
)

func TestRemoveWhiteBackgroundAllWhite(t *testing.T) {
	out := roundTrip(t, solid(16, 12, white))
	for y := 0; y < 12; y++ {
		for x := 0; x < 16; x++ {
			if a := out.NRGBAAt(x, y).A; a != 0 {
				t.Fatalf("пиксель (%d,%d) должен быть прозрачным, альфа %d", x, y, a)
			}
		}
	}
}

func TestRemoveWhiteBackgroundKeepsInteriorBlock(t *testing.T) {
	img := solid(20, 20, nearW)
	block := image.Rect(5, 5, 15, 15)
	fill(img, block, red)

	out := roundTrip(t, img)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			a := out.NRGBAAt(x, y).A
			inside := image.Pt(x, y).In(block)
			if inside && a != 255 {
				t.Fatalf("пиксель блока (%d,%d) должен остаться непрозрачным, альфа %d", x, y, a)
			}
			if !inside && a != 0 {
				t.Fatalf("фон (%d,%d) должен стать прозрачным, альфа %d", x, y, a)
			}
		}
	}
}

func TestRemoveWhiteBackgroundKeepsEnclosedWhite(t *testing.T) {
	img := solid(21, 21, white)
	fill(img, image.Rect(4, 4, 17, 17), red)
	hole := image.Rect(8, 8, 13, 13)
	fill(img, hole, white)

	out := roundTrip(t, img)
	for y := hole.Min.Y; y < hole.Max.Y; y++ {
		for x := hole.Min.X; x < hole.Max.X; x++ {
			if a := out.NRGBAAt(x, y).A; a != 255 {
				t.Fatalf("окружённый белый пиксель (%d,%d) не должен меняться, альфа %d", x, y, a)
			}
		}
	}
	if a := out.NRGBAAt(0, 0).A; a != 0 {
		t.Fatalf("угол должен стать прозрачным, альфа %d", a)
	}
}

func TestRemoveWhiteBackgroundThreshold(t *testing.T) {
	img := solid(3, 3, color.NRGBA{R: 229, G: 255, B: 255, A: 255})
	out := roundTrip(t, img)
	if a := out.NRGBAAt(1, 1).A; a != 255 {
		t.Fatalf("пиксель с R=229 не белый, альфа должна остаться 255, получили %d", a)
	}
}

func TestRemoveWhiteBackgroundLargeImage(t *testing.T) {
	out := roundTrip(t, solid(1024, 1024, white))
	if a := out.NRGBAAt(512, 512).A; a != 0 {
		t.Fatalf("центр большого белого изображения должен быть прозрачным")
	}
}

func TestRemoveWhiteBackgroundRejectsGarbage(t *testing.T) {
	if _, err := RemoveWhiteBackground([]byte("not an image")); err == nil {
		t.Fatalf("ожидали ошибку декодирования")
	}
}
