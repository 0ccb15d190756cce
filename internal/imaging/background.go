// Package imaging обрабатывает сгенерированные изображения мира.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	// Провайдеры возвращают PNG, JPEG или WebP.
	_ "image/jpeg"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// WhiteThreshold: пиксель считается белым, если каждый из R, G, B не меньше порога.
const WhiteThreshold = 230

// RemoveWhiteBackground делает прозрачным белый фон, связный с краями изображения.
// Белые области, полностью окружённые небелыми пикселями, не трогаются.
func RemoveWhiteBackground(data []byte) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	ClearBorderWhite(img)
	return EncodePNG(img)
}

// Decode разбирает изображение и приводит его к NRGBA.
func Decode(data []byte) (*image.NRGBA, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}
	if nrgba, ok := src.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) {
		return nrgba, nil
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst, nil
}

// EncodePNG кодирует изображение в PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("imaging: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ClearBorderWhite выполняет заливку от краёв по 4-связности через явный стек
// и обнуляет альфу у всех достигнутых белых пикселей.
func ClearBorderWhite(img *image.NRGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return
	}
	visited := make([]bool, w*h)
	stack := make([]int, 0, 2*(w+h))

	push := func(x, y int) {
		idx := y*w + x
		if visited[idx] || !isWhite(img, x, y) {
			return
		}
		visited[idx] = true
		stack = append(stack, idx)
	}

	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := idx%w, idx/w
		img.Pix[img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)+3] = 0

		if x > 0 {
			push(x-1, y)
		}
		if x < w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < h-1 {
			push(x, y+1)
		}
	}
}

func isWhite(img *image.NRGBA, x, y int) bool {
	off := img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)
	p := img.Pix[off : off+3 : off+3]
	return p[0] >= WhiteThreshold && p[1] >= WhiteThreshold && p[2] >= WhiteThreshold
}
