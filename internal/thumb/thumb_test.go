package thumb

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestValidWidth(t *testing.T) {
	for _, w := range Widths {
		if !ValidWidth(w) {
			t.Errorf("width %d must be valid", w)
		}
	}
	if ValidWidth(300) {
		t.Error("width 300 must be invalid")
	}
}

func TestGenerateScalesToWidth(t *testing.T) {
	src := pngBytes(t, 800, 600)

	for _, width := range Widths {
		scaled, err := Generate(src, width)
		if err != nil {
			t.Fatalf("generate %d: %v", width, err)
		}
		img, err := imaging.Decode(bytes.NewReader(scaled))
		if err != nil {
			t.Fatalf("decode %d: %v", width, err)
		}
		bounds := img.Bounds()
		if bounds.Dx() != width {
			t.Errorf("width %d: got %d", width, bounds.Dx())
		}
		// Aspect ratio preserved: 800x600 scales to width*3/4.
		if want := width * 600 / 800; bounds.Dy() != want {
			t.Errorf("width %d: height %d, want %d", width, bounds.Dy(), want)
		}
	}
}

func TestGeneratePreservesPNG(t *testing.T) {
	scaled, err := Generate(pngBytes(t, 200, 200), 100)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(scaled)); err != nil {
		t.Fatalf("thumbnail of a PNG must decode as PNG: %v", err)
	}
}

func TestGenerateRejectsGarbage(t *testing.T) {
	if _, err := Generate([]byte("definitely not an image"), 100); err == nil {
		t.Fatal("expected an error for non-image input")
	}
}
