// Package thumb scales image blobs to the fixed thumbnail widths.
package thumb

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// Widths are the fixed target widths generated for every image upload.
var Widths = []int{500, 250, 100}

// ValidWidth reports whether w is one of the generated widths.
func ValidWidth(w int) bool {
	for _, width := range Widths {
		if w == width {
			return true
		}
	}
	return false
}

// Generate decodes src, scales it to the target width preserving aspect
// ratio, and re-encodes it in the source format.
func Generate(src []byte, width int) ([]byte, error) {
	format, err := imaging.FormatFromExtension(sniffExtension(src))
	if err != nil {
		format = imaging.JPEG
	}
	img, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	resized := imaging.Resize(img, width, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// sniffExtension maps the blob's magic bytes to an extension imaging
// understands. Unknown content falls back to JPEG encoding.
func sniffExtension(data []byte) string {
	switch {
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}):
		return ".png"
	case len(data) >= 3 && bytes.Equal(data[:3], []byte{0xff, 0xd8, 0xff}):
		return ".jpg"
	case len(data) >= 6 && (bytes.Equal(data[:6], []byte("GIF87a")) || bytes.Equal(data[:6], []byte("GIF89a"))):
		return ".gif"
	case len(data) >= 2 && bytes.Equal(data[:2], []byte("BM")):
		return ".bmp"
	}
	return ".jpg"
}
