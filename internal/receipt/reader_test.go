package receipt

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"go.uber.org/zap"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), A: 255})
		}
	}
	return img
}

func TestReader_Pages_JPEGPassthrough(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(), nil); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	pages, err := NewReader(zap.NewNop()).Pages(data, "receipt.JPG")
	if err != nil {
		t.Fatalf("Pages() error = %v", err)
	}
	if len(pages) != 1 || !bytes.Equal(pages[0], data) {
		t.Error("JPEG upload should pass through unchanged")
	}
}

func TestReader_Pages_PNGReencoded(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatal(err)
	}

	pages, err := NewReader(zap.NewNop()).Pages(buf.Bytes(), "receipt.png")
	if err != nil {
		t.Fatalf("Pages() error = %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	if _, err := jpeg.Decode(bytes.NewReader(pages[0])); err != nil {
		t.Errorf("page is not valid JPEG: %v", err)
	}
}

func TestReader_Pages_UnsupportedType(t *testing.T) {
	_, err := NewReader(zap.NewNop()).Pages([]byte("plain text"), "receipt.txt")
	if err == nil {
		t.Fatal("Pages() = nil error for unsupported type")
	}
}

func TestReader_Pages_CorruptPNG(t *testing.T) {
	_, err := NewReader(zap.NewNop()).Pages([]byte("not a png"), "receipt.png")
	if err == nil {
		t.Fatal("Pages() = nil error for corrupt image")
	}
}
