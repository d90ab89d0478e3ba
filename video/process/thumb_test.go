package process

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"spritemov/video/source"
)

func TestFitWithin(t *testing.T) {
	cases := []struct {
		size, want image.Point
	}{
		{image.Point{X: 1920, Y: 1080}, image.Point{X: 320, Y: 180}},
		{image.Point{X: 3840, Y: 2160}, image.Point{X: 320, Y: 180}},
		{image.Point{X: 100, Y: 50}, image.Point{X: 100, Y: 50}},
		{image.Point{X: 1000, Y: 1000}, image.Point{X: 180, Y: 180}},
	}
	for _, c := range cases {
		if got := fitWithin(c.size, ThumbSize); got != c.want {
			t.Errorf("fitWithin(%v) = %v, want %v", c.size, got, c.want)
		}
	}
}

func TestWriteThumbKeepsAlpha(t *testing.T) {
	s, _ := testSprite(t, 40, 40)
	frame := Composite(s, image.Point{X: 640, Y: 360}, image.Point{X: 300, Y: 160})
	defer frame.Close()

	path := filepath.Join(t.TempDir(), "poster.png")
	if err := WriteThumb(path, frame); err != nil {
		t.Fatalf("WriteThumb: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read poster: %v", err)
	}
	poster, err := source.LoadSprite(path)
	if err != nil {
		t.Fatalf("decode poster (%d bytes): %v", len(b), err)
	}
	defer poster.Close()
	if poster.Size() != (image.Point{X: 320, Y: 180}) {
		t.Fatalf("unexpected poster size %v", poster.Size())
	}
	if px := poster.Mat.GetVecbAt(0, 0); px[3] != 0 {
		t.Fatalf("expected transparent corner, got %v", px)
	}
	if poster.Mat.Type() != gocv.MatTypeCV8UC4 {
		t.Fatalf("expected BGRA poster, got %v", poster.Mat.Type())
	}
}
