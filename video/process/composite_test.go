package process

import (
	"bytes"
	"image"
	"testing"

	"gocv.io/x/gocv"

	"spritemov/video/source"
)

// testSprite builds a w x h sprite where every byte is non-zero and encodes
// its position, so misplaced copies are detectable.
func testSprite(t *testing.T, w, h int) (*source.Sprite, []byte) {
	t.Helper()
	data := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			data[i+0] = byte(1 + x)
			data[i+1] = byte(1 + y)
			data[i+2] = byte(1 + x + y)
			data[i+3] = 255
		}
	}
	m, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, data)
	if err != nil {
		t.Fatalf("NewMatFromBytes: %v", err)
	}
	defer m.Close()
	s, err := source.NewSprite(m)
	if err != nil {
		t.Fatalf("NewSprite: %v", err)
	}
	t.Cleanup(s.Close)
	return s, data
}

func canvasBytes(t *testing.T, s *source.Sprite, canvas, offset image.Point) []byte {
	t.Helper()
	m := Composite(s, canvas, offset)
	defer m.Close()
	if m.Cols() != canvas.X || m.Rows() != canvas.Y || m.Type() != gocv.MatTypeCV8UC4 {
		t.Fatalf("unexpected canvas %dx%d type %v", m.Cols(), m.Rows(), m.Type())
	}
	return m.ToBytes()
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func TestClipRegions(t *testing.T) {
	canvas := image.Point{X: 10, Y: 8}
	sprite := image.Point{X: 4, Y: 4}

	dst, src, ok := ClipRegions(canvas, sprite, image.Point{X: -2, Y: 6})
	if !ok {
		t.Fatalf("expected overlap")
	}
	if dst != image.Rect(0, 6, 2, 8) {
		t.Fatalf("unexpected dst %v", dst)
	}
	if src != image.Rect(2, 0, 4, 2) {
		t.Fatalf("unexpected src %v", src)
	}

	for _, off := range []image.Point{{X: -4, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 8}, {X: 3, Y: -4}, {X: -100, Y: -100}} {
		if _, _, ok := ClipRegions(canvas, sprite, off); ok {
			t.Fatalf("offset %v should not overlap", off)
		}
	}
}

func TestCompositeInside(t *testing.T) {
	s, data := testSprite(t, 3, 2)
	canvas := image.Point{X: 8, Y: 5}
	off := image.Point{X: 4, Y: 2}
	got := canvasBytes(t, s, canvas, off)

	for y := 0; y < canvas.Y; y++ {
		for x := 0; x < canvas.X; x++ {
			px := got[(y*canvas.X+x)*4 : (y*canvas.X+x)*4+4]
			sx, sy := x-off.X, y-off.Y
			if sx >= 0 && sx < 3 && sy >= 0 && sy < 2 {
				want := data[(sy*3+sx)*4 : (sy*3+sx)*4+4]
				if !bytes.Equal(px, want) {
					t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, px, want)
				}
			} else if !allZero(px) {
				t.Fatalf("pixel (%d,%d) outside sprite = %v, want zero", x, y, px)
			}
		}
	}
}

func TestCompositeClipped(t *testing.T) {
	s, data := testSprite(t, 4, 4)
	canvas := image.Point{X: 6, Y: 6}
	got := canvasBytes(t, s, canvas, image.Point{X: -1, Y: 3})

	// Canvas (0,3) shows sprite (1,0).
	if !bytes.Equal(got[(3*6+0)*4:(3*6+0)*4+4], data[(0*4+1)*4:(0*4+1)*4+4]) {
		t.Fatalf("clipped copy misplaced")
	}
	// Canvas (3,5) maps to sprite column 4, past the right edge.
	if !allZero(got[(5*6+3)*4 : (5*6+3)*4+4]) {
		t.Fatalf("expected zero beyond sprite edge")
	}
	// Rows above the sprite stay transparent.
	if !allZero(got[:3*6*4]) {
		t.Fatalf("expected rows above sprite to be zero")
	}
}

func TestCompositeOffCanvasIsTransparent(t *testing.T) {
	s, _ := testSprite(t, 5, 5)
	canvas := image.Point{X: 16, Y: 9}
	for _, off := range []image.Point{{X: -5, Y: 0}, {X: 16, Y: 2}, {X: 0, Y: -50}, {X: 3, Y: 9}} {
		if got := canvasBytes(t, s, canvas, off); !allZero(got) {
			t.Fatalf("offset %v: expected fully transparent canvas", off)
		}
	}
}

func TestCompositeIdempotent(t *testing.T) {
	s, _ := testSprite(t, 7, 3)
	canvas := image.Point{X: 12, Y: 12}
	off := image.Point{X: 9, Y: -1}
	a := canvasBytes(t, s, canvas, off)
	b := canvasBytes(t, s, canvas, off)
	if !bytes.Equal(a, b) {
		t.Fatalf("identical inputs produced different canvases")
	}
}

func TestCompositeIntoClearsPreviousFrame(t *testing.T) {
	s, _ := testSprite(t, 2, 2)
	canvas := image.Point{X: 6, Y: 4}

	m := source.NewCanvas(canvas)
	defer m.Close()
	CompositeInto(&m, s, image.Point{X: 0, Y: 0})
	CompositeInto(&m, s, image.Point{X: 4, Y: 2})

	want := canvasBytes(t, s, canvas, image.Point{X: 4, Y: 2})
	if !bytes.Equal(m.ToBytes(), want) {
		t.Fatalf("stale pixels from previous frame survived")
	}
}
