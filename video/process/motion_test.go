package process

import (
	"image"
	"math"
	"testing"
)

var hd = image.Point{X: 1920, Y: 1080}

func TestFrameCount(t *testing.T) {
	cases := []struct {
		fps             int
		distance, speed float64
		want            int
	}{
		{60, 500, 100, 300},
		{120, 500, 100, 600},
		{60, 10, 100, 6},
		{60, 1, 1000, 60},   // rounds down to zero
		{60, 0, 100, 60},    // no travel
		{120, -50, 100, 120}, // negative distance
		{60, 333, 100, 199},
	}
	for _, c := range cases {
		if got := FrameCount(c.fps, c.distance, c.speed); got != c.want {
			t.Errorf("FrameCount(%d, %v, %v) = %d, want %d", c.fps, c.distance, c.speed, got, c.want)
		}
	}
}

func TestPlanMotionLengthMatchesFrameCount(t *testing.T) {
	sprite := image.Point{X: 64, Y: 64}
	for _, fps := range []int{60, 120} {
		for _, distance := range []float64{-10, 0, 1, 99.5, 500, 2500} {
			for _, speed := range []float64{0.5, 100, 333, 5000} {
				m := Motion{Angle: 37, Distance: distance, Speed: speed, FPS: fps}
				offsets := PlanMotion(m, hd, sprite)
				want := int(math.Floor(float64(fps) * distance / speed))
				if want <= 0 {
					want = fps
				}
				if len(offsets) != want {
					t.Fatalf("%+v: got %d offsets, want %d", m, len(offsets), want)
				}
				if offsets[0] != Centered(hd, sprite) {
					t.Fatalf("%+v: offset[0] = %v, want centered %v", m, offsets[0], Centered(hd, sprite))
				}
			}
		}
	}
}

func TestPlanMotionRightwardScenario(t *testing.T) {
	sprite := image.Point{X: 100, Y: 100}
	offsets := PlanMotion(Motion{Angle: 0, Distance: 500, Speed: 100, FPS: 60}, hd, sprite)

	if len(offsets) != 300 {
		t.Fatalf("expected 300 frames, got %d", len(offsets))
	}
	start := image.Point{X: 910, Y: 490}
	if offsets[0] != start {
		t.Fatalf("expected frame 0 at %v, got %v", start, offsets[0])
	}
	// 299 frames at 100/60 px each = 498.33px.
	last := offsets[299]
	if last.Y != start.Y {
		t.Fatalf("horizontal motion drifted vertically: %v", last)
	}
	if moved := last.X - start.X; moved < 497 || moved > 499 {
		t.Fatalf("expected ~497-499px travel, got %d", moved)
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i].X < offsets[i-1].X {
			t.Fatalf("motion not monotonic at frame %d", i)
		}
	}
}

func TestPlanMotionDownward(t *testing.T) {
	sprite := image.Point{X: 20, Y: 20}
	offsets := PlanMotion(Motion{Angle: 90, Distance: 120, Speed: 60, FPS: 60}, hd, sprite)
	start := Centered(hd, sprite)
	if len(offsets) != 120 {
		t.Fatalf("expected 120 frames, got %d", len(offsets))
	}
	if offsets[60] != (image.Point{X: start.X, Y: start.Y + 60}) {
		t.Fatalf("expected 60px down after one second, got %v from %v", offsets[60], start)
	}
}

func TestPlanMotionDeterministic(t *testing.T) {
	m := Motion{Angle: 213.7, Distance: 800, Speed: 250, FPS: 120}
	a := PlanMotion(m, hd, image.Point{X: 33, Y: 77})
	b := PlanMotion(m, hd, image.Point{X: 33, Y: 77})
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("frame %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}
