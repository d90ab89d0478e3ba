package process

import (
	"image"
	"math"
)

// Motion describes linear travel of a sprite across the canvas.
type Motion struct {
	// Angle in degrees. 0 moves right, 90 moves down.
	Angle float64
	// Distance to travel in pixels.
	Distance float64
	// Speed in pixels per second. Must be positive.
	Speed float64
	FPS   int
}

// FrameCount is the number of frames needed to cover the distance at the
// given speed. A non-positive result falls back to one second of frames.
func FrameCount(fps int, distance, speed float64) int {
	n := int(math.Floor(float64(fps) * distance / speed))
	if n <= 0 {
		return fps
	}
	return n
}

// Centered returns the offset that places sprite in the middle of canvas.
func Centered(canvas, sprite image.Point) image.Point {
	return image.Point{
		X: int(math.Round(float64(canvas.X-sprite.X) / 2)),
		Y: int(math.Round(float64(canvas.Y-sprite.Y) / 2)),
	}
}

// PlanMotion computes the top-left placement of sprite for every frame.
// Frame 0 is centered; each following frame advances by velocity/fps. The
// table is computed once, before any frame is rendered.
func PlanMotion(m Motion, canvas, sprite image.Point) []image.Point {
	n := FrameCount(m.FPS, m.Distance, m.Speed)

	rad := m.Angle * math.Pi / 180
	dx := m.Speed * math.Cos(rad) / float64(m.FPS)
	dy := m.Speed * math.Sin(rad) / float64(m.FPS)

	sx := float64(canvas.X-sprite.X) / 2
	sy := float64(canvas.Y-sprite.Y) / 2

	offsets := make([]image.Point, n)
	for i := range offsets {
		offsets[i] = image.Point{
			X: int(math.Round(sx + dx*float64(i))),
			Y: int(math.Round(sy + dy*float64(i))),
		}
	}
	return offsets
}
