package process

import (
	"image"

	"gocv.io/x/gocv"

	"spritemov/video/source"
)

// ClipRegions intersects a sprite placed at offset with the canvas. dst is the
// covered canvas area and src the matching sprite area; ok is false when the
// sprite lies entirely off-canvas.
func ClipRegions(canvas, sprite, offset image.Point) (dst, src image.Rectangle, ok bool) {
	placed := image.Rectangle{Min: offset, Max: offset.Add(sprite)}
	dst = placed.Intersect(image.Rectangle{Max: canvas})
	if dst.Empty() {
		return image.Rectangle{}, image.Rectangle{}, false
	}
	return dst, dst.Sub(offset), true
}

// Composite renders one frame: a new transparent canvas with sprite copied
// in at offset. Pixels are copied as-is, without blending, and anything
// outside the canvas is clipped. The caller owns the returned Mat.
func Composite(sprite *source.Sprite, canvas image.Point, offset image.Point) gocv.Mat {
	m := source.NewCanvas(canvas)
	blit(&m, sprite, offset)
	return m
}

// CompositeInto renders into an existing canvas, which is cleared first so
// nothing from a previous frame survives.
func CompositeInto(m *gocv.Mat, sprite *source.Sprite, offset image.Point) {
	m.SetTo(gocv.NewScalar(0, 0, 0, 0))
	blit(m, sprite, offset)
}

func blit(m *gocv.Mat, sprite *source.Sprite, offset image.Point) {
	canvas := image.Point{X: m.Cols(), Y: m.Rows()}
	dst, src, ok := ClipRegions(canvas, sprite.Size(), offset)
	if !ok {
		return
	}
	from := sprite.Mat.Region(src)
	defer from.Close()
	to := m.Region(dst)
	defer to.Close()
	from.CopyTo(&to)
}
