package process

import (
	"image"
	"os"

	"gocv.io/x/gocv"
)

// ThumbSize bounds poster thumbnails.
var ThumbSize = image.Point{X: 320, Y: 180}

// WriteThumb writes a PNG poster of frame, scaled to fit ThumbSize. PNG keeps
// the alpha channel so the poster shows the same transparency as the video.
func WriteThumb(path string, frame gocv.Mat) error {
	tmat := gocv.NewMat()
	defer tmat.Close()
	gocv.Resize(frame, &tmat, fitWithin(image.Point{X: frame.Cols(), Y: frame.Rows()}, ThumbSize), 0, 0, gocv.InterpolationArea)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, tmat)
	if err != nil {
		return err
	}
	defer buf.Close()

	return os.WriteFile(path, buf.GetBytes(), 0644)
}

// fitWithin scales size down to fit bound, preserving aspect ratio.
func fitWithin(size, bound image.Point) image.Point {
	if size.X <= bound.X && size.Y <= bound.Y {
		return size
	}
	w := bound.X
	h := size.Y * bound.X / size.X
	if h > bound.Y {
		h = bound.Y
		w = size.X * bound.Y / size.Y
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.Point{X: w, Y: h}
}
