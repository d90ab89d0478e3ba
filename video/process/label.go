package process

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	colorLabel   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorLabelBG = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

const labelPad = 2

// DrawLabel writes text on an opaque box in the top-left corner of img. It is
// meant for preview copies; encoded frames must stay untouched.
func DrawLabel(img *gocv.Mat, text string) {
	font := gocv.FontHersheySimplex
	scale := 0.5
	thickness := 1

	sz := gocv.GetTextSize(text, font, scale, thickness)
	box := image.Rect(0, 0, sz.X+labelPad*2, sz.Y+labelPad*2)

	gocv.Rectangle(img, box, colorLabelBG, -1)
	gocv.PutText(img, text, image.Point{X: labelPad, Y: sz.Y + labelPad}, font, scale, colorLabel, thickness)
}
