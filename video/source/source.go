package source

import (
	"errors"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// ErrUnreadable is returned when a sprite file cannot be decoded.
var ErrUnreadable = errors.New("unreadable source image")

// Sprite is the source image of a render: an 8-bit BGRA Mat that is loaded
// once and only read afterwards. The compositor references it directly for
// every frame.
type Sprite struct {
	Mat  gocv.Mat
	Path string

	closed bool
}

// Size returns the sprite dimensions as (cols, rows).
func (s *Sprite) Size() image.Point {
	return image.Point{X: s.Mat.Cols(), Y: s.Mat.Rows()}
}

func (s *Sprite) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.Mat.Close()
}

// LoadSprite decodes path keeping any alpha channel and normalizes the result
// to 4-channel 8-bit BGRA. Grayscale and opaque images gain a fully opaque
// alpha channel; 16-bit images are scaled down to 8 bits.
func LoadSprite(path string) (*Sprite, error) {
	// Read the bytes ourselves so paths OpenCV cannot open directly still work.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	m, err := gocv.IMDecode(b, gocv.IMReadUnchanged)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	if m.Empty() {
		m.Close()
		return nil, fmt.Errorf("%w: %s: no image data", ErrUnreadable, path)
	}

	bgra, err := normalize(m)
	m.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	return &Sprite{Mat: bgra, Path: path}, nil
}

// NewSprite wraps an already decoded image, normalizing it the same way as
// LoadSprite. The input Mat is not retained.
func NewSprite(m gocv.Mat) (*Sprite, error) {
	bgra, err := normalize(m)
	if err != nil {
		return nil, err
	}
	return &Sprite{Mat: bgra}, nil
}

func normalize(m gocv.Mat) (gocv.Mat, error) {
	out := gocv.NewMat()
	switch m.Channels() {
	case 1:
		gocv.CvtColor(m, &out, gocv.ColorGrayToBGRA)
	case 3:
		gocv.CvtColor(m, &out, gocv.ColorBGRToBGRA)
	case 4:
		m.CopyTo(&out)
	default:
		out.Close()
		return gocv.Mat{}, fmt.Errorf("unsupported channel count %d", m.Channels())
	}

	switch out.Type() {
	case gocv.MatTypeCV8UC4:
		return out, nil
	case gocv.MatTypeCV16UC4:
		scaled := gocv.NewMat()
		out.ConvertToWithParams(&scaled, gocv.MatTypeCV8UC4, 1.0/257, 0)
		out.Close()
		return scaled, nil
	default:
		out.Close()
		return gocv.Mat{}, fmt.Errorf("unsupported pixel type %v", out.Type())
	}
}
