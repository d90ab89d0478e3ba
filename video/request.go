package video

import (
	"errors"
	"fmt"
	"image"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"spritemov/video/process"
	"spritemov/video/sink"
)

// ErrInvalidInput covers bad render parameters and unreadable source images.
var ErrInvalidInput = errors.New("invalid input")

// Resolution is an output resolution preset.
type Resolution string

const (
	Resolution1080p Resolution = "1080p"
	Resolution4K    Resolution = "4k"
)

var resolutions = map[Resolution]image.Point{
	Resolution1080p: {X: 1920, Y: 1080},
	Resolution4K:    {X: 3840, Y: 2160},
}

// Size returns the canvas dimensions of the preset.
func (r Resolution) Size() (image.Point, bool) {
	p, ok := resolutions[r]
	return p, ok
}

// ParseResolution accepts preset names case-insensitively, plus the common
// 2160p alias for 4k.
func ParseResolution(s string) (Resolution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1080p", "1080", "fhd":
		return Resolution1080p, nil
	case "4k", "2160p", "2160", "uhd":
		return Resolution4K, nil
	}
	return "", fmt.Errorf("%w: unknown resolution %q (expected 1080p or 4k)", ErrInvalidInput, s)
}

// FrameRates lists the supported output frame rates.
var FrameRates = []int{60, 120}

func validFrameRate(fps int) bool {
	for _, r := range FrameRates {
		if r == fps {
			return true
		}
	}
	return false
}

// Request carries everything a render needs. It is captured when the render
// is submitted and never modified afterwards.
type Request struct {
	// ID names the job. A random UUID is used if empty.
	ID string

	SourcePath string
	// OutputPath is forced to the .mov container.
	OutputPath string

	Resolution Resolution
	FPS        int

	Angle    float64
	Distance float64
	Speed    float64

	// Hardware selects the NVENC profile instead of ProRes.
	Hardware bool

	// ThumbPath, if set, receives a PNG poster of the first frame.
	ThumbPath string
}

func (r Request) Profile() sink.Profile {
	if r.Hardware {
		return sink.ProfileHardware
	}
	return sink.ProfileSoftware
}

func (r Request) Motion() process.Motion {
	return process.Motion{
		Angle:    r.Angle,
		Distance: r.Distance,
		Speed:    r.Speed,
		FPS:      r.FPS,
	}
}

// Validate checks everything that can be checked without touching the
// filesystem or the encoder.
func (r Request) Validate() error {
	if strings.TrimSpace(r.SourcePath) == "" {
		return fmt.Errorf("%w: missing source image", ErrInvalidInput)
	}
	if strings.TrimSpace(r.OutputPath) == "" {
		return fmt.Errorf("%w: missing output path", ErrInvalidInput)
	}
	if _, ok := r.Resolution.Size(); !ok {
		return fmt.Errorf("%w: unknown resolution %q", ErrInvalidInput, r.Resolution)
	}
	if !validFrameRate(r.FPS) {
		return fmt.Errorf("%w: unsupported frame rate %d", ErrInvalidInput, r.FPS)
	}
	for name, v := range map[string]float64{"angle": r.Angle, "distance": r.Distance, "speed": r.Speed} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidInput, name)
		}
	}
	if r.Speed <= 0 {
		return fmt.Errorf("%w: speed must be greater than zero, got %v", ErrInvalidInput, r.Speed)
	}
	return nil
}

// ForceContainer replaces any extension on path with .mov.
func ForceContainer(path string) string {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, sink.Container) {
		return path
	}
	return strings.TrimSuffix(path, ext) + sink.Container
}

// Params are raw, unvalidated render parameters as typed into a form.
type Params struct {
	Source     string
	Output     string
	Resolution string
	FPS        string
	Angle      string
	Distance   string
	Speed      string
	Hardware   string
}

// ParseParams converts form text into a validated Request. Every failure
// wraps ErrInvalidInput.
func ParseParams(p Params) (Request, error) {
	req := Request{
		SourcePath: strings.TrimSpace(p.Source),
		OutputPath: strings.TrimSpace(p.Output),
	}

	res := p.Resolution
	if strings.TrimSpace(res) == "" {
		res = string(Resolution1080p)
	}
	var err error
	if req.Resolution, err = ParseResolution(res); err != nil {
		return Request{}, err
	}

	fps := strings.TrimSpace(p.FPS)
	if fps == "" {
		req.FPS = FrameRates[0]
	} else if req.FPS, err = strconv.Atoi(fps); err != nil {
		return Request{}, fmt.Errorf("%w: frame rate %q is not a number", ErrInvalidInput, p.FPS)
	}

	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"angle", p.Angle, &req.Angle},
		{"distance", p.Distance, &req.Distance},
		{"speed", p.Speed, &req.Speed},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f.raw), 64)
		if err != nil {
			return Request{}, fmt.Errorf("%w: %s %q is not a number", ErrInvalidInput, f.name, f.raw)
		}
		*f.dst = v
	}

	switch strings.ToLower(strings.TrimSpace(p.Hardware)) {
	case "", "0", "false", "off", "no":
	case "1", "true", "on", "yes":
		req.Hardware = true
	default:
		return Request{}, fmt.Errorf("%w: hardware flag %q is not a boolean", ErrInvalidInput, p.Hardware)
	}

	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}
