package video

import (
	"fmt"

	"gocv.io/x/gocv"

	"spritemov/video/process"
	"spritemov/video/sink"
)

// frameSink feeds the encoder and mirrors a labelled copy of every Nth frame
// to the live preview. Only the encoder can fail a render.
type frameSink struct {
	enc     sink.Sink
	preview *sink.MJPEGStream
	every   int
	total   int

	n int
}

func (s *frameSink) Put(frame gocv.Mat) error {
	if s.preview != nil && s.every > 0 && s.n%s.every == 0 && s.preview.Watched() {
		p := frame.Clone()
		process.DrawLabel(&p, fmt.Sprintf("frame %d/%d", s.n+1, s.total))
		s.preview.Put(p)
		p.Close()
	}
	s.n++
	return s.enc.Put(frame)
}

func (s *frameSink) Close() error {
	return s.enc.Close()
}
