package sink

import (
	"gocv.io/x/gocv"
)

// Sink defines a destination for an ordered stream of rendered frames.
type Sink interface {
	// Put consumes one frame. The caller keeps ownership of the Mat and may
	// reuse or close it as soon as Put returns.
	Put(frame gocv.Mat) error

	// Close finalizes the Sink. For an encoder this is where the output file
	// becomes valid.
	Close() error
}

// Put writes the frame's raw bytes to the encoder.
func (f *FFmpegSink) Put(frame gocv.Mat) error {
	return f.WriteFrame(frame.ToBytes())
}

// Close is Finish.
func (f *FFmpegSink) Close() error {
	return f.Finish()
}
