package sink

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEncoderUnavailable means the encoder binary could not be found or
	// started. Nothing was spawned.
	ErrEncoderUnavailable = errors.New("encoder unavailable")

	// ErrHardwareEncoderUnavailable means a frame write failed and the
	// encoder's diagnostics point at the hardware codec.
	ErrHardwareEncoderUnavailable = errors.New("hardware encoder unavailable")

	// ErrEncoderPipeBroken is any other failed frame write.
	ErrEncoderPipeBroken = errors.New("encoder pipe broken")

	// ErrEncoderExitFailure matches every *ExitError.
	ErrEncoderExitFailure = errors.New("encoder exited with failure")
)

// ExitError reports a non-zero encoder exit together with what it printed on
// stderr.
type ExitError struct {
	Code        int
	Diagnostics string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("encoder exited with code %d: %s", e.Code, lastLine(e.Diagnostics))
}

func (e *ExitError) Is(target error) bool {
	return target == ErrEncoderExitFailure
}

// PipeError is returned when writing a frame fails. Kind is
// ErrHardwareEncoderUnavailable or ErrEncoderPipeBroken.
type PipeError struct {
	Kind        error
	Frame       int
	Err         error
	Diagnostics string
}

func (e *PipeError) Error() string {
	msg := fmt.Sprintf("%v: writing frame %d: %v", e.Kind, e.Frame, e.Err)
	if d := lastLine(e.Diagnostics); d != "" {
		msg += ": " + d
	}
	return msg
}

func (e *PipeError) Is(target error) bool {
	return target == e.Kind
}

func (e *PipeError) Unwrap() error {
	return e.Err
}

// Diagnostics returns the encoder stderr captured with err, if any.
func Diagnostics(err error) string {
	var pe *PipeError
	if errors.As(err, &pe) {
		return pe.Diagnostics
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Diagnostics
	}
	return ""
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
