package sink

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// Container is the extension of every rendered file.
	Container = ".mov"

	// HardwareCodec names the NVENC encoder. Its appearance in ffmpeg's
	// diagnostics after a failed write means the GPU path is unusable.
	HardwareCodec = "hevc_nvenc"

	DefaultBitrate = "20M"

	// maxDiagnostics bounds how much ffmpeg stderr is retained.
	maxDiagnostics = 64 << 10

	waitDelay = 5 * time.Second
)

// Profile selects one of the two supported encoder configurations.
type Profile int

const (
	// ProfileSoftware encodes ProRes 4444 with 10-bit alpha on the CPU.
	ProfileSoftware Profile = iota
	// ProfileHardware encodes HEVC with alpha on an NVIDIA GPU.
	ProfileHardware
)

func (p Profile) String() string {
	switch p {
	case ProfileSoftware:
		return "software"
	case ProfileHardware:
		return "hardware"
	}
	return fmt.Sprintf("Profile(%d)", int(p))
}

type FFmpegOptions struct {
	// Binary is the ffmpeg executable, either a path or a name looked up in
	// $PATH.
	Binary  string
	Size    image.Point
	FPS     int
	Profile Profile
	// Bitrate applies to ProfileHardware only. Defaults to DefaultBitrate.
	Bitrate string
	// Path is the output file. It is passed through unchanged; callers are
	// expected to have applied the Container extension.
	Path string
}

// FrameSize is the number of bytes in one raw BGRA frame.
func (o FFmpegOptions) FrameSize() int {
	return o.Size.X * o.Size.Y * 4
}

// Args returns the ffmpeg arguments, excluding the binary.
func (o FFmpegOptions) Args() []string {
	args := []string{
		"-hide_banner",
		// Only errors on stderr, so the codec name shows up there when the
		// codec itself fails rather than in the stream mapping summary.
		"-loglevel", "error",
		"-y",
		// Raw BGRA frames from stdin.
		"-f", "rawvideo",
		"-vcodec", "rawvideo",
		"-s", fmt.Sprintf("%dx%d", o.Size.X, o.Size.Y),
		"-pix_fmt", "bgra",
		"-r", fmt.Sprintf("%d", o.FPS),
		"-i", "-",
	}
	switch o.Profile {
	case ProfileHardware:
		bitrate := o.Bitrate
		if bitrate == "" {
			bitrate = DefaultBitrate
		}
		args = append(args,
			"-c:v", HardwareCodec,
			"-pix_fmt", "yuva444p",
			"-preset", "p7",
			"-tune", "hq",
			"-rc", "vbr",
			"-b:v", bitrate,
		)
	default:
		args = append(args,
			// ProRes 4444.
			"-c:v", "prores_ks",
			"-profile:v", "4",
			"-pix_fmt", "yuva444p10le",
			"-vendor", "apl0",
		)
	}
	return append(args, o.Path)
}

// FFmpegSink owns one ffmpeg process fed with raw frames on stdin. It is not
// safe for concurrent use; a render drives it from a single goroutine.
//
// stderr is copied into a bounded buffer for the whole life of the process,
// so ffmpeg can never block on a full diagnostics pipe while we block writing
// frames or waiting for it to exit.
type FFmpegSink struct {
	opts   FFmpegOptions
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *tailBuffer
	frames int

	waited  bool
	waitErr error
}

// NewFFmpegSink starts ffmpeg. If the binary cannot be found it fails with
// ErrEncoderUnavailable before spawning anything.
func NewFFmpegSink(opts FFmpegOptions) (*FFmpegSink, error) {
	bin, err := exec.LookPath(opts.Binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoderUnavailable, err)
	}

	f := &FFmpegSink{
		opts:   opts,
		stderr: newTailBuffer(maxDiagnostics),
	}
	f.cmd = exec.Command(bin, opts.Args()...)
	f.cmd.Stderr = f.stderr
	// Bounds the stderr drain if something inherited the pipe and outlives
	// ffmpeg.
	f.cmd.WaitDelay = waitDelay

	f.stdin, err = f.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin pipe: %v", ErrEncoderUnavailable, err)
	}
	if err := f.cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoderUnavailable, err)
	}
	log.WithFields(log.Fields{
		"pid":     f.cmd.Process.Pid,
		"profile": opts.Profile,
		"size":    fmt.Sprintf("%dx%d", opts.Size.X, opts.Size.Y),
		"fps":     opts.FPS,
	}).Infof("Started encoder for %v", opts.Path)
	return f, nil
}

func (f *FFmpegSink) Options() FFmpegOptions {
	return f.opts
}

// Frames returns how many frames were written successfully.
func (f *FFmpegSink) Frames() int {
	return f.frames
}

// WriteFrame sends one raw BGRA frame. It may block while ffmpeg catches up.
// On failure the process is reaped and its diagnostics decide the error:
// ErrHardwareEncoderUnavailable if they name the hardware codec, otherwise
// ErrEncoderPipeBroken. The sink is unusable after an error.
func (f *FFmpegSink) WriteFrame(b []byte) error {
	if f.waited {
		return &PipeError{Kind: ErrEncoderPipeBroken, Frame: f.frames, Err: errors.New("encoder already finished")}
	}
	if want := f.opts.FrameSize(); len(b) != want {
		return fmt.Errorf("frame %d is %d bytes, expected %d", f.frames, len(b), want)
	}
	if _, err := f.stdin.Write(b); err != nil {
		f.wait()
		diag := f.stderr.String()
		kind := ErrEncoderPipeBroken
		if strings.Contains(diag, HardwareCodec) {
			kind = ErrHardwareEncoderUnavailable
		}
		return &PipeError{Kind: kind, Frame: f.frames, Err: err, Diagnostics: diag}
	}
	f.frames++
	return nil
}

// Finish closes stdin so ffmpeg flushes and writes the container, then waits
// for it to exit. A non-zero exit yields an *ExitError with the captured
// diagnostics.
func (f *FFmpegSink) Finish() error {
	err := f.wait()
	if err == nil {
		log.Infof("Encoder finished %v (%d frames)", f.opts.Path, f.frames)
		return nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return &ExitError{Code: ee.ExitCode(), Diagnostics: f.stderr.String()}
	}
	return fmt.Errorf("%w: %v", ErrEncoderExitFailure, err)
}

// Kill terminates ffmpeg if it is still running and reaps it. Safe to call at
// any point, including after Finish.
func (f *FFmpegSink) Kill() {
	if f.waited {
		return
	}
	if err := f.cmd.Process.Kill(); err != nil {
		log.Warnf("Failed to kill encoder: %v", err)
	}
	f.wait()
}

// Diagnostics returns what ffmpeg has written to stderr so far.
func (f *FFmpegSink) Diagnostics() string {
	return f.stderr.String()
}

// wait closes stdin and reaps the process. cmd.Wait also waits for the stderr
// copy to reach EOF, so exit status and diagnostics are complete together.
func (f *FFmpegSink) wait() error {
	if f.waited {
		return f.waitErr
	}
	f.stdin.Close()
	f.waitErr = f.cmd.Wait()
	f.waited = true
	log.Debugf("Encoder exit status %v", f.waitErr)
	return f.waitErr
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu        sync.Mutex
	max       int
	buf       []byte
	truncated bool
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
		t.truncated = true
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.truncated {
		return "..." + string(t.buf)
	}
	return string(t.buf)
}
