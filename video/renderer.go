package video

import (
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/pillash/mp4util"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"spritemov/metrics"
	"spritemov/util"
	"spritemov/video/process"
	"spritemov/video/sink"
	"spritemov/video/source"
)

// progressEvery is how often, in frames, progress is posted.
const progressEvery = 10

type RendererOptions struct {
	// FFmpegPath overrides ffmpeg discovery; see util.LocateFFmpeg.
	FFmpegPath string
	// Bitrate for the hardware profile.
	Bitrate string
	// PoolCanvases recycles canvases instead of allocating one per frame.
	PoolCanvases bool

	// MaxConcurrent bounds how many started jobs render at once. Zero means
	// unbounded. Waiting jobs stay Idle.
	MaxConcurrent int

	// Previews, if set, receives every PreviewEvery-th frame of each job on
	// a stream named after the job ID.
	Previews     *sink.MJPEGServer
	PreviewEvery int

	Metrics *metrics.Metrics
}

// Renderer turns requests into videos. Each job renders on its own goroutine,
// strictly in frame order, and runs to completion or failure; there is no
// cancellation and no retry.
type Renderer struct {
	mu   sync.Mutex
	opts RendererOptions
	sem  chan struct{}
}

func NewRenderer(o RendererOptions) *Renderer {
	r := &Renderer{opts: o}
	if o.MaxConcurrent > 0 {
		r.sem = make(chan struct{}, o.MaxConcurrent)
	}
	return r
}

// Reconfigure replaces the options used by jobs started from now on.
// MaxConcurrent is fixed at construction.
func (r *Renderer) Reconfigure(o RendererOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.MaxConcurrent = r.opts.MaxConcurrent
	r.opts = o
}

func (r *Renderer) options() RendererOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts
}

// Start begins rendering req in the background. Progress and the result are
// delivered through the returned job's Events.
func (r *Renderer) Start(req Request) *Job {
	j := newJob(req)
	go r.run(j, r.options())
	return j
}

// Render runs req on the calling goroutine and returns its result.
func (r *Renderer) Render(req Request) Result {
	j := newJob(req)
	r.run(j, r.options())
	return j.Wait()
}

func (r *Renderer) run(j *Job, o RendererOptions) {
	if r.sem != nil {
		r.sem <- struct{}{}
		defer func() { <-r.sem }()
	}

	jlog := log.WithField("job", j.ID)
	jlog.Infof("Render started: %s -> %s (%s, %d fps, %v)", j.Request.SourcePath, j.Request.OutputPath, j.Request.Resolution, j.Request.FPS, j.Request.Profile())
	o.Metrics.Started()

	start := time.Now()
	res := render(j, o)
	res.Elapsed = time.Since(start)

	outcome := "succeeded"
	if !res.Succeeded() {
		outcome = "failed"
		jlog.Errorf("Render failed after %v: %v", res.Elapsed, res.Err)
	} else {
		jlog.Infof("Render finished in %v: %d frames to %s", res.Elapsed, res.Frames, res.Path)
	}
	o.Metrics.Finished(j.Request.Profile().String(), outcome, res.Elapsed.Seconds())

	j.finish(res)
}

func render(j *Job, o RendererOptions) Result {
	req := j.Request
	fail := func(err error) Result {
		return Result{Err: err}
	}

	j.setState(StateValidating)
	if err := req.Validate(); err != nil {
		return fail(err)
	}
	ffmpeg, err := util.LocateFFmpeg(o.FFmpegPath)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", sink.ErrEncoderUnavailable, err))
	}
	sprite, err := source.LoadSprite(req.SourcePath)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	defer sprite.Close()

	size, _ := req.Resolution.Size()
	offsets := process.PlanMotion(req.Motion(), size, sprite.Size())
	out := ForceContainer(req.OutputPath)

	// The lock file stays behind; unlinking it would let a later render lock
	// a fresh inode while another still holds the old one.
	lock := flock.New(LockPath(out))
	locked, err := lock.TryLock()
	if err != nil {
		return fail(fmt.Errorf("%w: cannot lock output %s: %v", ErrInvalidInput, out, err))
	}
	if !locked {
		return fail(fmt.Errorf("%w: %s is already being rendered", ErrInvalidInput, out))
	}
	defer lock.Unlock()

	j.setState(StateEncoding)
	enc, err := sink.NewFFmpegSink(sink.FFmpegOptions{
		Binary:  ffmpeg,
		Size:    size,
		FPS:     req.FPS,
		Profile: req.Profile(),
		Bitrate: o.Bitrate,
		Path:    out,
	})
	if err != nil {
		return fail(err)
	}
	abort := func(err error) Result {
		enc.Kill()
		// A partial container is never usable.
		if rmErr := os.Remove(out); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warnf("Failed to remove partial output %v: %v", out, rmErr)
		}
		return fail(err)
	}

	frames := &frameSink{enc: enc, every: o.PreviewEvery, total: len(offsets)}
	if o.Previews != nil && o.PreviewEvery > 0 {
		frames.preview = o.Previews.NewStream(sink.MJPEGID{Name: j.ID})
		defer frames.preview.Close()
	}

	var pool *source.CanvasPool
	if o.PoolCanvases {
		pool = source.NewCanvasPool(size)
		defer pool.Close()
	}

	total := len(offsets)
	for i, off := range offsets {
		canvas := composite(pool, sprite, size, off)
		o.Metrics.Composited()

		if i == 0 && req.ThumbPath != "" {
			if err := process.WriteThumb(req.ThumbPath, canvas); err != nil {
				log.Errorf("Failed to write poster %v: %v", req.ThumbPath, err)
			}
		}

		err := frames.Put(canvas)
		release(pool, canvas)
		if err != nil {
			return abort(err)
		}
		o.Metrics.Written()

		if i%progressEvery == 0 || i == total-1 {
			j.progress(encodingPercent(i, total))
		}
	}

	j.setState(StateFinalizing)
	if err := frames.Close(); err != nil {
		return abort(err)
	}

	res := Result{Path: out, Frames: total}
	if d, err := mp4util.Duration(out); err == nil {
		res.DurationSec = d
	} else {
		log.Debugf("Could not read duration of %v: %v", out, err)
	}
	return res
}

// encodingPercent maps frame i of total into [0, 99]. 100 is reserved for a
// finished container.
func encodingPercent(i, total int) float64 {
	return float64(i+1) / float64(total) * 99
}

func composite(pool *source.CanvasPool, sprite *source.Sprite, size, off image.Point) gocv.Mat {
	if pool == nil {
		return process.Composite(sprite, size, off)
	}
	m := pool.Get()
	process.CompositeInto(&m, sprite, off)
	return m
}

func release(pool *source.CanvasPool, m gocv.Mat) {
	if pool == nil {
		m.Close()
		return
	}
	pool.Put(m)
}
