package video

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spritemov/util"
	"spritemov/video/sink"
)

// State is the position of a job in the render state machine:
// Idle → Validating → Encoding → Finalizing → Succeeded | Failed.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateEncoding
	StateFinalizing
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateEncoding:
		return "encoding"
	case StateFinalizing:
		return "finalizing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

type EventType int

const (
	EventProgress EventType = iota
	EventResult
)

// Event is posted by the render goroutine for the foreground. Progress events
// carry Percent; the single EventResult carries Result.
type Event struct {
	Type    EventType
	JobID   string
	Percent float64
	Result  *Result
}

// Result is the terminal outcome of a render.
type Result struct {
	// Path of the finished video. Empty on failure.
	Path string
	Err  error

	Frames  int
	Elapsed time.Duration
	// DurationSec is read back from the written container; zero if unknown.
	DurationSec int
}

func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Message renders the result as one human-readable notification.
func (r Result) Message() string {
	if r.Err == nil {
		return fmt.Sprintf("Video rendered to %s", r.Path)
	}
	var ee *sink.ExitError
	switch {
	case errors.Is(r.Err, sink.ErrEncoderUnavailable):
		return fmt.Sprintf("FFmpeg is required to render video. Install ffmpeg into $PATH or set FFMPEG.\n\n%v", r.Err)
	case errors.Is(r.Err, sink.ErrHardwareEncoderUnavailable):
		return fmt.Sprintf("GPU encoding failed: no supported NVIDIA GPU was detected. Render again with the software profile.\n\nDetails: %s", details(r.Err))
	case errors.As(r.Err, &ee):
		msg := fmt.Sprintf("FFmpeg exited abnormally (code %d):\n%s", ee.Code, strings.TrimSpace(ee.Diagnostics))
		if strings.Contains(ee.Diagnostics, sink.HardwareCodec) {
			msg += "\n\nThe NVIDIA encoder failed. Render again with the software profile."
		}
		return msg
	case errors.Is(r.Err, sink.ErrEncoderPipeBroken):
		return fmt.Sprintf("FFmpeg write error: %s", details(r.Err))
	case errors.Is(r.Err, ErrInvalidInput):
		return fmt.Sprintf("Invalid render parameters: %v", r.Err)
	}
	return fmt.Sprintf("Render failed: %v", r.Err)
}

func details(err error) string {
	if d := strings.TrimSpace(sink.Diagnostics(err)); d != "" {
		return d
	}
	return err.Error()
}

// eventBuffer sizes the job's event channel. The last two slots are kept for
// the final 100% progress and the result, so those sends never block.
const eventBuffer = 64

// Job is one render invocation. The render goroutine is the only producer of
// its events; the foreground only reads.
type Job struct {
	ID      string
	Request Request
	Created time.Time

	events chan Event
	done   *util.Event

	mu      sync.Mutex
	state   State
	percent float64
	result  Result
}

func newJob(req Request) *Job {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &Job{
		ID:      id,
		Request: req,
		Created: time.Now(),
		events:  make(chan Event, eventBuffer),
		done:    util.NewEvent(),
	}
}

// Events streams progress followed by exactly one result, then closes.
// Intermediate progress is dropped if the reader falls behind.
func (j *Job) Events() <-chan Event {
	return j.events
}

// Wait blocks until the job is terminal and returns its result.
func (j *Job) Wait() Result {
	j.done.Wait()
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

func (j *Job) Done() bool {
	return j.done.HasBeenNotified()
}

func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Percent is the most recent progress value.
func (j *Job) Percent() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.percent
}

// Result returns the terminal result, or false if the job is still running.
func (j *Job) Result() (Result, bool) {
	if !j.Done() {
		return Result{}, false
	}
	return j.Wait(), true
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = s
}

// progress posts pct if it does not go backwards. Values below 100 are
// dropped rather than block when the reader lags.
func (j *Job) progress(pct float64) {
	j.mu.Lock()
	if pct < j.percent {
		j.mu.Unlock()
		return
	}
	j.percent = pct
	j.mu.Unlock()

	e := Event{Type: EventProgress, JobID: j.ID, Percent: pct}
	if pct >= 100 {
		j.events <- e
		return
	}
	if len(j.events) < cap(j.events)-2 {
		j.events <- e
	}
}

// finish publishes the terminal result exactly once.
func (j *Job) finish(r Result) {
	if r.Succeeded() {
		j.setState(StateSucceeded)
		j.progress(100)
	} else {
		j.setState(StateFailed)
	}
	j.mu.Lock()
	j.result = r
	j.mu.Unlock()
	// Readers of the result event may call Result.
	j.done.Notify()

	j.events <- Event{Type: EventResult, JobID: j.ID, Result: &r}
	close(j.events)
}
