// Package history records finished renders so the server and CLI can list,
// serve and delete them later.
package history

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"spritemov/video"
)

var ErrNotFound = errors.New("render record not found")

// RenderRecord is one render as persisted. JobID is the public identifier.
type RenderRecord struct {
	gorm.Model

	JobID string `gorm:"uniqueIndex;size:64"`

	SourcePath string
	Resolution string
	FPS        int
	Angle      float64
	Distance   float64
	Speed      float64
	Hardware   bool

	State   string
	Message string

	Frames      int
	ElapsedMs   int64
	DurationSec int

	SpritePath string
	VideoPath  string
	ThumbPath  string
	VThumbPath string
	HaveVThumb bool
}

func (r *RenderRecord) Succeeded() bool {
	return r.State == video.StateSucceeded.String()
}

// Store persists render records. Save inserts or updates by JobID. List
// returns the newest records first; limit <= 0 means all.
type Store interface {
	Save(r *RenderRecord) error
	Get(jobID string) (*RenderRecord, error)
	List(limit int) ([]*RenderRecord, error)
	Delete(jobID string) error
}

// NewRecord captures a job and its artifacts. It may be called before the job
// finishes and again afterwards.
func NewRecord(j *video.Job, files *video.Record) *RenderRecord {
	req := j.Request
	r := &RenderRecord{
		JobID:      j.ID,
		SourcePath: req.SourcePath,
		Resolution: string(req.Resolution),
		FPS:        req.FPS,
		Angle:      req.Angle,
		Distance:   req.Distance,
		Speed:      req.Speed,
		Hardware:   req.Hardware,
		State:      j.State().String(),
		VideoPath:  video.ForceContainer(req.OutputPath),
		ThumbPath:  req.ThumbPath,
	}
	r.CreatedAt = j.Created
	if files != nil {
		r.SpritePath = files.SpritePath
		r.VThumbPath = files.VThumbPath
	}
	if res, ok := j.Result(); ok {
		r.Message = res.Message()
		r.Frames = res.Frames
		r.ElapsedMs = res.Elapsed.Milliseconds()
		r.DurationSec = res.DurationSec
		if !res.Succeeded() {
			r.VideoPath = ""
		}
	}
	return r
}

// Elapsed is the wall time of the render.
func (r *RenderRecord) Elapsed() time.Duration {
	return time.Duration(r.ElapsedMs) * time.Millisecond
}
