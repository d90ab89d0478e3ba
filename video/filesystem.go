package video

import (
	"os"
	"path/filepath"
	"time"

	"spritemov/video/sink"
)

const (
	ExtVideo  = sink.Container
	ExtThumb  = "_thumb.png"
	ExtVThumb = "_preview.mp4"
	ExtSprite = "_sprite"
	ExtLock   = ".lock"

	// FileTimeLayout defines the format of filenames.
	// See https://golang.org/src/time/format.go.
	FileTimeLayout = "20060102-150405-Z0700"
)

// Record holds the artifact paths of one server-side render.
type Record struct {
	ID   string
	Time time.Time

	SpritePath string
	VideoPath  string
	ThumbPath  string
	VThumbPath string
}

// Paths lists every artifact the record may own.
func (r *Record) Paths() []string {
	return []string{r.SpritePath, r.VideoPath, LockPath(r.VideoPath), r.ThumbPath, r.VThumbPath}
}

// LockPath is the advisory lock guarding renders into output.
func LockPath(output string) string {
	if output == "" {
		return ""
	}
	return output + ExtLock
}

// Filesystem lays out render artifacts under BasePath.
type Filesystem struct {
	BasePath string
}

func NewFilesystem(path string) (*Filesystem, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, err
	}
	return &Filesystem{
		BasePath: path,
	}, nil
}

// NewRecord allocates paths for a render identified by id. spriteExt is the
// extension of the uploaded source image, including the dot.
func (f *Filesystem) NewRecord(id string, t time.Time, spriteExt string) *Record {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	base := filepath.Join(f.BasePath, t.Format(FileTimeLayout)+"-"+short)
	return &Record{
		ID:         id,
		Time:       t,
		SpritePath: base + ExtSprite + spriteExt,
		VideoPath:  base + ExtVideo,
		ThumbPath:  base + ExtThumb,
		VThumbPath: base + ExtVThumb,
	}
}

// Remove deletes whichever of the record's files exist.
func (f *Filesystem) Remove(r *Record) error {
	var first error
	for _, p := range r.Paths() {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && first == nil {
			first = err
		}
	}
	return first
}

// Exists reports whether path is a regular file.
func Exists(path string) bool {
	if path == "" {
		return false
	}
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
