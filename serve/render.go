package serve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"spritemov/video"
)

const maxUploadSize = 64 << 20

// RenderServer accepts render submissions. The sprite is either uploaded as
// the "sprite" file or named by the "source" path on the server.
type RenderServer struct {
	FS   *video.Filesystem
	Jobs *Jobs
}

type RenderResponse struct {
	ID string `json:"id"`
}

func (s *RenderServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	source := strings.TrimSpace(r.FormValue("source"))
	ext := filepath.Ext(source)

	file, header, err := r.FormFile("sprite")
	switch {
	case err == nil:
		defer file.Close()
		ext = strings.ToLower(filepath.Ext(header.Filename))
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		file = nil
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec := s.FS.NewRecord(id, time.Now(), ext)
	if file != nil {
		if err := saveUpload(file, rec.SpritePath); err != nil {
			log.Errorf("Failed to store upload for %v: %v", id, err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		source = rec.SpritePath
	} else {
		// The caller owns a server-side source; never delete it.
		rec.SpritePath = ""
	}

	req, err := video.ParseParams(video.Params{
		Source:     source,
		Output:     rec.VideoPath,
		Resolution: r.FormValue("resolution"),
		FPS:        r.FormValue("fps"),
		Angle:      r.FormValue("angle"),
		Distance:   r.FormValue("distance"),
		Speed:      r.FormValue("speed"),
		Hardware:   r.FormValue("hardware"),
	})
	if err != nil {
		if rec.SpritePath != "" {
			os.Remove(rec.SpritePath)
		}
		http.Error(w, video.Result{Err: err}.Message(), http.StatusBadRequest)
		return
	}
	req.ID = id
	req.ThumbPath = rec.ThumbPath

	j := s.Jobs.Submit(req, rec)
	log.WithField("addr", r.RemoteAddr).Infof("Accepted render %v", j.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(&RenderResponse{ID: j.ID})
}

func saveUpload(src multipart.File, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(dst)
		return fmt.Errorf("writing upload: %v", err)
	}
	return f.Close()
}
