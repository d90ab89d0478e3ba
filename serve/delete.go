package serve

import (
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"spritemov/history"
	"spritemov/video"
)

// DeleteServer removes a finished render's files and history record.
type DeleteServer struct {
	FS    *video.Filesystem
	Store history.Store
	Jobs  *Jobs
}

func (s *DeleteServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := r.Form.Get("id")
	if s.Jobs.Running(id) {
		http.Error(w, fmt.Sprintf("Render %v is still running", id), http.StatusConflict)
		return
	}
	rec, err := s.Store.Get(id)
	if errors.Is(err, history.ErrNotFound) {
		http.Error(w, fmt.Sprintf("No record found for id %v", id), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	files := &video.Record{
		ID:         rec.JobID,
		SpritePath: rec.SpritePath,
		VideoPath:  rec.VideoPath,
		ThumbPath:  rec.ThumbPath,
		VThumbPath: rec.VThumbPath,
	}
	if err := s.FS.Remove(files); err != nil {
		log.Errorf("Failed to remove files of %v: %v", id, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.Store.Delete(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if s.Jobs.Notifier != nil {
		s.Jobs.Notifier.Forget(id)
	}
	s.Jobs.publish(&ProgressMessage{Type: MessageDeleted, JobID: id})
	log.WithField("addr", r.RemoteAddr).Infof("Deleted render %v", id)
}
