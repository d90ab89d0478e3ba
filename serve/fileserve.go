package serve

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"spritemov/history"
)

// FileServer serves one artifact of a finished render by job id.
type FileServer struct {
	Store       history.Store
	PathFunc    func(r *history.RenderRecord) string
	ContentType string
}

func NewVideoServer(s history.Store) *FileServer {
	return &FileServer{
		Store: s,
		PathFunc: func(r *history.RenderRecord) string {
			return r.VideoPath
		},
		ContentType: "video/quicktime",
	}
}

func NewThumbServer(s history.Store) *FileServer {
	return &FileServer{
		Store: s,
		PathFunc: func(r *history.RenderRecord) string {
			return r.ThumbPath
		},
		ContentType: "image/png",
	}
}

func NewVThumbServer(s history.Store) *FileServer {
	return &FileServer{
		Store: s,
		PathFunc: func(r *history.RenderRecord) string {
			if !r.HaveVThumb {
				return ""
			}
			return r.VThumbPath
		},
		ContentType: "video/mp4",
	}
}

func (s *FileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := r.Form.Get("id")
	rec, err := s.Store.Get(id)
	if errors.Is(err, history.ErrNotFound) {
		http.Error(w, fmt.Sprintf("No record found for id %v", id), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	path := s.PathFunc(rec)
	if path == "" {
		http.Error(w, "not available", http.StatusNotFound)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", s.ContentType)
	if r.Form.Get("download") != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	}
	// ServeContent handles range requests, which video players rely on.
	http.ServeContent(w, r, filepath.Base(path), st.ModTime(), f)
}
