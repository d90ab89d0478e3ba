package serve

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"spritemov/history"
	"spritemov/video"
)

type MetaEntry struct {
	ID        string
	Timestamp int64

	State   string
	Percent float64
	Message string

	Resolution string
	FPS        int
	Hardware   bool

	HaveVideo  bool
	HaveThumb  bool
	HaveVThumb bool

	Frames      int
	ElapsedMs   int64
	DurationSec int
}

type MetaResponse struct {
	Items []*MetaEntry

	ItemsCount      int
	OldestTimestamp int64
}

func toMetaEntry(r *history.RenderRecord) *MetaEntry {
	me := &MetaEntry{
		ID:          r.JobID,
		Timestamp:   r.CreatedAt.Unix(),
		State:       r.State,
		Message:     r.Message,
		Resolution:  r.Resolution,
		FPS:         r.FPS,
		Hardware:    r.Hardware,
		HaveVideo:   video.Exists(r.VideoPath),
		HaveThumb:   video.Exists(r.ThumbPath),
		HaveVThumb:  r.HaveVThumb && video.Exists(r.VThumbPath),
		Frames:      r.Frames,
		ElapsedMs:   r.ElapsedMs,
		DurationSec: r.DurationSec,
	}
	if r.Succeeded() {
		me.Percent = 100
	}
	return me
}

// MetaServer serves job status. Live jobs report their current state and
// percent; everything else comes from the history store.
type MetaServer struct {
	Store history.Store
	Jobs  *Jobs
}

func (s *MetaServer) entry(id string) (*MetaEntry, error) {
	if j, ok := s.Jobs.Get(id); ok {
		me := toMetaEntry(history.NewRecord(j, nil))
		me.State = j.State().String()
		me.Percent = j.Percent()
		if rec, err := s.Store.Get(id); err == nil {
			me.HaveVThumb = rec.HaveVThumb && video.Exists(rec.VThumbPath)
		}
		return me, nil
	}
	rec, err := s.Store.Get(id)
	if err != nil {
		return nil, err
	}
	return toMetaEntry(rec), nil
}

func (s *MetaServer) BuildResponse(limit int) (*MetaResponse, error) {
	records, err := s.Store.List(limit)
	if err != nil {
		return nil, err
	}
	resp := &MetaResponse{Items: []*MetaEntry{}}
	for _, r := range records {
		me, err := s.entry(r.JobID)
		if err != nil {
			me = toMetaEntry(r)
		}
		resp.Items = append(resp.Items, me)
		resp.OldestTimestamp = r.CreatedAt.Unix()
	}
	resp.ItemsCount = len(records)
	return resp, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	js, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(js)
}

// JobsHandler lists recent renders, newest first.
func (s *MetaServer) JobsHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit := 0
	if v := r.Form.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, fmt.Sprintf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = n
	}
	resp, err := s.BuildResponse(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, resp)
}

// JobHandler reports a single render.
func (s *MetaServer) JobHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := r.Form.Get("id")
	me, err := s.entry(id)
	if errors.Is(err, history.ErrNotFound) {
		http.Error(w, fmt.Sprintf("No record found for id %v", id), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, me)
}
