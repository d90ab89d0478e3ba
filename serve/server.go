package serve

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spritemov/history"
	"spritemov/notify"
	"spritemov/video"
	"spritemov/video/sink"
)

// Server bundles the HTTP frontend.
type Server struct {
	FS       *video.Filesystem
	Store    history.Store
	Jobs     *Jobs
	Updates  *ProgressUpdater
	Previews *sink.MJPEGServer
	// Push is optional.
	Push *notify.WebPush
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	meta := &MetaServer{Store: s.Store, Jobs: s.Jobs}

	mux.Handle("/render", &RenderServer{FS: s.FS, Jobs: s.Jobs})
	mux.HandleFunc("/job", meta.JobHandler)
	mux.HandleFunc("/jobs", meta.JobsHandler)
	mux.Handle("/video", NewVideoServer(s.Store))
	mux.Handle("/thumb", NewThumbServer(s.Store))
	mux.Handle("/vthumb", NewVThumbServer(s.Store))
	mux.Handle("/delete", &DeleteServer{FS: s.FS, Store: s.Store, Jobs: s.Jobs})
	mux.Handle("/progressws", s.Updates)
	if s.Previews != nil {
		mux.Handle("/preview", s.Previews)
	}
	if s.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}
	if s.Push != nil {
		s.Push.RegisterHandlers(mux)
	}
	mux.Handle("/", NewWebHandler())
	return mux
}
