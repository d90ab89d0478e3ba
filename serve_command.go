package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"spritemov/config"
	"spritemov/metrics"
	"spritemov/notify"
	"spritemov/serve"
	"spritemov/util"
	"spritemov/video"
	"spritemov/video/process"
	"spritemov/video/sink"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host the web frontend and render jobs submitted through it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if port == 0 {
				port = cfg.Port
			}
			return runServer(cmd.Context(), cfg, port)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to host web frontend (defaults to the configured port)")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, port int) error {
	ffmpeg, err := util.LocateFFmpeg(cfg.FFmpegPath)
	if err != nil {
		log.Warnf("FFmpeg not found, renders will fail until it is installed: %v", err)
	} else {
		log.Infof("Located ffmpeg binary, %v", ffmpeg)
	}

	fs, err := video.NewFilesystem(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to create output directory: %v", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	previews := sink.NewMJPEGServer()
	rendererOptions := func() video.RendererOptions {
		c := config.Get()
		return video.RendererOptions{
			FFmpegPath:    c.FFmpegPath,
			Bitrate:       c.HardwareBitrate,
			PoolCanvases:  c.PoolCanvases,
			MaxConcurrent: c.MaxConcurrentRenders,
			Previews:      previews,
			PreviewEvery:  c.PreviewEvery,
			Metrics:       m,
		}
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	if db == nil {
		log.Infof("No database configured, render history is kept in memory")
	}

	updates := serve.NewProgressUpdater()
	notifier := &notify.Notifier{Listeners: []notify.NotifyListener{updates}}
	var push *notify.WebPush
	if db != nil {
		if push, err = notify.NewWebPush(db, cfg.PushSubscriber); err != nil {
			return fmt.Errorf("failed to set up web push: %v", err)
		}
		notifier.Listeners = append(notifier.Listeners, push)
	}

	jobs := &serve.Jobs{
		Renderer:  video.NewRenderer(rendererOptions()),
		Store:     store,
		Updates:   updates,
		Notifier:  notifier,
		Configure: rendererOptions,
	}
	if ffmpeg != "" {
		jobs.VThumbs = process.NewVThumbProducer(ffmpeg)
		defer jobs.VThumbs.Close()
	}

	srv := &serve.Server{
		FS:       fs,
		Store:    store,
		Jobs:     jobs,
		Updates:  updates,
		Previews: previews,
		Push:     push,
	}

	accessLog := log.StandardLogger().Writer()
	defer accessLog.Close()
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handlers.CombinedLoggingHandler(accessLog, srv.Handler()),
	}

	errc := make(chan error, 1)
	go func() {
		log.Infof("Hosting web frontend on port %d", port)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Infof("Shutting down, waiting for renders in progress")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(sctx); err != nil {
		log.Warnf("HTTP shutdown: %v", err)
	}
	jobs.Wait()
	return nil
}
