package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"

	"spritemov/config"
	"spritemov/history"
	"spritemov/video"
)

type renderFlags struct {
	resolution string
	fps        string
	angle      string
	distance   string
	speed      string
	hardware   bool
	thumb      string
}

func newRenderCommand() *cobra.Command {
	var f renderFlags

	cmd := &cobra.Command{
		Use:   "render <sprite> <output>",
		Short: "Render a sprite moving across a transparent canvas",
		Long: "Render a sprite moving across a transparent canvas. The output is always a .mov;\n" +
			"the software profile writes ProRes 4444, --hardware writes HEVC with alpha via NVENC.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hw := "false"
			if f.hardware {
				hw = "true"
			}
			req, err := video.ParseParams(video.Params{
				Source:     args[0],
				Output:     args[1],
				Resolution: f.resolution,
				FPS:        f.fps,
				Angle:      f.angle,
				Distance:   f.distance,
				Speed:      f.speed,
				Hardware:   hw,
			})
			if err != nil {
				return errors.New(video.Result{Err: err}.Message())
			}
			req.ThumbPath = f.thumb
			return runRender(cmd.ErrOrStderr(), cmd.OutOrStdout(), config.Get(), req)
		},
	}

	cmd.Flags().StringVarP(&f.resolution, "resolution", "r", "1080p", "Output resolution (1080p or 4k)")
	cmd.Flags().StringVar(&f.fps, "fps", "60", "Frame rate (60 or 120)")
	cmd.Flags().StringVarP(&f.angle, "angle", "a", "0", "Direction of travel in degrees; 0 is right, 90 is down")
	cmd.Flags().StringVarP(&f.distance, "distance", "d", "500", "Distance travelled in pixels")
	cmd.Flags().StringVarP(&f.speed, "speed", "s", "100", "Speed in pixels per second")
	cmd.Flags().BoolVar(&f.hardware, "hardware", false, "Encode on an NVIDIA GPU (hevc_nvenc)")
	cmd.Flags().StringVar(&f.thumb, "thumb", "", "Also write a PNG poster of the first frame")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func runRender(progressOut, out io.Writer, cfg *config.Config, req video.Request) error {
	var store history.Store
	if cfg.DatabaseDSN != "" {
		s, _, err := openStore(cfg)
		if err != nil {
			log.Warnf("Render history disabled: %v", err)
		} else {
			store = s
		}
	}

	r := video.NewRenderer(video.RendererOptions{
		FFmpegPath:   cfg.FFmpegPath,
		Bitrate:      cfg.HardwareBitrate,
		PoolCanvases: cfg.PoolCanvases,
	})
	j := r.Start(req)

	var bar *progressbar.ProgressBar
	if isTerminal(progressOut) {
		bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(progressOut),
			progressbar.OptionSetDescription("Encoding"),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	var res video.Result
	last := -1
	for e := range j.Events() {
		switch e.Type {
		case video.EventProgress:
			pct := int(e.Percent)
			if bar != nil {
				bar.Set(pct)
			} else if pct/10 != last/10 || pct == 100 {
				fmt.Fprintf(progressOut, "%s: %d%%\n", j.State(), pct)
			}
			last = pct
		case video.EventResult:
			res = *e.Result
		}
	}
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(progressOut)
	}

	if store != nil {
		if err := store.Save(history.NewRecord(j, nil)); err != nil {
			log.Warnf("Failed to record render: %v", err)
		}
	}

	if !res.Succeeded() {
		return errors.New(res.Message())
	}
	fmt.Fprintf(out, "%s (%d frames in %v)\n", res.Message(), res.Frames, res.Elapsed.Round(time.Millisecond))
	return nil
}
