package util

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

// EnvFFmpeg overrides the ffmpeg binary when set.
const EnvFFmpeg = "FFMPEG"

// ErrFFmpegNotFound is returned by LocateFFmpeg when no usable binary exists.
var ErrFFmpegNotFound = errors.New("ffmpeg binary not found")

// LocateFFmpeg resolves the ffmpeg binary to an absolute path. The configured
// value wins, then $FFMPEG, then $PATH. It has no side effects and is meant to
// be called once per render as a pre-flight check. Falling back past a
// configured value that does not resolve is logged as a warning.
func LocateFFmpeg(configured string) (string, error) {
	candidates := []string{
		strings.TrimSpace(configured),
		strings.TrimSpace(os.Getenv(EnvFFmpeg)),
		"ffmpeg",
	}
	var tried []string
	for _, c := range candidates {
		if c == "" {
			continue
		}
		p, err := exec.LookPath(c)
		if err == nil {
			if len(tried) > 0 {
				log.Warnf("ffmpeg %s not found, using %s instead", strings.Join(tried, ", "), p)
			}
			return p, nil
		}
		tried = append(tried, c)
	}
	return "", fmt.Errorf("%w (tried %s)", ErrFFmpegNotFound, strings.Join(tried, ", "))
}

// HaveFFmpeg is the boolean form of LocateFFmpeg.
func HaveFFmpeg(configured string) bool {
	_, err := LocateFFmpeg(configured)
	return err == nil
}
