package process

import (
	"bytes"
	"os"
	"os/exec"

	log "github.com/sirupsen/logrus"
)

const (
	ExtTemp = ".temp"
)

// VThumbProducer converts finished MOV renders into small H.264 clips that
// browsers can play inline. Conversions run one at a time in the background.
type VThumbProducer struct {
	ffmpeg string

	c     chan *workItem
	close chan chan bool
}

type workItem struct {
	src, dst string
	donec    chan bool
}

func NewVThumbProducer(ffmpeg string) *VThumbProducer {
	f := &VThumbProducer{
		ffmpeg: ffmpeg,
		c:      make(chan *workItem, 100),
		close:  make(chan chan bool, 1),
	}
	go func() {
		for {
			var w *workItem
			select {
			case cc := <-f.close:
				cc <- true
				return
			case w = <-f.c:
			}

			c := exec.Command(
				f.ffmpeg,
				"-y",
				// Configure input from source file.
				"-i", w.src,
				// Previews can be choppy to reduce size.
				"-r", "30",
				"-c:v", "libx264",
				// Shrink. Alpha is dropped by the yuv420p output below.
				"-vf", "scale=480:-2",
				"-preset", "fast",
				"-crf", "28",
				// Keep CPU usage down. Preview conversion doesn't need to be fast.
				"-threads", "1",
				// Allow playback on a wider range of devices.
				"-pix_fmt", "yuv420p",
				"-profile:v", "baseline",
				"-level", "3.0",
				"-movflags", "+faststart",
				// Explicit format.
				"-f", "mp4",
				w.dst+ExtTemp,
			)

			var stderr bytes.Buffer
			c.Stderr = &stderr

			if err := c.Start(); err != nil {
				log.Errorf("Failed to start preview conversion for %v: %v", w.src, err)
				close(w.donec)
				continue
			}

			wait := make(chan error)
			go func() {
				wait <- c.Wait()
			}()

			select {
			case cc := <-f.close:
				c.Process.Kill()
				<-wait
				os.Remove(w.dst + ExtTemp)
				close(w.donec)
				cc <- true
				return
			case err := <-wait:
				if err == nil {
					if err := os.Rename(w.dst+ExtTemp, w.dst); err != nil {
						log.Errorf("Error moving preview to its final destination: %v", err)
					} else {
						log.Infof("Preview conversion succeeded for %v", w.src)
						w.donec <- true
					}
				} else {
					os.Remove(w.dst + ExtTemp)
					log.WithField("stderr", stderr.String()).Errorf("Preview conversion failed for %v: %v", w.src, err)
				}
				close(w.donec)
			}
		}
	}()
	return f
}

// Process queues a conversion of src into dst. The returned channel yields
// true once dst exists and is then closed; it is closed without a value on
// failure. A nil channel means the request was dropped due to backlog.
func (f *VThumbProducer) Process(src, dst string) <-chan bool {
	w := &workItem{
		src:   src,
		dst:   dst,
		donec: make(chan bool, 1),
	}
	select {
	case f.c <- w:
	default:
		log.Warnf("Preview processing dropped due to backlog")
		return nil
	}
	return w.donec
}

func (f *VThumbProducer) Close() {
	c := make(chan bool)
	f.close <- c
	<-c
}
