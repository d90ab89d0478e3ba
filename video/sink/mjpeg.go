package sink

import (
	"fmt"
	"net/http"
	"sync"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// MJPEG multi-streaming, based on implementation by saljam:
// https://github.com/saljam/mjpeg/blob/master/stream.go

const boundaryWord = "MJPEGBOUNDARY"
const headerf = "\r\n" +
	"--" + boundaryWord + "\r\n" +
	"Content-Type: image/jpeg\r\n" +
	"Content-Length: %d\r\n" +
	"X-Timestamp: 0.000000\r\n" +
	"\r\n"

// MJPEGID names a preview stream. Render previews use the job ID.
type MJPEGID struct {
	Name string
}

// MJPEGServer serves live previews of frames as they are rendered.
type MJPEGServer struct {
	m map[MJPEGID]*MJPEGStream

	lock sync.Mutex
}

func NewMJPEGServer() *MJPEGServer {
	return &MJPEGServer{
		m: make(map[MJPEGID]*MJPEGStream),
	}
}

func (s *MJPEGServer) NewStream(id MJPEGID) *MJPEGStream {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.m[id]; ok {
		log.Panicf("A stream for %v already exists", id)
	}

	ms := &MJPEGStream{
		id:     id,
		m:      make(map[chan []byte]bool),
		frame:  make([]byte, len(headerf)),
		bgr:    gocv.NewMat(),
		parent: s,
	}

	s.m[id] = ms
	return ms
}

func (s *MJPEGServer) getStream(id MJPEGID) *MJPEGStream {
	s.lock.Lock()
	defer s.lock.Unlock()
	if ms, ok := s.m[id]; ok {
		return ms
	}
	return nil
}

// ServeHTTP implements http.Handler interface, serving MJPEG.
func (s *MJPEGServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := MJPEGID{
		Name: r.Form.Get("id"),
	}

	if id.Name == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}

	stream := s.getStream(id)
	if stream == nil {
		http.Error(w, "no preview for that job", http.StatusNotFound)
		return
	}

	log.WithField("addr", r.RemoteAddr).Infof("MJPEG preview connected to %v", id.Name)
	w.Header().Add("Content-Type", "multipart/x-mixed-replace;boundary="+boundaryWord)

	c := make(chan []byte)
	stream.lock.Lock()
	stream.m[c] = true
	stream.lock.Unlock()

loop:
	for {
		select {
		case b, ok := <-c:
			if !ok {
				// Render finished.
				break loop
			}
			if _, err := w.Write(b); err != nil {
				break loop
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		case <-r.Context().Done():
			break loop
		}
	}

	stream.lock.Lock()
	delete(stream.m, c)
	stream.lock.Unlock()
	log.WithField("addr", r.RemoteAddr).Infof("MJPEG preview disconnected from %v", id.Name)
}

type MJPEGStream struct {
	id    MJPEGID
	m     map[chan []byte]bool
	frame []byte
	bgr   gocv.Mat

	parent *MJPEGServer
	lock   sync.Mutex
}

// Watched reports whether any client is connected.
func (s *MJPEGStream) Watched() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.m) > 0
}

// Put publishes a BGRA frame. Transparent areas show as black.
func (s *MJPEGStream) Put(input gocv.Mat) {
	if !s.Watched() {
		// Nobody is watching; don't bother encoding.
		return
	}

	// JPEG has no alpha channel.
	gocv.CvtColor(input, &s.bgr, gocv.ColorBGRAToBGR)
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, s.bgr)
	if err != nil {
		log.Errorf("Error encoding to JPG for MJPEG stream %v: %v", s.id, err)
		return
	}
	defer buf.Close()
	jpeg := buf.GetBytes()

	header := fmt.Sprintf(headerf, len(jpeg))
	s.lock.Lock()
	defer s.lock.Unlock()
	// Listeners may still hold the previous frame, so build into a new slice.
	frame := make([]byte, 0, len(header)+len(jpeg))
	frame = append(frame, header...)
	frame = append(frame, jpeg...)
	s.frame = frame
	for c := range s.m {
		select {
		case c <- s.frame:
		default:
			// Skip listeners not ready for next frame.
		}
	}
}

// Close removes the stream and disconnects its viewers.
func (s *MJPEGStream) Close() {
	s.parent.lock.Lock()
	delete(s.parent.m, s.id)
	s.parent.lock.Unlock()

	s.lock.Lock()
	for c := range s.m {
		close(c)
		delete(s.m, c)
	}
	s.lock.Unlock()
	s.bgr.Close()
}
