package sink

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestMJPEGRequestErrors(t *testing.T) {
	s := NewMJPEGServer()
	for target, want := range map[string]int{
		"/preview":         http.StatusBadRequest,
		"/preview?id=nope": http.StatusNotFound,
	} {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
		if w.Code != want {
			t.Errorf("%s: expected %d, got %d", target, want, w.Code)
		}
	}
}

func TestMJPEGStreamsFrames(t *testing.T) {
	s := NewMJPEGServer()
	stream := s.NewStream(MJPEGID{Name: "job"})
	ts := httptest.NewServer(s)
	defer ts.Close()

	if stream.Watched() {
		t.Fatalf("no client connected yet")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL+"?id=job", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("unexpected content type %q", ct)
	}

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 255), 48, 64, gocv.MatTypeCV8UC4)
	defer frame.Close()

	// Keep publishing until the listener picks a frame up.
	done := make(chan struct{})
	exited := make(chan struct{})
	defer func() {
		close(done)
		<-exited
	}()
	go func() {
		defer close(exited)
		for {
			select {
			case <-done:
				return
			case <-time.After(10 * time.Millisecond):
				stream.Put(frame)
			}
		}
	}()

	r := bufio.NewReader(resp.Body)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		if strings.HasPrefix(line, "Content-Type: image/jpeg") {
			break
		}
	}
	if !stream.Watched() {
		t.Errorf("expected the stream to report a viewer")
	}
}

func TestMJPEGCloseEndsViewers(t *testing.T) {
	s := NewMJPEGServer()
	stream := s.NewStream(MJPEGID{Name: "job"})
	ts := httptest.NewServer(s)
	defer ts.Close()

	ended := make(chan struct{})
	go func() {
		defer close(ended)
		resp, err := http.Get(ts.URL + "?id=job")
		if err != nil {
			return
		}
		defer resp.Body.Close()
		buf := make([]byte, 512)
		for {
			if _, err := resp.Body.Read(buf); err != nil {
				return
			}
		}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !stream.Watched() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	stream.Close()

	select {
	case <-ended:
	case <-time.After(5 * time.Second):
		t.Fatalf("viewer still connected after Close")
	}
	// The name is free again.
	s.NewStream(MJPEGID{Name: "job"}).Close()
}
