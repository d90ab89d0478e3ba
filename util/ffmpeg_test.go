package util

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func writeStub(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return p
}

func TestLocateFFmpegConfigured(t *testing.T) {
	stub := writeStub(t, t.TempDir(), "myffmpeg")
	t.Setenv(EnvFFmpeg, "")

	got, err := LocateFFmpeg(stub)
	if err != nil {
		t.Fatalf("LocateFFmpeg: %v", err)
	}
	if got != stub {
		t.Fatalf("expected %q, got %q", stub, got)
	}
}

func TestLocateFFmpegEnv(t *testing.T) {
	stub := writeStub(t, t.TempDir(), "envffmpeg")
	t.Setenv(EnvFFmpeg, stub)

	got, err := LocateFFmpeg("")
	if err != nil {
		t.Fatalf("LocateFFmpeg: %v", err)
	}
	if got != stub {
		t.Fatalf("expected %q, got %q", stub, got)
	}
}

func TestLocateFFmpegPath(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, "ffmpeg")
	t.Setenv(EnvFFmpeg, "")
	t.Setenv("PATH", dir)

	got, err := LocateFFmpeg("")
	if err != nil {
		t.Fatalf("LocateFFmpeg: %v", err)
	}
	if got != stub {
		t.Fatalf("expected %q, got %q", stub, got)
	}
}

func TestLocateFFmpegWarnsOnFallback(t *testing.T) {
	stub := writeStub(t, t.TempDir(), "envffmpeg")
	t.Setenv(EnvFFmpeg, stub)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	typo := filepath.Join(t.TempDir(), "ffmepg")
	got, err := LocateFFmpeg(typo)
	if err != nil {
		t.Fatalf("LocateFFmpeg: %v", err)
	}
	if got != stub {
		t.Fatalf("expected %q, got %q", stub, got)
	}
	if !strings.Contains(buf.String(), "level=warning") || !strings.Contains(buf.String(), typo) {
		t.Errorf("expected a warning naming %v, got %q", typo, buf.String())
	}

	buf.Reset()
	if _, err := LocateFFmpeg(stub); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("no warning expected when the configured binary resolves, got %q", buf.String())
	}
}

func TestLocateFFmpegMissing(t *testing.T) {
	t.Setenv(EnvFFmpeg, "")
	t.Setenv("PATH", t.TempDir())

	_, err := LocateFFmpeg("clearly-not-present-ffmpeg")
	if !errors.Is(err, ErrFFmpegNotFound) {
		t.Fatalf("expected ErrFFmpegNotFound, got %v", err)
	}
	if HaveFFmpeg("") {
		t.Fatalf("HaveFFmpeg reported true with empty PATH")
	}
}
