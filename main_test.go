package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spritemov/config"
	"spritemov/history"
)

func writeStub(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return p
}

func writeSprite(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "sprite.png")
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewNRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	return p
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

const stubEncode = `for a; do out="$a"; done
cat > /dev/null
: > "$out"`

func TestRenderCommand(t *testing.T) {
	t.Setenv("FFMPEG", writeStub(t, stubEncode))
	out := filepath.Join(t.TempDir(), "clip.mp4")

	stdout, stderr, err := execute(t, "render", writeSprite(t), out, "--distance", "20", "--speed", "100", "--angle", "45")
	if err != nil {
		t.Fatalf("render: %v\n%s", err, stderr)
	}
	want := strings.TrimSuffix(out, ".mp4") + ".mov"
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected %v: %v", want, err)
	}
	if !strings.Contains(stdout, "Video rendered to "+want) || !strings.Contains(stdout, "12 frames") {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if !strings.Contains(stderr, "100%") {
		t.Errorf("expected final progress line, got %q", stderr)
	}
}

func TestRenderCommandRejectsInput(t *testing.T) {
	t.Setenv("FFMPEG", writeStub(t, stubEncode))
	_, _, err := execute(t, "render", writeSprite(t), filepath.Join(t.TempDir(), "o.mov"), "--speed", "0")
	if err == nil || !strings.Contains(err.Error(), "Invalid render parameters") {
		t.Fatalf("expected invalid parameters, got %v", err)
	}

	_, _, err = execute(t, "render", "only-one-arg")
	if err == nil {
		t.Fatalf("expected argument error")
	}
}

func TestRenderCommandHardwareFailure(t *testing.T) {
	t.Setenv("FFMPEG", writeStub(t, `echo "[hevc_nvenc @ 0x1] No capable devices found" >&2
exit 1`))
	_, _, err := execute(t, "render", writeSprite(t), filepath.Join(t.TempDir(), "o.mov"), "--hardware", "--distance", "5")
	if err == nil || !strings.Contains(err.Error(), "NVIDIA GPU") {
		t.Fatalf("expected GPU failure message, got %v", err)
	}
}

func TestCheckCommand(t *testing.T) {
	t.Setenv("FFMPEG", writeStub(t, `echo " V....D prores_ks            Apple ProRes (iCodec Pro)"
echo " V....D hevc_nvenc           NVIDIA NVENC hevc encoder"`))
	dir := filepath.Join(t.TempDir(), "out")
	results := runChecks(context.Background(), &config.Config{OutputDir: dir})

	byName := map[string]checkResult{}
	for _, r := range results {
		byName[r.Name] = r
	}
	for _, name := range []string{"ffmpeg", "prores_ks", "hevc_nvenc", "output dir"} {
		if byName[name].Status != checkOK {
			t.Errorf("%s: expected ok, got %+v", name, byName[name])
		}
	}
	if byName["database"].Status != checkWarn {
		t.Errorf("expected database warning, got %+v", byName["database"])
	}

	var b bytes.Buffer
	if err := printChecks(&b, results); err != nil {
		t.Errorf("no check failed, got %v", err)
	}
	if !strings.Contains(b.String(), "prores_ks") {
		t.Errorf("table missing rows:\n%s", b.String())
	}
}

func TestCheckCommandWithoutFFmpeg(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	t.Setenv("FFMPEG", "")
	results := runChecks(context.Background(), &config.Config{FFmpegPath: "/nonexistent/ffmpeg", OutputDir: t.TempDir()})
	if results[0].Name != "ffmpeg" || results[0].Status != checkFail {
		t.Fatalf("expected ffmpeg failure first, got %+v", results[0])
	}
	var b bytes.Buffer
	if err := printChecks(&b, results); err == nil {
		t.Errorf("expected failing checks to return an error")
	}
}

func TestPrintHistory(t *testing.T) {
	store := history.NewMemoryStore()
	var b bytes.Buffer
	if err := printHistory(&b, store, 10); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "No renders") {
		t.Errorf("unexpected empty output %q", b.String())
	}

	store.Save(&history.RenderRecord{
		JobID: "0123456789abcdef", State: "succeeded", Resolution: "4k", FPS: 120,
		Hardware: true, Frames: 600, ElapsedMs: 12345, VideoPath: "/tmp/x.mov",
	})
	b.Reset()
	if err := printHistory(&b, store, 10); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"01234567", "4k@120", "hardware", "600", "12.345s", "/tmp/x.mov"} {
		if !strings.Contains(b.String(), want) {
			t.Errorf("history table missing %q:\n%s", want, b.String())
		}
	}
}

func TestHistoryCommandNeedsDatabase(t *testing.T) {
	_, _, err := execute(t, "history")
	if err == nil || !strings.Contains(err.Error(), "no database configured") {
		t.Fatalf("expected missing database error, got %v", err)
	}
}

func TestRenderTable(t *testing.T) {
	if renderTable(nil, nil, nil) != "" {
		t.Errorf("expected empty table for no headers")
	}
	out := renderTable([]string{"A", "B"}, [][]string{{"1"}, {"2", "3"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "A") || !strings.Contains(out, "3") {
		t.Errorf("unexpected table:\n%s", out)
	}
}
