package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/vidloop/pkg/adapters/h264decoder"
)

// makeClip encodes a short H.264 test pattern, skipping the test without ffmpeg.
func makeClip(t *testing.T) string {
	t.Helper()
	if os.Getenv("VIDLOOP_E2E") != "1" {
		t.Skip("Skipping E2E test (set VIDLOOP_E2E=1 to run)")
	}
	ffmpeg, err := h264decoder.FindFFmpeg("")
	if err != nil {
		t.Skipf("ffmpeg not available: %v", err)
	}

	clip := filepath.Join(t.TempDir(), "clip.mp4")
	cmd := exec.Command(ffmpeg, "-y", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=size=64x48:rate=25:duration=1",
		"-c:v", "libx264", "-pix_fmt", "yuv420p", clip)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("could not encode test clip: %v\n%s", err, out)
	}
	return clip
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	err := app.Run(append([]string{"vidloop", "--quiet"}, args...))
	return stdout.String(), err
}

func TestE2E_Probe(t *testing.T) {
	clip := makeClip(t)

	for _, backend := range []string{"libav", "mp4"} {
		t.Run(backend, func(t *testing.T) {
			out, err := runApp(t, "--backend", backend, "probe", clip)
			if err != nil {
				t.Fatalf("probe failed: %v", err)
			}

			var info probeInfo
			if err := json.Unmarshal([]byte(out), &info); err != nil {
				t.Fatalf("probe output is not JSON: %v\n%s", err, out)
			}
			if info.Width != 64 || info.Height != 48 {
				t.Errorf("size = %dx%d, want 64x48", info.Width, info.Height)
			}
			if info.Backend != backend {
				t.Errorf("backend = %q, want %q", info.Backend, backend)
			}
		})
	}
}

func TestE2E_Snapshot(t *testing.T) {
	clip := makeClip(t)
	dir := t.TempDir()
	summary := filepath.Join(dir, "summary.md")

	_, err := runApp(t, "snapshot",
		"--out", dir,
		"--interval", "100ms",
		"--count", "3",
		"--summary", summary,
		clip)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	shots, err := filepath.Glob(filepath.Join(dir, "snapshot-*.png"))
	if err != nil {
		t.Fatal(err)
	}
	if len(shots) != 3 {
		t.Errorf("got %d snapshots, want 3", len(shots))
	}
	if _, err := os.Stat(filepath.Join(dir, "info.json")); err != nil {
		t.Errorf("info.json not written: %v", err)
	}

	data, err := os.ReadFile(summary)
	if err != nil {
		t.Fatalf("summary not written: %v", err)
	}
	for _, want := range []string{"# Playback Summary", "64x48", "## Snapshots"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("summary missing %q", want)
		}
	}
}

func TestE2E_ProbeMissingFile(t *testing.T) {
	makeClip(t)
	if _, err := runApp(t, "--backend", "libav", "probe", filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Error("expected error for missing file")
	}
}
