package summarizer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/user/vidloop/pkg/mocks"
)

func TestBuilder(t *testing.T) {
	s := NewBuilder().
		WithSource(SourceInfo{Path: "clip.mp4", Codec: "h264"}).
		WithPlayback(PlaybackInfo{FramesPublished: 10, Loops: 2}).
		WithError(nil).
		Build()

	if s.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not set")
	}
	if s.Source.Path != "clip.mp4" || s.Playback.Loops != 2 {
		t.Errorf("summary = %+v", s)
	}
	if s.Snapshots != nil {
		t.Error("Snapshots should stay nil unless set")
	}
	if s.Err != "" {
		t.Errorf("Err = %q for nil error", s.Err)
	}

	s = NewBuilder().WithError(errors.New("boom")).Build()
	if s.Err != "boom" {
		t.Errorf("Err = %q", s.Err)
	}
}

func TestMarkdownFormatter_Format(t *testing.T) {
	summary := &Summary{
		GeneratedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Source: SourceInfo{
			Path:     "clips/intro.mp4",
			Backend:  "mp4",
			Codec:    "h264",
			Width:    1280,
			Height:   720,
			TimeBase: "1/90000",
		},
		Playback: PlaybackInfo{
			SessionID:       "abc",
			FramesPublished: 300,
			Loops:           3,
			Reloads:         1,
			Duration:        10 * time.Second,
			LastPosition:    1500 * time.Millisecond,
		},
	}

	result := NewMarkdownFormatter().Format(summary)

	checks := []string{
		"# Playback Summary",
		"2024-01-15T10:30:00Z",
		"| Path | clips/intro.mp4 |",
		"| Codec | h264 |",
		"1280x720",
		"1/90000",
		"| Frames Published | 300 |",
		"| Loops | 3 |",
		"| Reloads | 1 |",
		"00:10.000",
		"00:01.500",
		"30.00 fps",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected output to contain %q", check)
		}
	}
	if strings.Contains(result, "## Snapshots") || strings.Contains(result, "## Error") {
		t.Error("unexpected optional sections")
	}
}

func TestMarkdownFormatter_Format_OptionalSections(t *testing.T) {
	summary := NewBuilder().
		WithSource(SourceInfo{Path: "a|b.mp4"}).
		WithSnapshots(SnapshotInfo{Dir: "shots", Format: "png", Interval: 250 * time.Millisecond}).
		WithError(errors.New("end of file hit twice in a row, suggesting no data?")).
		Build()

	result := NewMarkdownFormatter().Format(summary)

	checks := []string{
		"## Snapshots",
		"| Directory | shots |",
		"00:00.250",
		"| Count | Unlimited |",
		"## Error",
		"suggesting no data?",
		"| Size | N/A |",
		`a\|b.mp4`,
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected output to contain %q", check)
		}
	}
	if strings.Contains(result, "Average Rate") {
		t.Error("average rate shown without frames")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00.000"},
		{1500 * time.Millisecond, "00:01.500"},
		{61*time.Second + 5*time.Millisecond, "01:01.005"},
		{-time.Second, "00:00.000"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := NewWriter(FormatFunc(func(s *Summary) string { return "summary of " + s.Source.Path }), fs)

	summary := NewBuilder().WithSource(SourceInfo{Path: "clip.mp4"}).Build()
	if err := w.Write("out/summary.md", summary); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, ok := fs.GetFile("out/summary.md")
	if !ok {
		t.Fatal("summary not written")
	}
	if string(data) != "summary of clip.mp4" {
		t.Errorf("content = %q", data)
	}
	if exists, _ := fs.Exists("out"); !exists {
		t.Error("parent directory not created")
	}
}

func TestWriter_WriteError(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFileFunc = func(string, []byte) error { return errors.New("disk full") }
	w := NewWriter(NewMarkdownFormatter(), fs)

	if err := w.Write("summary.md", NewSummary()); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("err = %v, want disk full", err)
	}
}
