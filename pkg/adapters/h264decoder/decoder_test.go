package h264decoder

import (
	"bytes"
	"errors"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/user/vidloop/pkg/ports"
)

func TestFindFFmpeg_CustomPathMissing(t *testing.T) {
	_, err := FindFFmpeg(filepath.Join(t.TempDir(), "no-ffmpeg"))
	if !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("err = %v, want ErrFFmpegNotFound", err)
	}
}

func TestFindFFmpeg_EnvPathMissing(t *testing.T) {
	t.Setenv("FFMPEG_PATH", filepath.Join(t.TempDir(), "no-ffmpeg"))
	if _, err := FindFFmpeg(""); !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("err = %v, want ErrFFmpegNotFound", err)
	}
}

func TestNew_InvalidSize(t *testing.T) {
	if _, err := New(Options{Width: 0, Height: 48}); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("err = %v, want ErrInvalidSize", err)
	}
}

func TestDecoder_PendingTimestampsSorted(t *testing.T) {
	d := &Decoder{}
	for _, pts := range []int64{0, 3000, 1000, 2000, 6000, 4000, 5000} {
		d.pushPTS(pts)
	}
	for want := int64(0); want <= 6000; want += 1000 {
		if got := d.popPTS(); got != want {
			t.Fatalf("popPTS = %d, want %d", got, want)
		}
	}
	if got := d.popPTS(); got != 0 {
		t.Errorf("popPTS on empty = %d", got)
	}
}

func TestDecoder_ReceiveAfterFFmpegExited(t *testing.T) {
	done := make(chan struct{})
	close(done)
	d := &Decoder{
		opts: Options{Width: 2, Height: 2, Latency: 1, Timeout: time.Minute},
		proc: &process{ready: make(chan struct{}, 1), done: done},
		sent: 4,
	}

	errc := make(chan error, 1)
	go func() {
		var f ports.RawFrame
		errc <- d.Receive(&f)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrDecodeFailed) {
			t.Errorf("Receive = %v, want ErrDecodeFailed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Receive kept waiting after ffmpeg exited")
	}
}

func TestDecoder_ReceiveDrainsPicturesBeforeExitError(t *testing.T) {
	done := make(chan struct{})
	close(done)
	d := &Decoder{
		opts: Options{Width: 2, Height: 2, Latency: 0, Timeout: time.Minute},
		proc: &process{ready: make(chan struct{}, 1), done: done, frames: [][]byte{{1, 2, 3, 4, 5, 6}}},
		sent: 2,
	}
	d.pushPTS(40)
	d.pushPTS(80)

	var f ports.RawFrame
	if err := d.Receive(&f); err != nil {
		t.Fatalf("first Receive = %v", err)
	}
	if f.PTS != 40 {
		t.Errorf("PTS = %d, want 40", f.PTS)
	}
	if err := d.Receive(&f); !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("second Receive = %v, want ErrDecodeFailed", err)
	}
}

func TestTailBuffer(t *testing.T) {
	b := &tailBuffer{limit: 5}
	b.Write([]byte("hello "))
	b.Write([]byte("world"))
	if got := b.String(); got != "world" {
		t.Errorf("tail = %q, want %q", got, "world")
	}
}

// encodeTestStream produces a raw H.264 stream with ffmpeg's test source.
func encodeTestStream(t *testing.T, path string, frames int) []byte {
	t.Helper()
	var out, stderr bytes.Buffer
	cmd := exec.Command(path, "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=size=64x48:rate=25",
		"-frames:v", strconv.Itoa(frames), "-c:v", "libx264", "-bf", "0", "-g", strconv.Itoa(frames),
		"-f", "h264", "pipe:1")
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Skipf("ffmpeg cannot encode a test stream: %v: %s", err, stderr.String())
	}
	return out.Bytes()
}

// splitAccessUnits splits an Annex B stream before every slice NAL unit,
// keeping parameter sets with the slice that follows them.
func splitAccessUnits(stream []byte) [][]byte {
	var units [][]byte
	start := 0
	sawSlice := false
	for i := 0; i+4 < len(stream); i++ {
		if stream[i] != 0 || stream[i+1] != 0 || stream[i+2] != 0 || stream[i+3] != 1 {
			continue
		}
		typ := stream[i+4] & 0x1f
		if (typ == 1 || typ == 5 || typ == 7 || typ == 9) && sawSlice {
			units = append(units, stream[start:i])
			start = i
			sawSlice = false
		}
		if typ == 1 || typ == 5 {
			sawSlice = true
		}
	}
	return append(units, stream[start:])
}

func TestDecoder_DecodesStream(t *testing.T) {
	path, err := FindFFmpeg("")
	if err != nil {
		t.Skip("ffmpeg not available")
	}
	units := splitAccessUnits(encodeTestStream(t, path, 10))

	d, err := New(Options{Width: 64, Height: 48, Latency: 2, Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	var frame ports.RawFrame
	var got []int64
	for i, unit := range units {
		if err := d.Send(unit, int64(i*3600)); err != nil {
			t.Fatalf("Send #%d: %v", i, err)
		}
		for {
			err := d.Receive(&frame)
			if errors.Is(err, ports.ErrNeedMoreInput) {
				break
			}
			if err != nil {
				t.Fatalf("Receive: %v", err)
			}
			if frame.Width != 64 || frame.Height != 48 || len(frame.Planes) != 3 {
				t.Fatalf("frame = %dx%d with %d planes", frame.Width, frame.Height, len(frame.Planes))
			}
			got = append(got, frame.PTS)
		}
	}

	if len(got) < len(units)-3 {
		t.Fatalf("decoded %d of %d units", len(got), len(units))
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Errorf("pts not increasing: %v", got)
			break
		}
	}

	if err := d.Reset(); err != nil {
		t.Errorf("Reset: %v", err)
	}
	if err := d.Receive(&frame); !errors.Is(err, ports.ErrNeedMoreInput) {
		t.Errorf("Receive after Reset = %v, want ErrNeedMoreInput", err)
	}
}

func TestDecoder_Closed(t *testing.T) {
	if !IsAvailable("") {
		t.Skip("ffmpeg not available")
	}
	d, err := New(Options{Width: 64, Height: 48})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := d.Send([]byte{0, 0, 0, 1}, 0); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Send after Close = %v, want ErrNotInitialized", err)
	}
}
