package mp4session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/user/vidloop/pkg/adapters/mp4demux"
	"github.com/user/vidloop/pkg/mocks"
	"github.com/user/vidloop/pkg/playback"
	"github.com/user/vidloop/pkg/ports"
)

func clip(t *testing.T, fourCC string, timescale, dur uint32, n int) []byte {
	t.Helper()
	samples := make([]mocks.MP4Sample, n)
	for i := range samples {
		samples[i] = mocks.MP4Sample{Data: []byte{byte(i + 1)}, Dur: dur, Sync: i == 0}
	}
	data, err := mocks.FragmentedMP4(mocks.MP4Track{
		Media:     "video",
		FourCC:    fourCC,
		Width:     32,
		Height:    16,
		Timescale: timescale,
		Samples:   samples,
	})
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	return data
}

func newOpener(fs ports.FileSystem, dec *mocks.ElementaryDecoder) *Opener {
	return New(fs, func(track mp4demux.Track) (ports.ElementaryDecoder, error) {
		dec.Width, dec.Height = track.Width, track.Height
		return dec, nil
	}, nil)
}

func TestOpen_SessionLifecycle(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddFile("clip.mp4", clip(t, "av01", 90000, 3000, 3))
	dec := &mocks.ElementaryDecoder{}

	sess, err := newOpener(fs, dec).Open(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	info := sess.Info()
	if info.Width != 32 || info.Height != 16 || info.TimeBase != (ports.Rational{Num: 1, Den: 90000}) || info.Backend != "mp4" || info.Codec != "av1" {
		t.Errorf("info = %+v", info)
	}

	var frame ports.RawFrame
	for i := 0; i < 3; i++ {
		pkt, err := sess.ReadPacket()
		if err != nil {
			t.Fatalf("ReadPacket #%d: %v", i, err)
		}
		if pkt.StreamIndex() != info.Index {
			t.Errorf("stream index = %d", pkt.StreamIndex())
		}
		if err := sess.SendPacket(pkt); err != nil {
			t.Fatalf("SendPacket: %v", err)
		}
		pkt.Release()
		if err := sess.ReceiveFrame(&frame); err != nil {
			t.Fatalf("ReceiveFrame: %v", err)
		}
		if want := int64(i * 3000); frame.PTS != want {
			t.Errorf("pts = %d, want %d", frame.PTS, want)
		}
	}
	if _, err := sess.ReadPacket(); !errors.Is(err, ports.ErrEndOfStream) {
		t.Errorf("ReadPacket at end = %v, want ErrEndOfStream", err)
	}

	if err := sess.Rewind(); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	if err := sess.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if dec.Resets() != 1 {
		t.Errorf("resets = %d", dec.Resets())
	}
	pkt, err := sess.ReadPacket()
	if err != nil || pkt.PTS() != 0 {
		t.Errorf("after rewind: pts %v, err %v", pkt, err)
	}

	if err := sess.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	sess.Close()
	if !dec.IsClosed() {
		t.Error("decoder not closed")
	}
}

func TestOpen_Errors(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddFile("hevc.mp4", clip(t, "hvc1", 90000, 3000, 1))
	fs.AddFile("audio.mp4", func() []byte {
		data, err := mocks.FragmentedMP4(mocks.MP4Track{Media: "audio", Timescale: 48000,
			Samples: []mocks.MP4Sample{{Data: []byte{1}, Dur: 1024, Sync: true}}})
		if err != nil {
			t.Fatalf("build fixture: %v", err)
		}
		return data
	}())

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing file", "missing.mp4", nil},
		{"unsupported codec", "hevc.mp4", ports.ErrUnsupportedCodec},
		{"no video", "audio.mp4", ports.ErrVideoStreamNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newOpener(fs, &mocks.ElementaryDecoder{}).Open(context.Background(), tt.path)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpen_DecoderFailure(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddFile("clip.mp4", clip(t, "avc1", 90000, 3000, 1))
	o := New(fs, func(mp4demux.Track) (ports.ElementaryDecoder, error) {
		return nil, errors.New("no ffmpeg")
	}, nil)

	if _, err := o.Open(context.Background(), "clip.mp4"); !errors.Is(err, ports.ErrCodecOpen) {
		t.Errorf("err = %v, want ErrCodecOpen", err)
	}
}

func TestPlayer_LoopsOverMP4(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddFile("clip.mp4", clip(t, "av01", 1000, 1, 4))
	dec := &mocks.ElementaryDecoder{}

	p := playback.New(newOpener(fs, dec), "clip.mp4", playback.Options{})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Close()

	deadline := time.Now().Add(5 * time.Second)
	for p.Stats().Loops < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("no loops after 5s: %+v", p.Stats())
		}
		time.Sleep(time.Millisecond)
	}

	var w, h int
	if err := p.LoanFrame(func(f *ports.RawFrame) error {
		w, h = f.Width, f.Height
		return nil
	}); err != nil {
		t.Fatalf("LoanFrame: %v", err)
	}
	if w != 32 || h != 16 {
		t.Errorf("frame size = %dx%d", w, h)
	}
	if p.State() != playback.StateRunning {
		t.Errorf("state = %s", p.State())
	}
}
