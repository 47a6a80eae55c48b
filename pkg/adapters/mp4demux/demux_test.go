package mp4demux

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/user/vidloop/pkg/adapters/codecdetect"
	"github.com/user/vidloop/pkg/mocks"
	"github.com/user/vidloop/pkg/ports"
)

func videoTrack(fourCC string, samples ...mocks.MP4Sample) mocks.MP4Track {
	return mocks.MP4Track{
		Media:     "video",
		FourCC:    fourCC,
		Width:     64,
		Height:    48,
		Timescale: 90000,
		Samples:   samples,
	}
}

func TestParse_Fragmented(t *testing.T) {
	data, err := mocks.FragmentedMP4(videoTrack("av01",
		mocks.MP4Sample{Data: []byte{1, 2, 3}, Dur: 3000, Sync: true},
		mocks.MP4Sample{Data: []byte{4, 5}, Dur: 3000},
		mocks.MP4Sample{Data: []byte{6}, Dur: 3000, CTO: 1500},
	))
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}

	d, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	v := d.Video()
	if v.Codec != codecdetect.CodecAV1 || v.Width != 64 || v.Height != 48 || v.Timescale != 90000 {
		t.Errorf("video track = %+v", v)
	}
	if d.Len() != 3 {
		t.Fatalf("Len = %d, want 3", d.Len())
	}

	want := []struct {
		pts  int64
		data []byte
		sync bool
	}{
		{0, []byte{1, 2, 3}, true},
		{3000, []byte{4, 5}, false},
		{7500, []byte{6}, false},
	}
	for i, w := range want {
		s, err := d.Next()
		if err != nil {
			t.Fatalf("Next #%d: %v", i, err)
		}
		if s.PTS != w.pts || !bytes.Equal(s.Data, w.data) || s.Sync != w.sync || s.TrackIndex != v.Index {
			t.Errorf("sample #%d = %+v, want pts %d data %v sync %v", i, s, w.pts, w.data, w.sync)
		}
	}
	if _, err := d.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next after last = %v, want io.EOF", err)
	}

	d.Rewind()
	s, err := d.Next()
	if err != nil || s.PTS != 0 {
		t.Errorf("after Rewind got pts %d, err %v", s.PTS, err)
	}
}

func TestParse_H264SamplesBecomeAnnexB(t *testing.T) {
	idr := []byte{0x65, 0xAA}
	slice := []byte{0x41, 0xBB, 0xCC}
	data, err := mocks.FragmentedMP4(videoTrack("avc1",
		mocks.MP4Sample{Data: mocks.AVCSample(idr), Dur: 3000, Sync: true},
		mocks.MP4Sample{Data: mocks.AVCSample(slice, slice), Dur: 3000},
	))
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}

	d, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Video().Codec != codecdetect.CodecH264 {
		t.Fatalf("codec = %s", d.Video().Codec)
	}

	s, _ := d.Next()
	if want := []byte{0, 0, 0, 1, 0x65, 0xAA}; !bytes.Equal(s.Data, want) {
		t.Errorf("keyframe = %x, want %x", s.Data, want)
	}
	s, _ = d.Next()
	if want := []byte{0, 0, 0, 1, 0x41, 0xBB, 0xCC, 0, 0, 0, 1, 0x41, 0xBB, 0xCC}; !bytes.Equal(s.Data, want) {
		t.Errorf("slice = %x, want %x", s.Data, want)
	}
}

func TestParse_InterleavesOtherTracks(t *testing.T) {
	audio := mocks.MP4Track{
		Media:     "audio",
		Timescale: 48000,
		Samples: []mocks.MP4Sample{
			{Data: []byte{9}, Dur: 1024, Sync: true},
			{Data: []byte{9}, Dur: 1024, Sync: true},
		},
	}
	data, err := mocks.FragmentedMP4(audio, videoTrack("av01",
		mocks.MP4Sample{Data: []byte{1}, Dur: 3000, Sync: true},
	))
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}

	d, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := d.Video().Index; got != 1 {
		t.Errorf("video index = %d, want 1", got)
	}
	if len(d.Tracks()) != 2 || d.Tracks()[0].Video {
		t.Errorf("tracks = %+v", d.Tracks())
	}

	var audioSamples, videoSamples int
	for {
		s, err := d.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if s.TrackIndex == 1 {
			videoSamples++
		} else {
			audioSamples++
		}
	}
	if audioSamples != 2 || videoSamples != 1 {
		t.Errorf("audio %d, video %d samples", audioSamples, videoSamples)
	}
}

func TestParse_NoVideoTrack(t *testing.T) {
	data, err := mocks.FragmentedMP4(mocks.MP4Track{
		Media:     "audio",
		Timescale: 48000,
		Samples:   []mocks.MP4Sample{{Data: []byte{1}, Dur: 1024, Sync: true}},
	})
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}

	if _, err := Parse(data); !errors.Is(err, ports.ErrVideoStreamNotFound) {
		t.Errorf("err = %v, want ErrVideoStreamNotFound", err)
	}
}

func TestParse_Garbage(t *testing.T) {
	if _, err := Parse([]byte("definitely not an mp4 file")); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestToAnnexB_TruncatedNALU(t *testing.T) {
	in := []byte{0, 0, 0, 2, 0x41, 0x01, 0, 0, 0, 9, 0x41}
	got := toAnnexB(in, []byte{0, 0, 0, 1, 0x67}, false)
	if want := []byte{0, 0, 0, 1, 0x41, 0x01}; !bytes.Equal(got, want) {
		t.Errorf("toAnnexB = %x, want %x", got, want)
	}
}
