package codecdetect

import (
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"
)

func TestFromSampleEntry(t *testing.T) {
	tests := []struct {
		fourCC string
		want   Codec
	}{
		{"avc1", CodecH264},
		{"avc3", CodecH264},
		{"av01", CodecAV1},
		{"hvc1", CodecHEVC},
		{"hev1", CodecHEVC},
		{"mp4a", CodecUnknown},
		{"", CodecUnknown},
	}
	for _, tt := range tests {
		if got := FromSampleEntry(tt.fourCC); got != tt.want {
			t.Errorf("FromSampleEntry(%q) = %s, want %s", tt.fourCC, got, tt.want)
		}
	}
}

func TestDecodable(t *testing.T) {
	if !CodecH264.Decodable() || !CodecAV1.Decodable() {
		t.Error("h264 and av1 should be decodable")
	}
	if CodecHEVC.Decodable() || CodecUnknown.Decodable() {
		t.Error("hevc and unknown should not be decodable")
	}
}

func TestFromTrack(t *testing.T) {
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(90000, "video", "und")
	trak := init.Moov.Traks[0]

	entry := mp4.CreateVisualSampleEntryBox("avc1", 320, 240, nil)
	trak.Mdia.Minf.Stbl.Stsd.AddChild(entry)

	if got := FromTrack(trak); got != CodecH264 {
		t.Errorf("FromTrack = %s, want h264", got)
	}
	if !IsVideo(trak) {
		t.Error("video track not recognised")
	}
}

func TestFromTrack_Audio(t *testing.T) {
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(48000, "audio", "und")

	if got := FromTrack(init.Moov.Traks[0]); got != CodecUnknown {
		t.Errorf("FromTrack(audio) = %s, want unknown", got)
	}
	if IsVideo(init.Moov.Traks[0]) {
		t.Error("audio track reported as video")
	}
}
