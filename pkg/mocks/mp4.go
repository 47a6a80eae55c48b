package mocks

import (
	"bytes"
	"fmt"

	"github.com/Eyevinn/mp4ff/mp4"
)

// MP4Track describes one track of a generated fragmented MP4.
type MP4Track struct {
	// Media is "video" or "audio".
	Media     string
	FourCC    string
	Width     int
	Height    int
	Timescale uint32
	Samples   []MP4Sample
}

// MP4Sample is one sample of a generated track.
type MP4Sample struct {
	Data []byte
	Dur  uint32
	CTO  int32
	Sync bool
}

// FragmentedMP4 encodes an init segment followed by one fragment per track.
func FragmentedMP4(tracks ...MP4Track) ([]byte, error) {
	init := mp4.CreateEmptyInit()
	for _, t := range tracks {
		init.AddEmptyTrack(t.Timescale, t.Media, "und")
		trak := init.Moov.Traks[len(init.Moov.Traks)-1]
		if t.Media == "video" {
			entry := mp4.CreateVisualSampleEntryBox(t.FourCC, uint16(t.Width), uint16(t.Height), nil)
			trak.Mdia.Minf.Stbl.Stsd.AddChild(entry)
		}
	}

	var buf bytes.Buffer
	if err := init.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode init: %w", err)
	}

	for i, t := range tracks {
		trackID := init.Moov.Traks[i].Tkhd.TrackID
		frag, err := mp4.CreateFragment(uint32(i+1), trackID)
		if err != nil {
			return nil, fmt.Errorf("create fragment: %w", err)
		}

		var dts uint64
		for _, s := range t.Samples {
			flags := mp4.NonSyncSampleFlags
			if s.Sync {
				flags = mp4.SyncSampleFlags
			}
			frag.AddFullSample(mp4.FullSample{
				Sample: mp4.Sample{
					Flags:                 flags,
					Dur:                   s.Dur,
					Size:                  uint32(len(s.Data)),
					CompositionTimeOffset: s.CTO,
				},
				DecodeTime: dts,
				Data:       s.Data,
			})
			dts += uint64(s.Dur)
		}
		if err := frag.Encode(&buf); err != nil {
			return nil, fmt.Errorf("encode fragment: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// AVCSample wraps NAL units in 4-byte length prefixes.
func AVCSample(nalus ...[]byte) []byte {
	var out []byte
	for _, n := range nalus {
		l := len(n)
		out = append(out, byte(l>>24), byte(l>>16), byte(l>>8), byte(l))
		out = append(out, n...)
	}
	return out
}
