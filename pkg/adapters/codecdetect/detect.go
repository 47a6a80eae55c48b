// Package codecdetect identifies the video codec of an MP4 track from its sample entry.
package codecdetect

import (
	"github.com/Eyevinn/mp4ff/mp4"
)

// Codec represents a video codec type.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecAV1     Codec = "av1"
	CodecHEVC    Codec = "hevc"
	CodecUnknown Codec = "unknown"
)

// Decodable reports whether a pure-Go session has a decoder for the codec.
func (c Codec) Decodable() bool {
	return c == CodecH264 || c == CodecAV1
}

// IsVideo reports whether trak is a video track.
func IsVideo(trak *mp4.TrakBox) bool {
	return trak != nil && trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide"
}

// FromTrack returns the codec of a video track, or CodecUnknown for other tracks.
func FromTrack(trak *mp4.TrakBox) Codec {
	if !IsVideo(trak) {
		return CodecUnknown
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return CodecUnknown
	}

	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		if c := FromSampleEntry(child.Type()); c != CodecUnknown {
			return c
		}
	}
	return CodecUnknown
}

// FromSampleEntry maps a sample entry four-character code to a codec.
func FromSampleEntry(fourCC string) Codec {
	switch fourCC {
	case "avc1", "avc3":
		return CodecH264
	case "av01":
		return CodecAV1
	case "hvc1", "hev1":
		return CodecHEVC
	default:
		return CodecUnknown
	}
}
