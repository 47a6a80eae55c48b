// Package mp4demux reads compressed samples from progressive and fragmented MP4 files.
package mp4demux

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/vidloop/pkg/adapters/codecdetect"
	"github.com/user/vidloop/pkg/ports"
)

var (
	// ErrNoMovie is returned when the file has neither a moov box nor an init segment.
	ErrNoMovie = errors.New("mp4demux: no moov box found")

	// ErrNoSampleTable is returned when a track lacks the boxes needed to locate its samples.
	ErrNoSampleTable = errors.New("mp4demux: incomplete sample table")
)

// Track describes one track of the file.
type Track struct {
	// Index is the track's position in the moov box; samples carry it as their stream index.
	Index     int
	ID        uint32
	Video     bool
	Codec     codecdetect.Codec
	Width     int
	Height    int
	Timescale uint32
	// ParamSets holds the H.264 SPS and PPS in Annex B form.
	ParamSets []byte
}

// Sample is one compressed unit. Data for video H.264 samples is converted to Annex B.
type Sample struct {
	TrackIndex int
	Data       []byte
	DTS        int64
	PTS        int64
	Sync       bool
}

type sampleRef struct {
	track int
	data  []byte
	dts   uint64
	cto   int32
	sync  bool
	// offset orders progressive samples the way they are laid out in mdat.
	offset uint64
}

// Demuxer iterates the samples of a parsed file in storage order.
type Demuxer struct {
	tracks  []Track
	video   int
	samples []sampleRef
	next    int
}

// Parse decodes an MP4 file held in memory and indexes the samples of every track.
// It returns ports.ErrVideoStreamNotFound when the file has no video track.
func Parse(data []byte) (*Demuxer, error) {
	f, err := mp4.DecodeFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}

	d := &Demuxer{video: -1}
	if f.IsFragmented() {
		err = d.indexFragmented(f)
	} else {
		err = d.indexProgressive(f, data)
	}
	if err != nil {
		return nil, err
	}
	if d.video < 0 {
		return nil, ports.ErrVideoStreamNotFound
	}
	return d, nil
}

// Video returns the first video track.
func (d *Demuxer) Video() Track {
	return d.tracks[d.video]
}

// Tracks returns every track in moov order.
func (d *Demuxer) Tracks() []Track {
	return d.tracks
}

// Len returns the number of samples across all tracks.
func (d *Demuxer) Len() int {
	return len(d.samples)
}

// Next returns the next sample. It returns io.EOF after the last one.
func (d *Demuxer) Next() (Sample, error) {
	if d.next >= len(d.samples) {
		return Sample{}, io.EOF
	}
	ref := d.samples[d.next]
	d.next++

	s := Sample{
		TrackIndex: ref.track,
		Data:       ref.data,
		DTS:        int64(ref.dts),
		PTS:        int64(ref.dts) + int64(ref.cto),
		Sync:       ref.sync,
	}
	if t := d.tracks[ref.track]; t.Video && t.Codec == codecdetect.CodecH264 {
		s.Data = toAnnexB(ref.data, t.ParamSets, ref.sync)
	}
	return s, nil
}

// Rewind moves back to the first sample.
func (d *Demuxer) Rewind() {
	d.next = 0
}

func (d *Demuxer) addTracks(traks []*mp4.TrakBox) {
	for i, trak := range traks {
		t := Track{Index: i, Timescale: 1000}
		if trak.Tkhd != nil {
			t.ID = trak.Tkhd.TrackID
		}
		if trak.Mdia != nil && trak.Mdia.Mdhd != nil {
			t.Timescale = trak.Mdia.Mdhd.Timescale
		}
		if codecdetect.IsVideo(trak) {
			t.Video = true
			t.Codec = codecdetect.FromTrack(trak)
			describeVideo(&t, trak)
			if d.video < 0 {
				d.video = i
			}
		}
		d.tracks = append(d.tracks, t)
	}
}

func describeVideo(t *Track, trak *mp4.TrakBox) {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		entry, ok := child.(*mp4.VisualSampleEntryBox)
		if !ok {
			continue
		}
		t.Width = int(entry.Width)
		t.Height = int(entry.Height)
		if entry.AvcC != nil {
			t.ParamSets = paramSets(entry.AvcC.SPSnalus, entry.AvcC.PPSnalus)
		}
		return
	}
}

func (d *Demuxer) indexProgressive(f *mp4.File, data []byte) error {
	if f.Moov == nil {
		return ErrNoMovie
	}
	d.addTracks(f.Moov.Traks)

	for i, trak := range f.Moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
			continue
		}
		stbl := trak.Mdia.Minf.Stbl
		if stbl.Stsz == nil || stbl.Stsc == nil {
			if i == d.video {
				return fmt.Errorf("%w: track %d", ErrNoSampleTable, trak.Tkhd.TrackID)
			}
			continue
		}

		syncSamples := make(map[uint32]bool)
		if stbl.Stss != nil {
			for _, nr := range stbl.Stss.SampleNumber {
				syncSamples[nr] = true
			}
		}

		for nr := uint32(1); nr <= stbl.Stsz.SampleNumber; nr++ {
			offset, size, err := sampleLocation(stbl, nr)
			if err != nil {
				return fmt.Errorf("track %d sample %d: %w", trak.Tkhd.TrackID, nr, err)
			}
			if offset+uint64(size) > uint64(len(data)) {
				return fmt.Errorf("track %d sample %d: %w", trak.Tkhd.TrackID, nr, io.ErrUnexpectedEOF)
			}

			ref := sampleRef{
				track:  i,
				data:   data[offset : offset+uint64(size)],
				sync:   stbl.Stss == nil || syncSamples[nr],
				offset: offset,
			}
			if stbl.Stts != nil {
				ref.dts, _ = stbl.Stts.GetDecodeTime(nr)
			}
			if stbl.Ctts != nil {
				ref.cto = stbl.Ctts.GetCompositionTimeOffset(nr)
			}
			d.samples = append(d.samples, ref)
		}
	}

	sort.SliceStable(d.samples, func(a, b int) bool {
		return d.samples[a].offset < d.samples[b].offset
	})
	return nil
}

// sampleLocation returns the file offset and size of a progressive sample.
func sampleLocation(stbl *mp4.StblBox, sampleNr uint32) (uint64, uint32, error) {
	chunkNr, firstSampleInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(sampleNr))
	if err != nil {
		return 0, 0, fmt.Errorf("get chunk nr: %w", err)
	}

	var chunkOffset uint64
	switch {
	case stbl.Stco != nil:
		chunkOffset, err = stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return 0, 0, fmt.Errorf("get chunk offset: %w", err)
		}
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return 0, 0, fmt.Errorf("chunk nr %d out of range", chunkNr)
		}
		chunkOffset = stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return 0, 0, fmt.Errorf("%w: no stco or co64 box", ErrNoSampleTable)
	}

	offset := chunkOffset
	for s := uint32(firstSampleInChunk); s < sampleNr; s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
	}
	return offset, stbl.Stsz.GetSampleSize(int(sampleNr)), nil
}

func (d *Demuxer) indexFragmented(f *mp4.File) error {
	if f.Init == nil || f.Init.Moov == nil {
		return ErrNoMovie
	}
	d.addTracks(f.Init.Moov.Traks)

	byID := make(map[uint32]int, len(d.tracks))
	for _, t := range d.tracks {
		byID[t.ID] = t.Index
	}
	trexs := make(map[uint32]*mp4.TrexBox)
	if f.Init.Moov.Mvex != nil {
		for _, trex := range f.Init.Moov.Mvex.Trexs {
			trexs[trex.TrackID] = trex
		}
	}

	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				idx, ok := byID[traf.Tfhd.TrackID]
				if !ok {
					continue
				}
				samples, err := frag.GetFullSamples(trexs[traf.Tfhd.TrackID])
				if err != nil {
					return fmt.Errorf("get samples: %w", err)
				}
				for _, s := range samples {
					d.samples = append(d.samples, sampleRef{
						track: idx,
						data:  s.Data,
						dts:   s.DecodeTime,
						cto:   s.CompositionTimeOffset,
						sync:  s.IsSync(),
					})
				}
			}
		}
	}
	return nil
}
