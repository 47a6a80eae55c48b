// Package filesink provides a file-based snapshot sink implementation.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/user/vidloop/pkg/ports"
)

// Sink saves snapshots to files.
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
	format   ports.ImageFormat
	quality  int
}

// New creates a new file Sink writing images in the given format.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer, format ports.ImageFormat, quality int) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
		format:   format,
		quality:  quality,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveSnapshot encodes img and writes it as snapshot-NNNN.<ext>.
func (s *Sink) SaveSnapshot(index int, img image.Image) error {
	if err := s.fs.MkdirAll(s.baseDir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, s.format, s.quality)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	path := filepath.Join(s.baseDir, fmt.Sprintf("snapshot-%04d.%s", index, s.format.Extension()))
	return s.fs.WriteFile(path, data)
}

// SaveInfo writes info.json describing the source.
func (s *Sink) SaveInfo(data []byte) error {
	if err := s.fs.MkdirAll(s.baseDir); err != nil {
		return err
	}
	return s.fs.WriteFile(filepath.Join(s.baseDir, "info.json"), data)
}

// Ensure Sink implements ports.SnapshotSink
var _ ports.SnapshotSink = (*Sink)(nil)
