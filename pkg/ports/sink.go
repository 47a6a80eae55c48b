package ports

import (
	"image"
)

// SnapshotSink stores still images taken from the playing video.
type SnapshotSink interface {
	// Enabled returns true if the sink keeps what it is given.
	Enabled() bool

	// SaveSnapshot saves the snapshot with the given sequence number.
	SaveSnapshot(index int, img image.Image) error

	// SaveInfo saves a JSON description of the source next to the snapshots.
	SaveInfo(data []byte) error
}
