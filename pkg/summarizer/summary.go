// Package summarizer describes a finished playback run.
package summarizer

import "time"

// Summary contains the data collected during one run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	// Source information
	Source SourceInfo

	// Playback counters
	Playback PlaybackInfo

	// Snapshot output, when the run wrote snapshots
	Snapshots *SnapshotInfo

	// Err is the playback error that ended the run, if any.
	Err string
}

// SourceInfo contains information about the played file.
type SourceInfo struct {
	Path     string
	Backend  string
	Codec    string
	Width    int
	Height   int
	TimeBase string
}

// PlaybackInfo contains what the decode loop reported.
type PlaybackInfo struct {
	SessionID       string
	FramesPublished uint64
	Loops           uint64
	Reloads         int
	Duration        time.Duration
	LastPosition    time.Duration
}

// SnapshotInfo contains the snapshot settings of a headless run.
type SnapshotInfo struct {
	Dir      string
	Format   string
	Interval time.Duration
	Count    int
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithSource sets source information.
func (b *Builder) WithSource(source SourceInfo) *Builder {
	b.summary.Source = source
	return b
}

// WithPlayback sets the playback counters.
func (b *Builder) WithPlayback(playback PlaybackInfo) *Builder {
	b.summary.Playback = playback
	return b
}

// WithSnapshots sets the snapshot output.
func (b *Builder) WithSnapshots(snapshots SnapshotInfo) *Builder {
	b.summary.Snapshots = &snapshots
	return b
}

// WithError records the error that ended the run. A nil error is ignored.
func (b *Builder) WithError(err error) *Builder {
	if err != nil {
		b.summary.Err = err.Error()
	}
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
