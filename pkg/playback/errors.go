package playback

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned by Start and Load while the loop is running.
	ErrAlreadyRunning = errors.New("video is already running")

	// ErrNotLoaded is returned when stream properties are queried without a session.
	ErrNotLoaded = errors.New("playback: no video loaded")

	// ErrFailed is returned by Start after the loop failed and before Stop was called.
	ErrFailed = errors.New("playback: loop failed, stop before starting again")

	// ErrDoubleEOF is the cause of a KindDoubleEOF failure.
	ErrDoubleEOF = errors.New("end of file hit twice in a row, suggesting no data?")

	// ErrClosed is returned once the player has been closed.
	ErrClosed = errors.New("playback: player closed")
)

// Kind classifies playback errors.
type Kind int

const (
	// KindLoad covers allocation, unsupported codec, missing video stream and codec-open failures.
	KindLoad Kind = iota + 1
	// KindRead is a demuxer failure on the decode goroutine.
	KindRead
	// KindDecode is a decoder failure on the decode goroutine.
	KindDecode
	// KindDoubleEOF means the source produced no decodable data between two ends of stream.
	KindDoubleEOF
)

func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindRead:
		return "read"
	case KindDecode:
		return "decode"
	case KindDoubleEOF:
		return "double_eof"
	default:
		return "unknown"
	}
}

// Error is a playback failure with its kind and the step that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or 0 when err is not a playback error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
