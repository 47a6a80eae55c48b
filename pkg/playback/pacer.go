package playback

import "time"

// Pacer computes how long to hold a frame so frames are released at the rate
// their timestamps describe. It is owned by the decode goroutine.
//
// Timestamps are grouped into epochs. The loop starts a new epoch whenever it
// rewinds the source, and the first frame of an epoch re-anchors the pacer
// instead of being measured against the previous epoch's last frame.
type Pacer struct {
	epoch    uint64
	anchored bool
	lastPos  time.Duration
	lastWall time.Time
}

// Wait returns how long to sleep before publishing a frame at pos.
func (p *Pacer) Wait(epoch uint64, pos time.Duration, now time.Time) time.Duration {
	if !p.anchored || epoch != p.epoch {
		p.reset(epoch)
		return 0
	}
	delay := pos - p.lastPos
	elapsed := now.Sub(p.lastWall)
	if elapsed < delay {
		return delay - elapsed
	}
	return 0
}

// Mark records that the frame at pos was published at now.
func (p *Pacer) Mark(pos time.Duration, now time.Time) {
	p.anchored = true
	p.lastPos = pos
	p.lastWall = now
}

func (p *Pacer) reset(epoch uint64) {
	p.epoch = epoch
	p.anchored = false
	p.lastPos = 0
	p.lastWall = time.Time{}
}
