package playback

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/user/vidloop/pkg/metrics"
	"github.com/user/vidloop/pkg/ports"
)

// loop is the state owned by one run of the decode goroutine.
type loop struct {
	sess    ports.Session
	info    ports.StreamInfo
	mailbox *Mailbox
	clock   Clock
	metrics *metrics.Metrics
	logger  ports.Logger
	loops   *atomic.Uint64

	pacer Pacer
	epoch uint64
	// rewound is set by a rewind and cleared once a video packet decodes.
	rewound bool
}

// run reads, decodes, paces and publishes until ctx is cancelled or a
// step fails. It returns nil on cancellation and an *Error otherwise.
func (l *loop) run(ctx context.Context) error {
	for ctx.Err() == nil {
		pkt, err := l.sess.ReadPacket()
		if errors.Is(err, ports.ErrEndOfStream) {
			if l.rewound {
				return &Error{Kind: KindDoubleEOF, Err: ErrDoubleEOF}
			}
			if err := l.rewind(); err != nil {
				return &Error{Kind: KindRead, Op: "failure to rewind", Err: err}
			}
			continue
		}
		if err != nil {
			return &Error{Kind: KindRead, Op: "failure to read frame", Err: err}
		}

		if pkt.StreamIndex() != l.info.Index {
			pkt.Release()
			l.metrics.PacketDiscarded()
			continue
		}

		err = l.decode(ctx, pkt)
		pkt.Release()
		if err != nil {
			return err
		}
		l.rewound = false
	}
	return nil
}

// rewind seeks back to the start and begins a new pacing epoch.
func (l *loop) rewind() error {
	if err := l.sess.Rewind(); err != nil {
		return err
	}
	// TODO: drain the decoder before flushing so the reordered frames still
	// buffered at end of stream are shown instead of dropped.
	if err := l.sess.Flush(); err != nil {
		return err
	}
	l.epoch++
	l.rewound = true
	l.loops.Add(1)
	l.metrics.LoopRestarted()
	l.logger.Debug("End of stream, restarting (loop %d)", l.epoch)
	return nil
}

// decode submits pkt and publishes every frame the decoder returns for it.
func (l *loop) decode(ctx context.Context, pkt ports.Packet) error {
	if err := l.sess.SendPacket(pkt); err != nil {
		return &Error{Kind: KindDecode, Op: "error while sending a packet to the decoder", Err: err}
	}

	for ctx.Err() == nil {
		dst := l.mailbox.InFlight()
		err := l.sess.ReceiveFrame(dst)
		if errors.Is(err, ports.ErrNeedMoreInput) || errors.Is(err, ports.ErrEndOfStream) {
			return nil
		}
		if err != nil {
			return &Error{Kind: KindDecode, Op: "error while receiving a frame from the decoder", Err: err}
		}

		pos := l.info.TimeBase.Duration(dst.PTS)
		if wait := l.pacer.Wait(l.epoch, pos, l.clock.Now()); wait > 0 {
			if err := l.clock.Sleep(ctx, wait); err != nil {
				return nil
			}
			l.metrics.Slept(wait)
		}

		now := l.clock.Now()
		l.pacer.Mark(pos, now)
		l.mailbox.Publish(pos, now)
		l.metrics.FramePublished()
	}
	return nil
}
