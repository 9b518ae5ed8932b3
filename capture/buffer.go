// Package capture bridges asynchronous camera driver callbacks to a
// synchronous pull-based consumer. Its single-slot buffer always prefers the
// freshest frame over buffering stale ones.
package capture

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
)

// latencySmoothing is the exponential moving average coefficient applied to
// each new latency sample.
const latencySmoothing = 0.8

// Stats are diagnostic counters for one stream.
type Stats struct {
	// Pushed counts every frame handed to the buffer.
	Pushed uint64
	// Dropped counts frames overwritten before a consumer drained them.
	Dropped uint64
}

// Buffer is a capacity-1 latest-wins handoff cell between producer threads
// (driver callbacks) and a consumer thread. It is not a queue: a push always
// succeeds and silently replaces any unconsumed frame.
type Buffer[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	frame   T
	has     bool
	closed  bool
	pushed  uint64
	dropped uint64

	latMu      sync.Mutex
	latency    float64 // nanoseconds
	hasLatency bool

	epoch atomic.Pointer[time.Time]

	clock  clock.Clock
	logger golog.Logger
}

// NewBuffer returns an empty buffer ready for one stream.
func NewBuffer[T any](logger golog.Logger) *Buffer[T] {
	b := &Buffer[T]{
		clock:  clock.New(),
		logger: logger,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Push stores frame, replacing any unconsumed one, wakes a single waiter, and
// returns the monotone frame count. Frames pushed after Close are discarded;
// the stream is tearing down.
func (b *Buffer[T]) Push(frame T) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		b.logger.Debugw("discarding frame pushed after close", "pushed", b.pushed)
		return b.pushed
	}
	if b.has {
		b.dropped++
		b.logger.Debugw("overwriting unconsumed frame", "dropped", b.dropped)
	}
	b.frame = frame
	b.has = true
	b.pushed++
	b.cond.Signal()
	return b.pushed
}

// PushAt pushes frame and records the span between captureEnd and now as a
// latency sample.
func (b *Buffer[T]) PushAt(frame T, captureEnd time.Time) uint64 {
	seq := b.Push(frame)
	b.RecordLatency(b.clock.Now().Sub(captureEnd))
	return seq
}

// TryPop removes and returns the held frame, if any.
func (b *Buffer[T]) TryPop() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var zero T
	if !b.has {
		return zero, false
	}
	frame := b.frame
	b.frame = zero
	b.has = false
	return frame, true
}

// Wait blocks until the next notification (a push or a close) and returns
// immediately if the buffer is already closed. It does not return a frame;
// callers must re-check with TryPop after waking, since the frame visible at
// wake time may already be gone.
func (b *Buffer[T]) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.cond.Wait()
}

// Pull blocks until a frame is available and returns it. It returns false
// once the buffer is closed and drained, signaling end of stream.
func (b *Buffer[T]) Pull() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		if b.has {
			frame := b.frame
			var zero T
			b.frame = zero
			b.has = false
			return frame, true
		}
		if b.closed {
			var zero T
			return zero, false
		}
		b.cond.Wait()
	}
}

// Close ends the stream and wakes every blocked waiter. Closing twice is a
// caller bug and panics, matching channel close semantics.
func (b *Buffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic("close of closed capture buffer")
	}
	b.closed = true
	b.cond.Broadcast()
	b.logger.Debugw("capture buffer closed", "pushed", b.pushed, "dropped", b.dropped)
}

// EstablishEpoch records ts as the stream epoch if none exists yet and returns
// the epoch actually in effect, so racing first-frame callers all observe the
// same reference point.
func (b *Buffer[T]) EstablishEpoch(ts time.Time) time.Time {
	for {
		if prev := b.epoch.Load(); prev != nil {
			return *prev
		}
		tsCopy := ts
		if b.epoch.CompareAndSwap(nil, &tsCopy) {
			return ts
		}
	}
}

// PresentationTime converts a capture timestamp into a presentation offset
// relative to the stream epoch, establishing the epoch from captureStart if
// this is the first frame.
func (b *Buffer[T]) PresentationTime(captureStart time.Time) time.Duration {
	return captureStart.Sub(b.EstablishEpoch(captureStart))
}

// RecordLatency folds span into the exponentially smoothed latency estimate.
// The first sample seeds the estimate.
func (b *Buffer[T]) RecordLatency(span time.Duration) {
	b.latMu.Lock()
	defer b.latMu.Unlock()
	sample := float64(span.Nanoseconds())
	if b.hasLatency {
		b.latency = b.latency*(1-latencySmoothing) + sample*latencySmoothing
	} else {
		b.latency = sample
		b.hasLatency = true
	}
}

// Latency returns the smoothed latency estimate; false until the first sample
// has been recorded.
func (b *Buffer[T]) Latency() (time.Duration, bool) {
	b.latMu.Lock()
	defer b.latMu.Unlock()
	if !b.hasLatency {
		return 0, false
	}
	return time.Duration(b.latency), true
}

// Stats returns a snapshot of the diagnostic counters.
func (b *Buffer[T]) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{Pushed: b.pushed, Dropped: b.dropped}
}
