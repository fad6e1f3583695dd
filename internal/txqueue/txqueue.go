// Package txqueue implements C7, the per-channel transmit queue: two
// FIFO priority lanes (HI drained before LO), back-pressure dropping,
// and the P-persistence/slot-time wait the modulator applies between
// dequeue and PTT assert (bypassed for same-channel digipeats, the
// "fratricide" exception).
package txqueue

import (
	"context"
	"math/rand"
	"time"
)

// Priority selects which FIFO lane an entry is queued on.
type Priority int

const (
	HI Priority = iota
	LO
)

// Entry is one queued outbound frame.
type Entry struct {
	Payload    []byte
	Priority   Priority
	Fratricide bool // same-channel digipeat: bypass the P-persistence wait
}

// Stats exposes the queue's drop counters.
type Stats struct {
	DroppedHI uint64
	DroppedLO uint64
}

// Queue is one channel's transmit queue. Dequeue blocks until an
// entry is available or the queue is shut down, following the
// teacher's buffered-channel-plus-done-channel shutdown idiom.
type Queue struct {
	hi, lo chan Entry
	done   chan struct{}

	depth int
	stats Stats
	drop  chan struct{} // signals a counter increment, drained by caller optionally

	persistence int // 0-255, P-persistence probability numerator
	slotTime    time.Duration
	rnd         *rand.Rand

	// dcd reports whether the channel is currently busy (spec.md §4.1
	// "carrier-detect output"/§5 "TX wait uses P-persistence... if DCD
	// stays asserted"). Nil means no DCD source is wired, e.g. in unit
	// tests exercising the queue/persistence mechanics in isolation.
	dcd func() bool
	// txDelayMax bounds how long Wait defers to a busy channel before
	// falling back to plain CSMA re-roll regardless of DCD, per
	// spec.md §5's "configurable TXDELAY-max" escape hatch. Zero means
	// wait for DCD to clear indefinitely.
	txDelayMax time.Duration
}

// Option configures a Queue at construction.
type Option func(*Queue)

// WithDCD wires a channel-busy reader into the queue's P-persistence
// wait; dcd is polled between persistence rolls so a transmit never
// keys over an in-progress reception.
func WithDCD(dcd func() bool) Option {
	return func(q *Queue) { q.dcd = dcd }
}

// WithTXDelayMax sets the maximum time Wait defers to an asserted DCD
// before falling back to CSMA re-roll without regard to channel busy
// state, guarding against starvation under a stuck or noisy DCD.
func WithTXDelayMax(d time.Duration) Option {
	return func(q *Queue) { q.txDelayMax = d }
}

// New builds a Queue with the given per-lane depth, P-persistence
// value (0-255, per AX.25 KISS convention), and slot time.
func New(depth int, persistence int, slotTime time.Duration, opts ...Option) *Queue {
	q := &Queue{
		hi:          make(chan Entry, depth),
		lo:          make(chan Entry, depth),
		done:        make(chan struct{}),
		depth:       depth,
		persistence: persistence,
		slotTime:    slotTime,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push enqueues e on its priority lane, applying back-pressure: if the
// target lane is full, the oldest LO entry is dropped first, then the
// oldest HI entry, before the new one is admitted.
func (q *Queue) Push(e Entry) {
	lane := q.hi
	if e.Priority == LO {
		lane = q.lo
	}

	select {
	case lane <- e:
		return
	default:
	}

	if q.dropOldest(LO) {
		select {
		case lane <- e:
			return
		default:
		}
	}
	if q.dropOldest(HI) {
		select {
		case lane <- e:
			return
		default:
		}
	}
	// Both lanes are saturated and draining couldn't make room fast
	// enough (a concurrent consumer beat us to it) — drop the new
	// entry itself rather than block the submitter.
	if e.Priority == LO {
		q.stats.DroppedLO++
	} else {
		q.stats.DroppedHI++
	}
}

func (q *Queue) dropOldest(p Priority) bool {
	lane := q.hi
	if p == LO {
		lane = q.lo
	}
	select {
	case <-lane:
		if p == LO {
			q.stats.DroppedLO++
		} else {
			q.stats.DroppedHI++
		}
		return true
	default:
		return false
	}
}

// Dequeue blocks until an entry is available (HI before LO) or ctx is
// done or the queue is shut down.
func (q *Queue) Dequeue(ctx context.Context) (Entry, bool) {
	select {
	case e := <-q.hi:
		return e, true
	default:
	}
	select {
	case e := <-q.hi:
		return e, true
	case e := <-q.lo:
		return e, true
	case <-q.done:
		return Entry{}, false
	case <-ctx.Done():
		return Entry{}, false
	}
}

// Wait applies the DCD-gated P-persistence/slot-time wait between
// dequeue and PTT assert, unless e is a fratricidal same-channel
// digipeat, which bypasses the wait entirely (spec.md §4.7). While the
// channel reads busy, Wait holds off the persistence roll and just
// re-checks every slot time, up to txDelayMax; past that bound it
// falls back to the plain CSMA roll/re-roll regardless of DCD
// (spec.md §5).
func (q *Queue) Wait(ctx context.Context, e Entry) {
	if e.Fratricide {
		return
	}
	start := time.Now()
	for {
		if q.channelBusy() && (q.txDelayMax <= 0 || time.Since(start) < q.txDelayMax) {
			if !q.sleep(ctx, q.slotTime) {
				return
			}
			continue
		}
		if q.rnd.Intn(256) < q.persistence {
			return
		}
		if !q.sleep(ctx, q.slotTime) {
			return
		}
	}
}

// channelBusy reports whether the bound DCD source currently reads
// asserted; a nil source (no demodulator wired, e.g. in unit tests)
// reads as always clear.
func (q *Queue) channelBusy() bool {
	return q.dcd != nil && q.dcd()
}

// sleep blocks for d or until ctx/q.done fires, reporting which.
func (q *Queue) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	case <-q.done:
		return false
	}
}

// Stats returns a snapshot of the drop counters.
func (q *Queue) Stats() Stats {
	return q.stats
}

// Shutdown signals Dequeue/Wait callers to unblock.
func (q *Queue) Shutdown() {
	close(q.done)
}
