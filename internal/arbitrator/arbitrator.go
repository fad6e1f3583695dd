// Package arbitrator implements C3, the multi-modem candidate
// arbitrator: within one channel, several sub-channels/slicers can
// decode the same over-the-air transmission. The arbitrator holds a
// short post-first-decode window during which duplicate candidates
// are collapsed to the single best copy before being forwarded to C9.
package arbitrator

import (
	"sync"
	"time"

	"github.com/doismellburning/samoyed/internal/ax25"
	"github.com/doismellburning/samoyed/internal/hdlc"
	"github.com/puzpuzpuz/xsync/v4"
)

// DefaultWindow is ~150ms, approximating the fastest AX.25 baud
// period's packet duration (spec.md §4.3).
const DefaultWindow = 150 * time.Millisecond

// Forward is called exactly once per arbitration window, with the
// best candidate decoded for that transmission.
type Forward func(chanNum int, best hdlc.Candidate)

// Arbitrator tracks one open window per (channel, dedup-key) and
// picks the best candidate when the window closes. Per spec.md §4.3,
// channels are independent of each other but dispatch order within a
// channel must match airtime (arrival) order — enforced by draining
// each channel's windows through one goroutine, sequentially, in the
// order they were opened.
type Arbitrator struct {
	window  time.Duration
	forward Forward

	channels *xsync.Map[int, *channelState]
}

// New builds an Arbitrator that calls forward when each window
// closes. window is typically DefaultWindow.
func New(window time.Duration, forward Forward) *Arbitrator {
	return &Arbitrator{
		window:   window,
		forward:  forward,
		channels: xsync.NewMap[int, *channelState](),
	}
}

type dedupKey struct {
	source, dest string
	infoHash     uint64
}

func keyFor(p *ax25.Packet) dedupKey {
	var h uint64 = 14695981039346656037 // FNV-1a offset basis
	for _, b := range p.Info {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return dedupKey{
		source:   p.Addrs[ax25.Source].Call,
		dest:     p.Addrs[ax25.Destination].Call,
		infoHash: h,
	}
}

type window struct {
	key      dedupKey
	deadline time.Time
	mu       sync.Mutex
	best     hdlc.Candidate
	bestPkt  *ax25.Packet
	have     bool
}

type channelState struct {
	mu      sync.Mutex
	pending map[dedupKey]*window
	closer  chan *window
	once    sync.Once
}

func (a *Arbitrator) chanState(chanNum int) *channelState {
	cs, _ := a.channels.LoadOrCompute(chanNum, func() (*channelState, bool) {
		return &channelState{
			pending: make(map[dedupKey]*window),
			closer:  make(chan *window, 256),
		}, false
	})
	cs.once.Do(func() {
		go a.drain(chanNum, cs)
	})
	return cs
}

// Submit feeds one decoded candidate (with its parsed packet) into the
// arbitrator for channel c.Chan. If this is the first candidate seen
// for its dedup key, it opens a new window; otherwise it is compared
// against the window's current best.
func (a *Arbitrator) Submit(c hdlc.Candidate, p *ax25.Packet) {
	if p == nil || len(p.Addrs) < 2 {
		return
	}
	cs := a.chanState(c.Chan)
	key := keyFor(p)

	cs.mu.Lock()
	w, ok := cs.pending[key]
	if !ok {
		w = &window{key: key, deadline: time.Now().Add(a.window)}
		cs.pending[key] = w
		cs.closer <- w
	}
	cs.mu.Unlock()

	w.mu.Lock()
	if !w.have || preferred(c, w.best) {
		w.best = c
		w.bestPkt = p
		w.have = true
	}
	w.mu.Unlock()
}

// drain processes one channel's windows strictly in open order,
// sleeping until each deadline before forwarding and opening the next.
func (a *Arbitrator) drain(chanNum int, cs *channelState) {
	for w := range cs.closer {
		if d := time.Until(w.deadline); d > 0 {
			time.Sleep(d)
		}
		cs.mu.Lock()
		delete(cs.pending, w.key)
		cs.mu.Unlock()

		w.mu.Lock()
		best, have := w.best, w.have
		w.mu.Unlock()

		if have && a.forward != nil {
			a.forward(chanNum, best)
		}
	}
}

// fecRank and retryRank implement the preference order from spec.md
// §4.3: fec_type il2p > fx25 > none, then retry_level NONE > ... >
// PASSALL, then earliest arrival (handled by "first wins ties" below).
func fecRank(f ax25.FECType) int {
	switch f {
	case ax25.FECIL2P:
		return 0
	case ax25.FECFX25:
		return 1
	default:
		return 2
	}
}

func retryRank(r ax25.RetryLevel) int {
	return int(r)
}

// preferred reports whether candidate beats current as the window's
// best copy. Strict improvement only — ties keep the earlier arrival.
func preferred(candidate, current hdlc.Candidate) bool {
	if fr, cr := fecRank(candidate.FECType), fecRank(current.FECType); fr != cr {
		return fr < cr
	}
	if fr, cr := retryRank(candidate.RetryLevel), retryRank(current.RetryLevel); fr != cr {
		return fr < cr
	}
	return false
}
