// Package digipeater implements C6, the APRS digipeater rule engine:
// alias matching, WIDEn-N decrement, pre-emptive digipeating, and the
// ATGP path-length hack, gated by a per-to_chan dedupe cache.
package digipeater

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/doismellburning/samoyed/internal/ax25"
	"github.com/doismellburning/samoyed/internal/dedupe"
)

// Preempt is the pre-emptive digipeating policy for one direction.
type Preempt int

const (
	PreemptOff Preempt = iota
	PreemptDrop
	PreemptMark
	PreemptTrace
)

func (p Preempt) String() string {
	switch p {
	case PreemptOff:
		return "OFF"
	case PreemptDrop:
		return "DROP"
	case PreemptMark:
		return "MARK"
	case PreemptTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// Filter evaluates an optional per-direction filter expression
// against a packet; nil means "accept everything".
type Filter func(p *ax25.Packet) bool

// Direction is one (from_chan, to_chan) digipeat rule, compiled once
// at config load and treated as read-only thereafter (spec.md §3).
type Direction struct {
	FromChan, ToChan int
	Enabled          bool
	MyCallRecv       string // mycall_rec[from_chan]
	MyCallXmit       string // mycall_xmit[to_chan]
	Alias            *regexp.Regexp
	Wide             *regexp.Regexp
	Preempt          Preempt
	ATGPPrefix       string
	Filter           Filter
	Regen            bool
}

// Outcome is one emitted digipeat hop, ready to be handed to C7.
type Outcome struct {
	Packet     *ax25.Packet
	ToChan     int
	SameChan   bool // true if ToChan == FromChan, routes to the HI queue
	RememberIn *dedupe.Cache
	Key        dedupe.Key
}

// Engine runs the digipeat algorithm across the configured directions
// for a received frame's from_chan.
type Engine struct {
	directions []Direction
	dedupeTTL  func(toChan int) *dedupe.Cache
	log        *slog.Logger
}

// New builds an Engine. dedupeFor returns the shared dedupe.Cache for
// a given output channel (one cache instance per to_chan, per
// spec.md §4.5 "Set semantics per to_chan").
func New(directions []Direction, dedupeFor func(toChan int) *dedupe.Cache, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{directions: directions, dedupeTTL: dedupeFor, log: log}
}

// Digipeat runs the algorithm for every enabled (from_chan, *) pair
// against one received packet, returning every emission. Same-channel
// directions are evaluated in a first pass and cross-channel ones in a
// second, so same-channel emissions come first in the result.
func (e *Engine) Digipeat(fromChan int, p *ax25.Packet) []Outcome {
	var out []Outcome
	for _, sameChan := range []bool{true, false} {
		for _, d := range e.directions {
			if !d.Enabled || d.FromChan != fromChan || (d.ToChan == d.FromChan) != sameChan {
				continue
			}
			if o, ok := e.digipeatOne(d, p); ok {
				out = append(out, o)
			}
		}
	}
	return out
}

func (e *Engine) digipeatOne(d Direction, p *ax25.Packet) (Outcome, bool) {
	if d.Filter != nil && !d.Filter(p) {
		return Outcome{}, false
	}

	r := p.FirstNotRepeated()
	if r < 0 {
		return Outcome{}, false
	}

	if p.Addrs[ax25.Source].String() == d.MyCallRecv {
		return Outcome{}, false
	}

	addrR := p.Addrs[r]

	// Explicit-me bypasses dedupe entirely (spec.md §4.6 step 4).
	if addrR.String() == d.MyCallRecv {
		dup := p.Dup()
		setCallXmit(dup, r, d.MyCallXmit)
		return e.emit(d, dup, nil), true
	}

	cache := e.dedupeTTL(d.ToChan)
	key := dedupe.KeyFor(d.ToChan, []byte(p.Addrs[ax25.Source].Call), []byte(p.Addrs[ax25.Destination].Call), p.Info)
	if cache != nil && cache.Seen(key) {
		e.log.Info("digipeat: suppressed by dedupe", "to_chan", d.ToChan)
		return Outcome{}, false
	}

	if d.Alias != nil && matches(d.Alias, addrR.Call) {
		dup := p.Dup()
		setCallXmit(dup, r, d.MyCallXmit)
		return e.emit(d, dup, cache, key), true
	}

	if d.Preempt != PreemptOff {
		if o, ok := e.preempt(d, p, r, cache, key); ok {
			return o, true
		}
	}

	if d.Wide != nil && matches(d.Wide, addrR.Call) {
		if o, ok := e.wideDecrement(d, p, r, cache, key); ok {
			return o, true
		}
	}

	return Outcome{}, false
}

func (e *Engine) preempt(d Direction, p *ax25.Packet, r int, cache *dedupe.Cache, key dedupe.Key) (Outcome, bool) {
	for r2 := r + 1; r2 < len(p.Addrs); r2++ {
		a := p.Addrs[r2]
		if a.H {
			continue
		}
		if a.String() != d.MyCallRecv && !(d.Alias != nil && matches(d.Alias, a.Call)) {
			continue
		}

		dup := p.Dup()
		dup.Addrs[r2].H = true
		setCallXmit(dup, r2, d.MyCallXmit)

		switch d.Preempt {
		case PreemptDrop:
			removeRange(dup, ax25.Repeater1, r2)
		case PreemptMark:
			for i := ax25.Repeater1; i < r2; i++ {
				dup.Addrs[i].H = true
			}
		case PreemptTrace:
			removeUnused(dup, ax25.Repeater1, r2)
		}

		return e.emit(d, dup, cache, key), true
	}
	return Outcome{}, false
}

func (e *Engine) wideDecrement(d Direction, p *ax25.Packet, r int, cache *dedupe.Cache, key dedupe.Key) (Outcome, bool) {
	addrR := p.Addrs[r]
	n := int(addrR.SSID)

	if d.ATGPPrefix != "" && strings.HasPrefix(addrR.Call, d.ATGPPrefix) && n >= 1 && n <= 7 {
		dup := p.Dup()
		removeUsed(dup)
		r = dup.FirstNotRepeated()
		if r < 0 {
			return Outcome{}, false
		}
		dup.Addrs[r].SSID--
		if dup.Addrs[r].SSID == 0 {
			dup.Addrs[r].H = false
		}
		newAddr, err := ax25.ParseAddress(d.MyCallXmit)
		if err != nil {
			return Outcome{}, false
		}
		newAddr.H = true
		if err := dup.InsertAddr(ax25.Repeater1, newAddr); err != nil {
			return Outcome{}, false
		}
		return e.emit(d, dup, cache, key), true
	}

	switch {
	case n == 0:
		return Outcome{}, false
	case n == 1:
		dup := p.Dup()
		setCallXmit(dup, r, d.MyCallXmit)
		dup.Addrs[r].H = true
		return e.emit(d, dup, cache, key), true
	case n <= 7: // n in [2,7]
		dup := p.Dup()
		dup.Addrs[r].SSID--
		if len(dup.Addrs) < ax25.MaxAddrs {
			newAddr, err := ax25.ParseAddress(d.MyCallXmit)
			if err != nil {
				return Outcome{}, false
			}
			newAddr.H = true
			if err := dup.InsertAddr(r, newAddr); err != nil {
				return Outcome{}, false
			}
		}
		return e.emit(d, dup, cache, key), true
	default: // SSID above 7 is not a WIDEn-N hop count
		return Outcome{}, false
	}
}

func (e *Engine) emit(d Direction, p *ax25.Packet, cache *dedupe.Cache, key ...dedupe.Key) Outcome {
	if cache != nil && len(key) > 0 {
		cache.Insert(key[0])
	}
	return Outcome{
		Packet:   p,
		ToChan:   d.ToChan,
		SameChan: d.ToChan == d.FromChan,
	}
}

func setCallXmit(p *ax25.Packet, pos int, callXmit string) {
	if pos < 0 || pos >= len(p.Addrs) {
		return
	}
	newAddr, err := ax25.ParseAddress(callXmit)
	if err != nil {
		return
	}
	newAddr.H = true
	p.Addrs[pos] = newAddr
}

// removeRange removes addresses at [from, to) (exclusive of to).
func removeRange(p *ax25.Packet, from, to int) {
	for i := to - 1; i >= from; i-- {
		p.RemoveAddr(i)
	}
}

// removeUnused removes addresses in [from, to) with H=0.
func removeUnused(p *ax25.Packet, from, to int) {
	for i := to - 1; i >= from; i-- {
		if i < len(p.Addrs) && !p.Addrs[i].H {
			p.RemoveAddr(i)
		}
	}
}

// removeUsed strips every already-used (H=1) repeater, the ATGP hack's
// "strip any already-used repeaters" step.
func removeUsed(p *ax25.Packet) {
	for i := len(p.Addrs) - 1; i >= ax25.Repeater1; i-- {
		if p.Addrs[i].H {
			p.RemoveAddr(i)
		}
	}
}

func matches(re *regexp.Regexp, s string) bool {
	if re == nil {
		return false
	}
	return re.MatchString(s)
}
