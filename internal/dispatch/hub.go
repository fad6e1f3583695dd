// Package dispatch wires C1-C8 together: it is the central routing
// core that every decoded frame passes through on its way from a
// modem/KISS/AGW source to the digipeater, the host clients, and (in
// stub form) IGate/APRStt — grounded on the teacher's
// internal/dmr/hub package, which plays the same "servers register,
// hub routes" role for DMR traffic.
package dispatch

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/doismellburning/samoyed/internal/ax25"
	"github.com/doismellburning/samoyed/internal/dedupe"
	"github.com/doismellburning/samoyed/internal/digipeater"
	"github.com/doismellburning/samoyed/internal/hdlc"
	"github.com/doismellburning/samoyed/internal/metrics"
)

// Delivered is one decoded frame handed to a registered client.
type Delivered struct {
	Chan    int
	Packet  *ax25.Packet
	Candidate hdlc.Candidate
}

const clientChannelSize = 256

// clientEntry is the hub's bookkeeping for one registered fan-out
// client (a KISS or AGW connection).
type clientEntry struct {
	name      string
	monitor   bool // raw-monitor request as registered; not consulted by fanOut
	ch        chan Delivered
	done      chan struct{}
	closeOnce sync.Once
}

// Hub is the dispatch core. One Hub instance serves the whole process;
// channels register their digipeater Engine (if configured) with it.
type Hub struct {
	log *slog.Logger

	clients *xsync.Map[string, *clientEntry]

	digi *digipeater.Engine

	// aprsttChan, when non-negative, marks the virtual channel number
	// used for APRStt touch-tone decoding (spec.md §9 Open Question:
	// routed by subchan==-1 rather than a dedicated channel number).
	aprsttChan int32

	// igateChan, when >= 0, marks the virtual IGate channel: frames
	// arriving on it are fanned out to clients but never re-digipeated
	// or re-routed, matching spec.md's "stop if channel is the virtual
	// IGate channel" rule.
	igateChan int32

	stopping atomic.Bool

	metrics *metrics.Metrics
}

// Option configures a Hub at construction.
type Option func(*Hub)

// WithDigipeater attaches the digipeater engine frames get routed to.
func WithDigipeater(d *digipeater.Engine) Option {
	return func(h *Hub) { h.digi = d }
}

// WithIGateChannel marks toChan as the virtual IGate channel.
func WithIGateChannel(toChan int) Option {
	return func(h *Hub) { h.igateChan = int32(toChan) }
}

// WithMetrics attaches the Prometheus collectors Route and Digipeat
// outcomes are recorded against.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// New builds a Hub.
func New(log *slog.Logger, opts ...Option) *Hub {
	if log == nil {
		log = slog.Default()
	}
	h := &Hub{
		log:        log,
		clients:    xsync.NewMap[string, *clientEntry](),
		aprsttChan: -1,
		igateChan:  -1,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ClientHandle is returned by RegisterClient.
type ClientHandle struct {
	Name    string
	Frames  <-chan Delivered
}

// RegisterClient registers a KISS/AGW client under a unique name
// (e.g. its remote address) and returns a channel of frames destined
// for it. monitor is recorded on the client entry; fanOut does not
// consult it, so every client receives every accepted frame.
func (h *Hub) RegisterClient(name string, monitor bool) *ClientHandle {
	ce := &clientEntry{
		name:    name,
		monitor: monitor,
		ch:      make(chan Delivered, clientChannelSize),
		done:    make(chan struct{}),
	}
	h.clients.Store(name, ce)
	return &ClientHandle{Name: name, Frames: ce.ch}
}

// UnregisterClient removes a client and stops further delivery to it.
func (h *Hub) UnregisterClient(name string) {
	ce, ok := h.clients.LoadAndDelete(name)
	if ok {
		ce.closeOnce.Do(func() { close(ce.done) })
	}
}

// accepted reports whether a candidate is trustworthy enough to act
// on: either the CRC checked out clean, or the frame came through a
// forward-error-corrected path (FX.25/IL2P) whose own integrity check
// already vouches for it (spec.md C9: "gated on CRC validity / FEC
// type").
func accepted(c hdlc.Candidate) bool {
	if c.RetryLevel == ax25.RetryNone {
		return true
	}
	switch c.FECType {
	case ax25.FECFX25, ax25.FECIL2P:
		return true
	default:
		return false
	}
}

// Route processes one candidate frame received on fromChan: it
// pretty-prints (when logging at debug level), decodes for host
// delivery, fans it out to registered clients, and — unless it's on
// the virtual IGate channel — forwards it to the digipeater.
func (h *Hub) Route(ctx context.Context, fromChan int, c hdlc.Candidate, dedupeCache *dedupe.Cache) {
	chanLabel := strconv.Itoa(fromChan)

	if !accepted(c) {
		h.log.Debug("dispatch: rejected frame, CRC invalid and not FEC-protected", "chan", fromChan)
		if h.metrics != nil {
			h.metrics.FramesRejectedTotal.WithLabelValues(chanLabel).Inc()
		}
		return
	}

	p, err := ax25.FromBytes(c.Payload)
	if err != nil {
		h.log.Debug("dispatch: malformed AX.25 frame dropped", "chan", fromChan, "error", err)
		return
	}

	h.log.Debug("dispatch: frame", "chan", fromChan, "fec", c.FECType, "retry", c.RetryLevel, "dump", ax25.DumpPacket(p))
	if h.metrics != nil {
		h.metrics.FramesReceivedTotal.WithLabelValues(chanLabel, c.FECType.String()).Inc()
		if c.RetryLevel != ax25.RetryNone {
			h.metrics.FixBitsAppliedTotal.WithLabelValues(chanLabel, c.RetryLevel.String()).Inc()
		}
	}

	h.fanOut(fromChan, p, c)

	if atomic.LoadInt32(&h.igateChan) == int32(fromChan) {
		return
	}

	if c.Subchan == -1 {
		h.routeAPRStt(p)
		return
	}

	if h.digi != nil {
		for _, outcome := range h.digi.Digipeat(fromChan, p) {
			if outcome.RememberIn != nil {
				outcome.RememberIn.Insert(outcome.Key)
			}
			if h.metrics != nil {
				h.metrics.DigipeatedTotal.WithLabelValues(chanLabel, strconv.Itoa(outcome.ToChan)).Inc()
			}
			h.fanOut(outcome.ToChan, outcome.Packet, c)
		}
	}
}

// fanOut delivers a packet to every registered client, tagged with
// toChan. The clients' monitor flag is not consulted: every client
// receives every frame.
func (h *Hub) fanOut(toChan int, p *ax25.Packet, c hdlc.Candidate) {
	d := Delivered{Chan: toChan, Packet: p, Candidate: c}
	h.clients.Range(func(_ string, ce *clientEntry) bool {
		select {
		case ce.ch <- d:
		case <-ce.done:
		default:
			h.log.Warn("dispatch: client fan-out channel full, dropping frame", "client", ce.name)
		}
		return true
	})
}

// routeAPRStt is a stub: a full DTMF/touch-tone-to-APRS gateway is a
// Non-goal (spec.md Non-goals list "DTMF/APRStt text"), so we only log
// that a touch-tone frame arrived rather than decoding it.
func (h *Hub) routeAPRStt(p *ax25.Packet) {
	h.log.Info("dispatch: APRStt frame received, gateway not implemented", "source", p.Addrs[ax25.Source].String())
}

// Shutdown marks the hub as stopping and releases all registered
// clients' done channels so blocked senders and readers unwind.
func (h *Hub) Shutdown() {
	h.stopping.Store(true)
	h.clients.Range(func(_ string, ce *clientEntry) bool {
		ce.closeOnce.Do(func() { close(ce.done) })
		return true
	})
}
