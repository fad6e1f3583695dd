// Package channel binds one configured radio channel's C1/C3/C7
// collaborators — HDLC receivers (one per sub-channel/slicer), the
// arbitrator that collapses their duplicate candidates, and the
// transmit queue that feeds PTT+audio-out — into a single runtime
// object, published once at startup and read-only thereafter
// (spec.md §3 "Channel data model"). Grounded on the teacher's
// internal/dmr/servers/*.MakeServer constructors, which assemble a
// protocol server's collaborators from Config the same way.
package channel

import (
	"context"
	"log/slog"
	"time"

	"github.com/doismellburning/samoyed/internal/arbitrator"
	"github.com/doismellburning/samoyed/internal/ax25"
	"github.com/doismellburning/samoyed/internal/config"
	"github.com/doismellburning/samoyed/internal/dispatch"
	"github.com/doismellburning/samoyed/internal/fec"
	"github.com/doismellburning/samoyed/internal/fec/fx25"
	"github.com/doismellburning/samoyed/internal/hdlc"
	"github.com/doismellburning/samoyed/internal/metrics"
	"github.com/doismellburning/samoyed/internal/platform"
	"github.com/doismellburning/samoyed/internal/txqueue"
)

const defaultSampleRate = 8000

// Channel is one configured radio channel's runtime state: the
// receive side (HDLC bit receivers feeding an Arbitrator that reports
// to the dispatch Hub) and the transmit side (a priority Queue drained
// by keying PTT around an audio-out write).
//
// The receive side's bit source — demodulating a live audio signal
// into the bit stream ProcessBit expects — is platform/DSP-specific
// and out of scope (spec.md Non-goals: "platform audio capture
// internals"); SubmitBit is the seam a demodulator plugs into.
type Channel struct {
	Name  string
	Index int

	receivers []*hdlc.Receiver
	scanners  []*fec.Scanner
	arb       *arbitrator.Arbitrator
	queue     *txqueue.Queue
	ptt       platform.PTT
	device    platform.AudioDevice

	metrics        *metrics.Metrics
	lastDroppedHI  uint64
	lastDroppedLO  uint64
	log            *slog.Logger
}

// Option configures a Channel at construction.
type Option func(*Channel)

// WithMetrics attaches the Prometheus collectors Run reports transmit
// queue drop counts against.
func WithMetrics(m *metrics.Metrics) Option {
	return func(ch *Channel) { ch.metrics = m }
}

// New builds a Channel from its configuration, wiring its receivers'
// emitted candidates through an Arbitrator to hub.Route.
func New(idx int, cfg config.ChannelConfig, hub *dispatch.Hub, log *slog.Logger, opts ...Option) *Channel {
	if log == nil {
		log = slog.Default()
	}

	ch := &Channel{
		Name:  cfg.Name,
		Index: idx,
		log:   log,
		ptt:   platform.NullPTT{},
	}
	for _, opt := range opts {
		opt(ch)
	}

	ch.arb = arbitrator.New(arbitrator.DefaultWindow, func(chanNum int, best hdlc.Candidate) {
		hub.Route(context.Background(), chanNum, best, nil)
	})

	subchans := cfg.Subchans
	if subchans < 1 {
		subchans = 1
	}
	ch.receivers = make([]*hdlc.Receiver, subchans)
	ch.scanners = make([]*fec.Scanner, subchans)
	fxCodecs := fx25.NewCodecs()
	for sub := 0; sub < subchans; sub++ {
		opts := hdlc.Options{
			Chan:    idx,
			Subchan: sub,
			Passall: cfg.Passall,
			FixBits: cfg.FixBits,
		}
		ch.receivers[sub] = hdlc.NewReceiver(opts, ch.onCandidate)
		ch.scanners[sub] = fec.NewScanner(idx, sub, fxCodecs, ch.onCandidate)
	}

	persistence := int(cfg.Persistence * 255)
	slotTime := time.Duration(cfg.SlotTimeMillis) * time.Millisecond
	txDelayMax := time.Duration(cfg.TXDelayMillis) * time.Millisecond
	const defaultQueueDepth = 64
	ch.queue = txqueue.New(defaultQueueDepth, persistence, slotTime,
		txqueue.WithDCD(ch.DCD),
		txqueue.WithTXDelayMax(txDelayMax),
	)

	switch cfg.Medium {
	case config.MediumDirewolfCompatFile:
		ch.device = platform.NewWAVSource(cfg.AudioDevice, false)
	default:
		ch.device = platform.NewNullAudioDevice(defaultSampleRate)
	}

	return ch
}

// onCandidate is the emit callback every sub-channel Receiver and
// fec.Scanner shares: it parses the candidate's payload and, on
// success, submits it to the channel's Arbitrator for duplicate-
// collapse. Receivers and scanners run in parallel over the same bit
// stream (spec.md §4.2's C1->C2->C3 flow), so the same channel, same
// airtime can surface more than one candidate here; the Arbitrator's
// fec_type preference ordering picks the best.
func (ch *Channel) onCandidate(c hdlc.Candidate) {
	p, err := ax25.FromBytes(c.Payload)
	if err != nil {
		ch.log.Debug("channel: candidate failed to parse as AX.25", "chan", ch.Name, "error", err)
		return
	}
	ch.arb.Submit(c, p)
}

// SubmitBit feeds one demodulated channel bit into sub-channel sub's
// HDLC receiver and its paired FEC scanner — C1 and C2 run in
// parallel over the same bit stream (spec.md §4.2), never diverting
// bits away from either. Real deployments wire this to a demodulator;
// bench tests call it directly with synthetic bit streams.
func (ch *Channel) SubmitBit(sub int, bit bool) {
	if sub < 0 || sub >= len(ch.receivers) {
		return
	}
	ch.receivers[sub].ProcessBit(bit)
	ch.scanners[sub].ProcessBit(bit)
}

// DCD reports whether any of the channel's sub-channel receivers is
// currently collecting bits into a frame — the channel-wide software
// carrier-detect signal the transmit queue's P-persistence wait gates
// on (spec.md §4.1, §5). One busy slicer is enough to call the whole
// channel busy: transmitting while any slicer is mid-frame still
// collides with whatever that slicer is hearing.
func (ch *Channel) DCD() bool {
	for _, r := range ch.receivers {
		if r.IsCollecting() {
			return true
		}
	}
	return false
}

// Enqueue pushes a host-submitted frame (from a KISS or AGW client)
// onto the channel's transmit queue.
func (ch *Channel) Enqueue(e txqueue.Entry) {
	ch.queue.Push(e)
}

// Stats returns the transmit queue's drop counters.
func (ch *Channel) Stats() txqueue.Stats {
	return ch.queue.Stats()
}

// Run drains the transmit queue until ctx is canceled, keying PTT and
// writing each entry's payload to the audio-out device around the
// queue's P-persistence wait. Modulating payload bytes into an audio
// waveform is, like demodulation, a DSP concern this core does not
// implement (spec.md Non-goals); Write is the seam a modulator plugs
// into.
func (ch *Channel) Run(ctx context.Context) {
	if err := ch.device.Start(); err != nil {
		ch.log.Warn("channel: audio device failed to start", "chan", ch.Name, "error", err)
	}
	defer ch.device.Stop()

	for {
		entry, ok := ch.queue.Dequeue(ctx)
		if !ok {
			return
		}
		ch.recordQueueStats()
		ch.queue.Wait(ctx, entry)

		if err := ch.ptt.Key(); err != nil {
			ch.log.Warn("channel: PTT key failed", "chan", ch.Name, "error", err)
			continue
		}
		if _, err := ch.device.Write(entry.Payload); err != nil {
			ch.log.Warn("channel: audio write failed", "chan", ch.Name, "error", err)
		}
		if err := ch.ptt.Unkey(); err != nil {
			ch.log.Warn("channel: PTT unkey failed", "chan", ch.Name, "error", err)
		}
	}
}

// recordQueueStats publishes the transmit queue's drop counters to
// the attached Prometheus collectors as deltas, since Stats reports
// cumulative counts but CounterVec.Add expects an increment.
func (ch *Channel) recordQueueStats() {
	if ch.metrics == nil {
		return
	}
	stats := ch.queue.Stats()
	if d := stats.DroppedHI - ch.lastDroppedHI; d > 0 {
		ch.metrics.TXQueueDroppedTotal.WithLabelValues(ch.Name, "hi").Add(float64(d))
		ch.lastDroppedHI = stats.DroppedHI
	}
	if d := stats.DroppedLO - ch.lastDroppedLO; d > 0 {
		ch.metrics.TXQueueDroppedTotal.WithLabelValues(ch.Name, "lo").Add(float64(d))
		ch.lastDroppedLO = stats.DroppedLO
	}
}

// Shutdown releases the channel's transmit queue.
func (ch *Channel) Shutdown() {
	ch.queue.Shutdown()
}
