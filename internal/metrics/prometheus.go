// Package metrics exposes Prometheus collectors for the TNC's
// domain events, grounded on the teacher's internal/metrics package
// (a struct of collectors, a register() step, bare net/http serving
// promhttp.Handler()).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every collector the TNC publishes.
type Metrics struct {
	FramesReceivedTotal     *prometheus.CounterVec
	FramesRejectedTotal     *prometheus.CounterVec
	FixBitsAppliedTotal     *prometheus.CounterVec
	DigipeatedTotal         *prometheus.CounterVec
	DedupeSuppressedTotal   *prometheus.CounterVec
	DedupeCacheSize         *prometheus.GaugeVec
	TXQueueDroppedTotal     *prometheus.CounterVec
	TXQueueDepth            *prometheus.GaugeVec
	ArbitratorWindows       *prometheus.CounterVec
	KISSProtocolErrorsTotal prometheus.Counter
}

// New builds and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		FramesReceivedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tnc_frames_received_total",
			Help: "Frames delivered by the HDLC receiver per channel and FEC type",
		}, []string{"chan", "fec_type"}),
		FramesRejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tnc_frames_rejected_total",
			Help: "Candidates rejected for a bad FCS not protected by FEC",
		}, []string{"chan"}),
		FixBitsAppliedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tnc_fixbits_applied_total",
			Help: "Frames recovered by the fix-bits retry ladder, by retry level",
		}, []string{"chan", "retry_level"}),
		DigipeatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tnc_digipeated_total",
			Help: "Frames digipeated, by from-channel and to-channel",
		}, []string{"from_chan", "to_chan"}),
		DedupeSuppressedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tnc_dedupe_suppressed_total",
			Help: "Frames suppressed as duplicates by channel",
		}, []string{"chan"}),
		DedupeCacheSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tnc_dedupe_cache_size",
			Help: "Current number of entries in the dedupe cache per channel",
		}, []string{"chan"}),
		TXQueueDroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tnc_txqueue_dropped_total",
			Help: "Frames dropped from the transmit queue under back-pressure, by priority",
		}, []string{"chan", "priority"}),
		TXQueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tnc_txqueue_depth",
			Help: "Current transmit queue depth per channel and priority",
		}, []string{"chan", "priority"}),
		ArbitratorWindows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tnc_arbitrator_windows_total",
			Help: "Arbitration windows closed per channel",
		}, []string{"chan"}),
		KISSProtocolErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tnc_kiss_protocol_errors_total",
			Help: "Stray escape bytes dropped by the KISS decoder",
		}),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	prometheus.MustRegister(
		m.FramesReceivedTotal,
		m.FramesRejectedTotal,
		m.FixBitsAppliedTotal,
		m.DigipeatedTotal,
		m.DedupeSuppressedTotal,
		m.DedupeCacheSize,
		m.TXQueueDroppedTotal,
		m.TXQueueDepth,
		m.ArbitratorWindows,
		m.KISSProtocolErrorsTotal,
	)
}
