// Package cmd wires the cobra root command: load config, stand up
// logging/metrics/scheduler, build the per-channel C1-C7 runtime and
// the C9 dispatch hub, start the KISS/AGW/monitor listeners, and
// block until a shutdown signal — grounded on the teacher's
// cmd/root.go (NewCommand/runRoot, setupLogger, setupScheduler,
// startBackgroundServices, setupShutdownHandlers).
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"

	"github.com/doismellburning/samoyed/internal/agw"
	"github.com/doismellburning/samoyed/internal/ax25"
	"github.com/doismellburning/samoyed/internal/channel"
	"github.com/doismellburning/samoyed/internal/config"
	"github.com/doismellburning/samoyed/internal/dedupe"
	"github.com/doismellburning/samoyed/internal/digipeater"
	"github.com/doismellburning/samoyed/internal/dispatch"
	"github.com/doismellburning/samoyed/internal/fanout"
	"github.com/doismellburning/samoyed/internal/kiss"
	"github.com/doismellburning/samoyed/internal/logging"
	"github.com/doismellburning/samoyed/internal/metrics"
	"github.com/doismellburning/samoyed/internal/monitor"
	"github.com/doismellburning/samoyed/internal/scheduler"
	"github.com/doismellburning/samoyed/internal/txqueue"
)

// NewCommand builds the root cobra command.
func NewCommand(version, commit string) *cobra.Command {
	var configPath string
	c := &cobra.Command{
		Use:     "samoyed",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoot(cmd, configPath)
		},
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	c.Flags().StringVarP(&configPath, "config", "c", "samoyed.yaml", "path to the YAML configuration file")
	return c
}

const dedupeDefaultTTL = 30 * time.Second
const dedupeDefaultMaxLen = 4096
const dedupeSweepInterval = 5 * time.Second

func runRoot(cmd *cobra.Command, configPath string) error {
	ctx := cmd.Context()
	fmt.Printf("samoyed - %s (%s)\n", cmd.Annotations["version"], cmd.Annotations["commit"])

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logging.New(cfg.LogLevel, logging.FileOptions{})
	logging.SetDefault(log)

	sched, err := scheduler.New()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	m := metrics.New()
	startBackgroundServices(cfg, log)

	rt, err := buildRuntime(cfg, sched, log, m)
	if err != nil {
		return err
	}

	sched.Start()

	for _, ch := range rt.channels {
		go ch.Run(ctx)
	}

	listeners, err := startListeners(ctx, cfg, rt, log)
	if err != nil {
		rt.shutdown()
		return err
	}

	setupShutdownHandlers(rt, sched, listeners, log)
	return nil
}

// startBackgroundServices starts the Prometheus metrics server in the
// background, mirroring the teacher's same-named helper.
func startBackgroundServices(cfg *config.Config, log *slog.Logger) {
	go func() {
		if err := metrics.CreateMetricsServer(cfg.Metrics); err != nil {
			log.Error("failed to start metrics server", "error", err)
		}
	}()
}

// runtime holds every long-lived collaborator built from Config, so
// shutdown can tear them down in one place.
type runtime struct {
	channels    map[string]*channel.Channel
	channelByIx []*channel.Channel
	hub         *dispatch.Hub
	fanout      fanout.Fanout
	dedupes     map[int]*dedupe.Cache
	metrics     *metrics.Metrics
}

func (rt *runtime) shutdown() {
	rt.hub.Shutdown()
	for _, ch := range rt.channels {
		ch.Shutdown()
	}
	if rt.fanout != nil {
		_ = rt.fanout.Close()
	}
}

func mapPreempt(p config.Preempt) digipeater.Preempt {
	switch p {
	case config.PreemptDrop:
		return digipeater.PreemptDrop
	case config.PreemptMark:
		return digipeater.PreemptMark
	case config.PreemptTrace:
		return digipeater.PreemptTrace
	default:
		return digipeater.PreemptOff
	}
}

// buildRuntime constructs the dispatch hub, per-channel runtime
// objects, the digipeater engine, and the dedupe caches it needs —
// the equivalent of the teacher's initializeServers, generalized from
// "one server per DMR transport" to "one Channel per configured radio
// channel plus one shared dispatch Hub".
func buildRuntime(cfg *config.Config, sched gocron.Scheduler, log *slog.Logger, m *metrics.Metrics) (*runtime, error) {
	nameToIndex := make(map[string]int, len(cfg.Channels))
	for i, chCfg := range cfg.Channels {
		nameToIndex[chCfg.Name] = i
	}

	dedupes := make(map[int]*dedupe.Cache, len(cfg.Channels))
	dedupeFor := func(toChan int) *dedupe.Cache {
		c, ok := dedupes[toChan]
		if !ok {
			c = dedupe.New(dedupeDefaultTTL, dedupeDefaultMaxLen)
			dedupes[toChan] = c
		}
		return c
	}

	var directions []digipeater.Direction
	for _, d := range cfg.Digipeater {
		fromIdx, toIdx := nameToIndex[d.FromChan], nameToIndex[d.ToChan]
		dir := digipeater.Direction{
			FromChan:   fromIdx,
			ToChan:     toIdx,
			Enabled:    true,
			MyCallRecv: cfg.Channels[fromIdx].MyCallRecv,
			MyCallXmit: cfg.Channels[toIdx].MyCallXmit,
			Preempt:    mapPreempt(d.Preempt),
			ATGPPrefix: d.ATGPPrefix,
			Regen:      d.Regen,
		}
		if d.AliasRegex != "" {
			re, err := regexp.Compile(d.AliasRegex)
			if err != nil {
				return nil, fmt.Errorf("digipeater alias regex %q: %w", d.AliasRegex, err)
			}
			dir.Alias = re
		}
		if d.WideRegex != "" {
			re, err := regexp.Compile(d.WideRegex)
			if err != nil {
				return nil, fmt.Errorf("digipeater wide regex %q: %w", d.WideRegex, err)
			}
			dir.Wide = re
		}
		directions = append(directions, dir)
	}

	engine := digipeater.New(directions, dedupeFor, log)
	hub := dispatch.New(log, dispatch.WithDigipeater(engine), dispatch.WithMetrics(m))

	fanoutClient, err := fanout.New(context.Background(), cfg.Fanout)
	if err != nil {
		return nil, fmt.Errorf("failed to build fanout: %w", err)
	}

	rt := &runtime{
		channels:    make(map[string]*channel.Channel, len(cfg.Channels)),
		channelByIx: make([]*channel.Channel, len(cfg.Channels)),
		hub:         hub,
		fanout:      fanoutClient,
		dedupes:     dedupes,
		metrics:     m,
	}

	sweepInterval := dedupeSweepInterval
	if cfg.Scheduler.SweepInterval != "" {
		d, err := time.ParseDuration(cfg.Scheduler.SweepInterval)
		if err != nil {
			return nil, fmt.Errorf("scheduler sweep_interval %q: %w", cfg.Scheduler.SweepInterval, err)
		}
		sweepInterval = d
	}

	for i, chCfg := range cfg.Channels {
		ch := channel.New(i, chCfg, hub, log, channel.WithMetrics(m))
		rt.channels[chCfg.Name] = ch
		rt.channelByIx[i] = ch

		cache := dedupeFor(i)
		if err := scheduler.ScheduleDedupeSweep(sched, chCfg.Name, cache, sweepInterval, log); err != nil {
			return nil, err
		}
	}

	return rt, nil
}

// listenerSet holds the host-facing listeners so shutdown can close
// them cleanly.
type listenerSet struct {
	kiss    *kiss.Listener
	agw     *agw.Listener
	monitor *http.Server
}

func (ls *listenerSet) shutdown(ctx context.Context) {
	if ls.kiss != nil {
		_ = ls.kiss.Close()
	}
	if ls.agw != nil {
		_ = ls.agw.Close()
	}
	if ls.monitor != nil {
		_ = ls.monitor.Shutdown(ctx)
	}
}

// startListeners starts the KISS TCP listener, the AGW listener (if
// enabled), and the monitor WebSocket endpoint (if enabled), wiring
// each accepted client into the dispatch hub's fan-out and the
// channel's transmit queue.
func startListeners(ctx context.Context, cfg *config.Config, rt *runtime, log *slog.Logger) (*listenerSet, error) {
	ls := &listenerSet{}

	if cfg.KISS.TCPBind != "" {
		l, err := kiss.ListenTCP(cfg.KISS.TCPBind, log, kiss.WithListenerMetrics(rt.metrics))
		if err != nil {
			return nil, fmt.Errorf("failed to start KISS listener: %w", err)
		}
		ls.kiss = l
		go func() {
			if err := l.Serve(ctx, func(client *kiss.Client) {
				handleKISSClient(ctx, client, rt, log)
			}); err != nil {
				log.Warn("kiss: listener stopped", "error", err)
			}
		}()
	}

	if cfg.AGW.Enabled {
		addr := cfg.AGW.Bind
		if addr == "" {
			addr = agw.DefaultAddr
		}
		l, err := agw.ListenTCP(addr, log)
		if err != nil {
			return nil, fmt.Errorf("failed to start AGW listener: %w", err)
		}
		ls.agw = l
		go func() {
			if err := l.Serve(ctx, func(client *agw.Client) {
				handleAGWClient(ctx, client, rt, log)
			}); err != nil {
				log.Warn("agw: listener stopped", "error", err)
			}
		}()
	}

	if cfg.Monitor.Enabled && rt.fanout != nil {
		h := monitor.NewHandler(rt.fanout, log)
		// Every frame the hub delivers is republished on its channel's
		// topic, which is what the monitor handlers subscribe to.
		feed := rt.hub.RegisterClient("monitor", true)
		go func() {
			for d := range feed.Frames {
				if d.Chan < 0 || d.Chan >= len(rt.channelByIx) {
					continue
				}
				if err := rt.fanout.Publish("chan:"+rt.channelByIx[d.Chan].Name, d.Packet.ToBytes()); err != nil {
					log.Debug("monitor: publish failed", "error", err)
				}
			}
		}()
		mux := http.NewServeMux()
		for name := range rt.channels {
			topic := "chan:" + name
			mux.HandleFunc("/monitor/"+name, h.ServeTopic(topic))
		}
		const readHeaderTimeout = 3 * time.Second
		srv := &http.Server{Addr: cfg.Monitor.Bind, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
		ls.monitor = srv
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("monitor: server stopped", "error", err)
			}
		}()
	}

	return ls, nil
}

// handleKISSClient registers a KISS client for fan-out delivery and
// runs its read loop, pushing host-submitted DATA frames onto the
// addressed channel's transmit queue.
func handleKISSClient(ctx context.Context, client *kiss.Client, rt *runtime, log *slog.Logger) {
	handle := rt.hub.RegisterClient(clientName("kiss", client), true)
	defer rt.hub.UnregisterClient(handle.Name)

	go func() {
		for d := range handle.Frames {
			if err := client.Send(d.Chan, kiss.CmdData, d.Packet.ToBytes()); err != nil {
				return
			}
		}
	}()

	err := client.Run(ctx, func(c *kiss.Client, f kiss.Frame) {
		if f.Command != kiss.CmdData {
			return
		}
		if f.Chan < 0 || f.Chan >= len(rt.channelByIx) {
			return
		}
		rt.channelByIx[f.Chan].Enqueue(txqueue.Entry{Payload: f.Payload, Priority: txqueue.HI})
	})
	if err != nil {
		log.Debug("kiss: client disconnected", "client", handle.Name, "error", err)
	}
}

// handleAGWClient registers an AGW client for fan-out delivery and
// runs its read loop, pushing host-submitted raw/UI frames onto the
// addressed channel's transmit queue.
func handleAGWClient(ctx context.Context, client *agw.Client, rt *runtime, log *slog.Logger) {
	handle := rt.hub.RegisterClient(clientName("agw", client), true)
	defer rt.hub.UnregisterClient(handle.Name)

	go func() {
		for d := range handle.Frames {
			f := agw.Frame{
				Port:     byte(d.Chan),
				Kind:     agw.KindUIFrame,
				CallFrom: d.Packet.Addrs[ax25.Source].String(),
				Data:     d.Packet.ToBytes(),
			}
			if err := client.Send(f); err != nil {
				return
			}
		}
	}()

	err := client.Run(ctx, func(c *agw.Client, f agw.Frame) {
		if int(f.Port) < 0 || int(f.Port) >= len(rt.channelByIx) {
			return
		}
		rt.channelByIx[f.Port].Enqueue(txqueue.Entry{Payload: f.Data, Priority: txqueue.HI})
	})
	if err != nil {
		log.Debug("agw: client disconnected", "client", handle.Name, "error", err)
	}
}

var clientSeq struct {
	mu  sync.Mutex
	n   int
}

func clientName(proto string, _ any) string {
	clientSeq.mu.Lock()
	defer clientSeq.mu.Unlock()
	clientSeq.n++
	return fmt.Sprintf("%s-%d", proto, clientSeq.n)
}

// setupShutdownHandlers blocks until a termination signal arrives,
// then tears down listeners, channels, and the dispatch hub —
// grounded on the teacher's same-named function (signal wait, a
// WaitGroup of parallel teardown steps, a hard shutdown timeout).
func setupShutdownHandlers(rt *runtime, sched gocron.Scheduler, ls *listenerSet, log *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	sig := <-sigCh
	log.Error("shutting down due to signal", "signal", sig)

	// spec.md §5: threads must be joinable within a bounded time (<=2s)
	// on a clean shutdown.
	const timeout = 2 * time.Second

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	wg := new(sync.WaitGroup)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sched.StopJobs(); err != nil {
			log.Error("failed to stop scheduler jobs", "error", err)
		}
		if err := sched.Shutdown(); err != nil {
			log.Error("failed to stop scheduler", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ls.shutdown(shutdownCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		rt.shutdown()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()

	select {
	case <-done:
		log.Info("all servers stopped, shutting down gracefully")
		os.Exit(0)
	case <-time.After(timeout):
		log.Error("shutdown timed out, forcing exit")
		os.Exit(1)
	}
}
