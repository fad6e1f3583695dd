package cmd

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doismellburning/samoyed/internal/config"
	"github.com/doismellburning/samoyed/internal/digipeater"
	"github.com/doismellburning/samoyed/internal/metrics"
	"github.com/doismellburning/samoyed/internal/scheduler"
)

func TestMapPreemptTranslatesEveryVariant(t *testing.T) {
	cases := map[config.Preempt]digipeater.Preempt{
		config.PreemptOff:   digipeater.PreemptOff,
		config.PreemptDrop:  digipeater.PreemptDrop,
		config.PreemptMark:  digipeater.PreemptMark,
		config.PreemptTrace: digipeater.PreemptTrace,
		config.Preempt(""):  digipeater.PreemptOff,
	}
	for in, want := range cases {
		require.Equal(t, want, mapPreempt(in))
	}
}

func TestClientNameIsUniquePerCall(t *testing.T) {
	a := clientName("kiss", nil)
	b := clientName("kiss", nil)
	require.NotEqual(t, a, b)
}

func makeTestConfig() *config.Config {
	return &config.Config{
		LogLevel: config.LogLevelInfo,
		Channels: []config.ChannelConfig{
			{Name: "radio0", Medium: config.MediumAudio, Subchans: 1, MyCallRecv: "N0CALL-1", MyCallXmit: "N0CALL-1"},
		},
		Digipeater: []config.DigipeaterConfig{
			{FromChan: "radio0", ToChan: "radio0", WideRegex: `^WIDE[1-7]-[1-7]$`, Preempt: config.PreemptTrace},
		},
	}
}

func TestBuildRuntimeWiresOneChannelPerConfigEntry(t *testing.T) {
	cfg := makeTestConfig()
	sched, err := scheduler.New()
	require.NoError(t, err)
	log := slog.New(slog.NewTextHandler(testWriter{t}, nil))

	rt, err := buildRuntime(cfg, sched, log, metrics.New())
	require.NoError(t, err)
	require.Len(t, rt.channels, 1)
	require.Contains(t, rt.channels, "radio0")
	require.NotNil(t, rt.hub)

	rt.shutdown()
}

func TestBuildRuntimeRejectsInvalidAliasRegex(t *testing.T) {
	cfg := makeTestConfig()
	cfg.Digipeater[0].AliasRegex = "(unterminated"
	sched, err := scheduler.New()
	require.NoError(t, err)
	log := slog.New(slog.NewTextHandler(testWriter{t}, nil))

	_, err = buildRuntime(cfg, sched, log, metrics.New())
	require.Error(t, err)
}

// testWriter adapts *testing.T to io.Writer so slog output lands in
// the test log instead of stdout.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
