package config_test

import (
	"testing"

	"github.com/doismellburning/samoyed/internal/config"
	"github.com/stretchr/testify/require"
)

func makeValidConfig() config.Config {
	return config.Config{
		LogLevel: config.LogLevelInfo,
		Channels: []config.ChannelConfig{
			{Name: "radio0", Medium: config.MediumAudio, Subchans: 1, MyCallRecv: "N0CALL-1"},
		},
		Digipeater: []config.DigipeaterConfig{
			{FromChan: "radio0", ToChan: "radio0", WideRegex: `^WIDE[1-7]-[1-7]$`, Preempt: config.PreemptTrace},
		},
		Metrics: config.MetricsConfig{Enabled: false},
	}
}

func TestValidConfigPasses(t *testing.T) {
	require.NoError(t, makeValidConfig().Validate())
}

func TestRejectsInvalidLogLevel(t *testing.T) {
	c := makeValidConfig()
	c.LogLevel = "verbose"
	require.ErrorIs(t, c.Validate(), config.ErrInvalidLogLevel)
}

func TestRejectsNoChannels(t *testing.T) {
	c := makeValidConfig()
	c.Channels = nil
	require.ErrorIs(t, c.Validate(), config.ErrNoChannels)
}

func TestRejectsDuplicateChannelNames(t *testing.T) {
	c := makeValidConfig()
	c.Channels = append(c.Channels, c.Channels[0])
	require.ErrorIs(t, c.Validate(), config.ErrDuplicateChannelName)
}

func TestRejectsUnknownDigipeaterChannel(t *testing.T) {
	c := makeValidConfig()
	c.Digipeater[0].ToChan = "nonexistent"
	require.ErrorIs(t, c.Validate(), config.ErrUnknownDigipeaterChan)
}

func TestRejectsInvalidWideRegex(t *testing.T) {
	c := makeValidConfig()
	c.Digipeater[0].WideRegex = "(unterminated"
	require.ErrorIs(t, c.Validate(), config.ErrInvalidWideRegex)
}

func TestMetricsValidationSkippedWhenDisabled(t *testing.T) {
	c := makeValidConfig()
	c.Metrics = config.MetricsConfig{Enabled: false}
	require.NoError(t, c.Validate())
}

func TestMetricsRequiresBindWhenEnabled(t *testing.T) {
	c := makeValidConfig()
	c.Metrics = config.MetricsConfig{Enabled: true, Port: 9090}
	require.ErrorIs(t, c.Validate(), config.ErrInvalidMetricsBind)
}
