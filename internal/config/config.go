// Package config holds the process-wide Config: loaded once at
// startup from a YAML file (with environment-variable overrides) and
// never mutated afterward — mirrored from the teacher's "publish
// read-only handles" configuration-singleton idiom.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level, fully-loaded configuration tree.
type Config struct {
	LogLevel   LogLevel           `yaml:"log_level"`
	Channels   []ChannelConfig    `yaml:"channels"`
	Digipeater []DigipeaterConfig `yaml:"digipeater"`
	KISS       KISSConfig         `yaml:"kiss"`
	AGW        AGWConfig          `yaml:"agw"`
	Metrics    MetricsConfig      `yaml:"metrics"`
	Scheduler  SchedulerConfig    `yaml:"scheduler"`
	Fanout     FanoutConfig       `yaml:"fanout"`
	Monitor    MonitorConfig      `yaml:"monitor"`
}

// MonitorConfig configures the optional read-only WebSocket endpoint
// that mirrors the raw-monitor stream for browser-based tools.
type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
}

// FanoutConfig selects the backend of the frame fan-out that feeds the
// monitor WebSocket endpoint. A zero value means in-memory,
// single-process fan-out.
type FanoutConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
}

// ChannelConfig describes one logical radio channel (spec.md §3
// Channel data model): its modem arrangement, callsigns, and
// transmit timing.
type ChannelConfig struct {
	Name          string  `yaml:"name"`
	Medium        Medium  `yaml:"medium"`
	Subchans      int     `yaml:"subchans"`
	MyCallRecv    string  `yaml:"mycall_recv"`
	MyCallXmit    string  `yaml:"mycall_xmit"`
	Passall       bool    `yaml:"passall"`
	FixBits       bool    `yaml:"fix_bits"`
	TXDelayMillis int     `yaml:"txdelay_ms"`
	Persistence   float64 `yaml:"persistence"`
	SlotTimeMillis int    `yaml:"slottime_ms"`
	TXTailMillis  int     `yaml:"txtail_ms"`
	AudioDevice   string  `yaml:"audio_device"`
}

// DigipeaterConfig describes one from-channel/to-channel digipeating
// direction (spec.md §4.6).
type DigipeaterConfig struct {
	FromChan    string  `yaml:"from_chan"`
	ToChan      string  `yaml:"to_chan"`
	AliasRegex  string  `yaml:"alias_regex"`
	WideRegex   string  `yaml:"wide_regex"`
	Preempt     Preempt `yaml:"preempt"`
	ATGPPrefix  string  `yaml:"atgp_prefix"`
	FilterExpr  string  `yaml:"filter_expr"`
	Regen       bool    `yaml:"regen"`
}

// KISSConfig configures the KISS host-facing transports.
type KISSConfig struct {
	TCPBind    string `yaml:"tcp_bind"`
	SerialPort string `yaml:"serial_port"`
	SerialBaud int    `yaml:"serial_baud"`
	PTYEnabled bool   `yaml:"pty_enabled"`
}

// AGWConfig configures the AGWPE host-facing transport.
type AGWConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
}

// MetricsConfig configures the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
	Port    int    `yaml:"port"`
}

// SchedulerConfig configures the dedupe-cache janitor cadence.
type SchedulerConfig struct {
	SweepInterval string `yaml:"sweep_interval"`
}

// Load reads and parses a YAML config file, then applies environment
// overrides (prefixed TNC_, matching the teacher's env-var precedence
// over file defaults).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnvOverrides(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return &c, nil
}

func applyEnvOverrides(c *Config) {
	if v := os.Getenv("TNC_LOG_LEVEL"); v != "" {
		c.LogLevel = LogLevel(v)
	}
	if v := os.Getenv("TNC_AGW_BIND"); v != "" {
		c.AGW.Bind = v
	}
	if v := os.Getenv("TNC_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Metrics.Port = port
		}
	}
	if v := os.Getenv("TNC_KISS_TCP_BIND"); v != "" {
		c.KISS.TCPBind = v
	}
}

// channelNames returns the set of configured channel names, used by
// Validate to check that digipeater directions reference real
// channels.
func (c Config) channelNames() map[string]bool {
	names := make(map[string]bool, len(c.Channels))
	for _, ch := range c.Channels {
		names[ch.Name] = true
	}
	return names
}

