package config

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrInvalidLogLevel       = errors.New("invalid log level provided")
	ErrNoChannels            = errors.New("at least one channel must be configured")
	ErrChannelNameRequired   = errors.New("channel name is required")
	ErrDuplicateChannelName  = errors.New("duplicate channel name")
	ErrInvalidMedium         = errors.New("invalid channel medium provided")
	ErrInvalidSubchans       = errors.New("channel subchans must be >= 1")
	ErrMyCallRecvRequired    = errors.New("mycall_recv is required for a channel")
	ErrUnknownDigipeaterChan = errors.New("digipeater direction references an unconfigured channel")
	ErrInvalidAliasRegex     = errors.New("invalid digipeater alias regex")
	ErrInvalidWideRegex      = errors.New("invalid digipeater wide regex")
	ErrInvalidPreempt        = errors.New("invalid digipeater preempt policy")
	ErrInvalidMetricsPort    = errors.New("invalid metrics server port provided")
	ErrInvalidMetricsBind    = errors.New("invalid metrics server bind address provided")
)

// Validate validates one channel's configuration.
func (ch ChannelConfig) Validate() error {
	if ch.Name == "" {
		return ErrChannelNameRequired
	}
	if ch.Medium != MediumAudio && ch.Medium != MediumDirewolfCompatFile {
		return fmt.Errorf("%w: %q", ErrInvalidMedium, ch.Medium)
	}
	if ch.Subchans < 1 {
		return fmt.Errorf("%w: channel %q", ErrInvalidSubchans, ch.Name)
	}
	if ch.MyCallRecv == "" {
		return fmt.Errorf("%w: channel %q", ErrMyCallRecvRequired, ch.Name)
	}
	return nil
}

// Validate validates one digipeater direction against the set of
// known channel names.
func (d DigipeaterConfig) Validate(channelNames map[string]bool) error {
	if !channelNames[d.FromChan] || !channelNames[d.ToChan] {
		return fmt.Errorf("%w: %s -> %s", ErrUnknownDigipeaterChan, d.FromChan, d.ToChan)
	}
	if d.AliasRegex != "" {
		if _, err := regexp.Compile(d.AliasRegex); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAliasRegex, err)
		}
	}
	if d.WideRegex != "" {
		if _, err := regexp.Compile(d.WideRegex); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidWideRegex, err)
		}
	}
	switch d.Preempt {
	case "", PreemptOff, PreemptDrop, PreemptMark, PreemptTrace:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPreempt, d.Preempt)
	}
	return nil
}

// Validate validates the metrics server configuration.
func (m MetricsConfig) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.Bind == "" {
		return ErrInvalidMetricsBind
	}
	if m.Port <= 0 || m.Port > 65535 {
		return ErrInvalidMetricsPort
	}
	return nil
}

// Validate validates the whole configuration tree, composing each
// section's own Validate() the way the teacher's Config.Validate does.
func (c Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}

	if len(c.Channels) == 0 {
		return ErrNoChannels
	}

	seen := make(map[string]bool, len(c.Channels))
	for _, ch := range c.Channels {
		if err := ch.Validate(); err != nil {
			return err
		}
		if seen[ch.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateChannelName, ch.Name)
		}
		seen[ch.Name] = true
	}

	names := c.channelNames()
	for _, d := range c.Digipeater {
		if err := d.Validate(names); err != nil {
			return err
		}
	}

	if err := c.Metrics.Validate(); err != nil {
		return err
	}

	return nil
}
