package config

// LogLevel selects the process's minimum logged severity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Medium is the physical layer a channel's modem(s) run over.
type Medium string

const (
	MediumAudio    Medium = "audio"
	MediumDirewolfCompatFile Medium = "file" // WAV capture/playback, for bench testing
)

// Preempt selects a digipeater direction's pre-empt policy
// (spec.md §4.6).
type Preempt string

const (
	PreemptOff   Preempt = "off"
	PreemptDrop  Preempt = "drop"
	PreemptMark  Preempt = "mark"
	PreemptTrace Preempt = "trace"
)
