// Package platform abstracts the hardware boundary: audio capture and
// playback, PTT keying, and serial control — grounded on ausocean-av's
// device.AVDevice interface (Start/Stop/IsRunning/Set(config), an
// io.Reader for media data) generalized from camera/microphone capture
// to this TNC's audio-in/audio-out/PTT triad.
package platform

import "io"

// AudioDevice is a configurable audio source or sink from which PCM
// samples can be read or to which they can be written.
type AudioDevice interface {
	io.ReadWriteCloser

	// Name identifies the device for logging.
	Name() string

	// Start begins capture/playback; Read/Write are only valid after
	// a successful Start.
	Start() error

	// Stop ends capture/playback. Further Read/Write calls fail.
	Stop() error

	// IsRunning reports whether Start has been called without a
	// matching Stop.
	IsRunning() bool

	// SampleRate is the device's fixed PCM sample rate in Hz.
	SampleRate() int
}

// PTT keys and unkeys the transmitter.
type PTT interface {
	Key() error
	Unkey() error
}

// NullPTT is a PTT that does nothing, useful for bench testing
// without attached hardware.
type NullPTT struct{}

func (NullPTT) Key() error   { return nil }
func (NullPTT) Unkey() error { return nil }
