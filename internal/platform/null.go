package platform

import "errors"

// NullAudioDevice discards writes and never produces samples — used
// for bench testing a channel's digipeater/arbitrator wiring without
// an attached radio.
type NullAudioDevice struct {
	running    bool
	sampleRate int
}

// NewNullAudioDevice builds a NullAudioDevice reporting sampleRate.
func NewNullAudioDevice(sampleRate int) *NullAudioDevice {
	return &NullAudioDevice{sampleRate: sampleRate}
}

func (n *NullAudioDevice) Name() string { return "Null" }

func (n *NullAudioDevice) Start() error { n.running = true; return nil }
func (n *NullAudioDevice) Stop() error  { n.running = false; return nil }

func (n *NullAudioDevice) IsRunning() bool { return n.running }
func (n *NullAudioDevice) SampleRate() int { return n.sampleRate }

func (n *NullAudioDevice) Read([]byte) (int, error) {
	if !n.running {
		return 0, errors.New("platform: NullAudioDevice not started")
	}
	return 0, nil
}

func (n *NullAudioDevice) Write(p []byte) (int, error) {
	if !n.running {
		return 0, errors.New("platform: NullAudioDevice not started")
	}
	return len(p), nil
}

func (n *NullAudioDevice) Close() error { return n.Stop() }
