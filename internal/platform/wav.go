package platform

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSource is an AudioDevice that replays PCM samples from a WAV
// file — the bench/test collaborator used by offline packet-generation
// tooling, never by the live receive path (grounded on ausocean-av's
// file.AVFile: open-on-Start, loop-on-EOF, close-on-Stop).
type WAVSource struct {
	path       string
	loop       bool
	mu         sync.Mutex
	f          *os.File
	dec        *wav.Decoder
	running    bool
	sampleRate int
}

// NewWAVSource builds a WAVSource reading path, optionally looping at
// end-of-file.
func NewWAVSource(path string, loop bool) *WAVSource {
	return &WAVSource{path: path, loop: loop}
}

func (w *WAVSource) Name() string { return "WAVSource(" + w.path + ")" }

func (w *WAVSource) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, err := os.Open(w.path)
	if err != nil {
		return fmt.Errorf("platform: opening WAV source %s: %w", w.path, err)
	}
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return fmt.Errorf("platform: %s is not a valid WAV file", w.path)
	}
	dec.ReadInfo()
	w.f = f
	w.dec = dec
	w.sampleRate = int(dec.SampleRate)
	w.running = true
	return nil
}

func (w *WAVSource) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running = false
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func (w *WAVSource) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *WAVSource) SampleRate() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sampleRate
}

// Read decodes one buffer's worth of 16-bit PCM samples into p,
// looping back to the start of the file on EOF if configured to.
func (w *WAVSource) Read(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running || w.dec == nil {
		return 0, errors.New("platform: WAVSource not started")
	}

	buf := &audio.IntBuffer{Format: &audio.Format{NumChannels: 1, SampleRate: w.sampleRate}, Data: make([]int, len(p)/2)}
	n, err := w.dec.PCMBuffer(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("platform: decoding WAV samples: %w", err)
	}

	if n == 0 && w.loop {
		if _, serr := w.f.Seek(0, io.SeekStart); serr != nil {
			return 0, fmt.Errorf("platform: seeking WAV source to start: %w", serr)
		}
		w.dec = wav.NewDecoder(w.f)
		w.dec.ReadInfo()
		n, err = w.dec.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
	}

	for i := 0; i < n && i*2+1 < len(p); i++ {
		sample := int16(buf.Data[i])
		p[i*2] = byte(sample)
		p[i*2+1] = byte(sample >> 8)
	}
	return n * 2, nil
}

// Write is unsupported; WAVSource is read-only.
func (w *WAVSource) Write([]byte) (int, error) {
	return 0, errors.New("platform: WAVSource does not support Write")
}

func (w *WAVSource) Close() error { return w.Stop() }

// WAVSink is an AudioDevice that records PCM samples to a WAV file,
// used by the offline test tooling to capture what the modem would
// have transmitted.
type WAVSink struct {
	path       string
	sampleRate int
	mu         sync.Mutex
	f          *os.File
	enc        *wav.Encoder
	running    bool
}

// NewWAVSink builds a WAVSink writing 16-bit mono PCM at sampleRate.
func NewWAVSink(path string, sampleRate int) *WAVSink {
	return &WAVSink{path: path, sampleRate: sampleRate}
}

func (w *WAVSink) Name() string { return "WAVSink(" + w.path + ")" }

func (w *WAVSink) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("platform: creating WAV sink %s: %w", w.path, err)
	}
	const bitDepth = 16
	const numChans = 1
	const audioFormatPCM = 1
	w.f = f
	w.enc = wav.NewEncoder(f, w.sampleRate, bitDepth, numChans, audioFormatPCM)
	w.running = true
	return nil
}

func (w *WAVSink) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running = false
	if w.enc == nil {
		return nil
	}
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("platform: closing WAV sink encoder: %w", err)
	}
	return w.f.Close()
}

func (w *WAVSink) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *WAVSink) SampleRate() int { return w.sampleRate }

func (w *WAVSink) Read([]byte) (int, error) {
	return 0, errors.New("platform: WAVSink does not support Read")
}

// Write encodes 16-bit little-endian PCM samples in p and appends
// them to the WAV file.
func (w *WAVSink) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running || w.enc == nil {
		return 0, errors.New("platform: WAVSink not started")
	}

	data := make([]int, len(p)/2)
	for i := range data {
		data[i] = int(int16(p[i*2]) | int16(p[i*2+1])<<8)
	}
	buf := &audio.IntBuffer{Format: &audio.Format{NumChannels: 1, SampleRate: w.sampleRate}, Data: data}
	if err := w.enc.Write(buf); err != nil {
		return 0, fmt.Errorf("platform: writing WAV samples: %w", err)
	}
	return len(data) * 2, nil
}

func (w *WAVSink) Close() error { return w.Stop() }
