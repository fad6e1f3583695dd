package hdlc

import (
	"sync/atomic"

	"github.com/doismellburning/samoyed/internal/ax25"
)

// State is the bit receiver's synchronization state.
type State int

const (
	// StateHunt is searching for the first flag of a frame.
	StateHunt State = iota
	// StateFrame is collecting bits between flags.
	StateFrame
)

// minFrameLen is the minimum candidate frame length: two addresses
// (14 bytes) + control (1) + FCS (2) = 17 bytes (spec.md §4.1).
const minFrameLen = 2*7 + 1 + 2

// Candidate is a raw decoded frame plus the metadata C3 needs to
// arbitrate between sub-channel/slicer copies of the same airtime.
type Candidate struct {
	Chan       int
	Subchan    int
	Slice      int
	AudioLevel int
	FECType    ax25.FECType
	RetryLevel ax25.RetryLevel
	// CorrectedSymbols is the exact Reed-Solomon corrected-symbol count
	// for FX.25/IL2P candidates (0 for plain HDLC). RetryLevel's fix-bits
	// ladder tops out at RetryPassall and can't carry a count this wide.
	CorrectedSymbols int
	Spectrum         string
	Payload          []byte // address+control+(pid)+info, FCS stripped
}

// Passall, when set, delivers frames regardless of FCS validity
// (retry_level reported as PASSALL).
type Options struct {
	Chan    int
	Subchan int
	Slice   int
	Passall bool
	FixBits bool // enable the SINGLE..TWO_SEP retry ladder
}

// Receiver is a bit-at-a-time HDLC frame assembler for one
// sub-channel/slicer. It is not safe for concurrent use; each
// demodulator slicer owns one Receiver.
type Receiver struct {
	opts Options

	state   State
	ones    int
	curByte byte
	bitCnt  int
	frame   []byte

	audioLevel int
	spectrum   string

	// dcd mirrors "state == StateFrame" as an atomic so IsCollecting
	// can be polled from the transmit side (spec.md §4.1 "carrier-
	// detect output... boolean per (chan,subchan,slice) 'gathering
	// bits into a frame'") without racing ProcessBit's own goroutine.
	dcd atomic.Bool

	emit func(Candidate)
}

// NewReceiver constructs a Receiver that calls emit for each
// candidate frame produced (valid, fixed, or passall-delivered).
func NewReceiver(opts Options, emit func(Candidate)) *Receiver {
	return &Receiver{opts: opts, state: StateHunt, emit: emit}
}

// SetLevel records the audio/spectrum metadata attached to the next
// emitted candidate (set by the demodulator once per sample block).
func (r *Receiver) SetLevel(audioLevel int, spectrum string) {
	r.audioLevel = audioLevel
	r.spectrum = spectrum
}

// ProcessBit feeds one received, still-stuffed bit into the state
// machine. Data never contains six or more consecutive 1-bits; six
// surrounded by 0s is a flag, seven or more is an abort/idle condition.
func (r *Receiver) ProcessBit(bit bool) {
	if bit {
		r.ones++
		if r.ones >= 7 {
			// Line idle / abort: seven or more consecutive 1s can never
			// occur in a correctly stuffed stream.
			r.resetToHunt()
			return
		}
		r.appendBit(true)
		return
	}

	switch r.ones {
	case 5:
		// Stuffed zero: discard, not part of the data stream.
		r.ones = 0
	case 6:
		// Flag: 0 + six 1s + 0.
		r.ones = 0
		r.onFlag()
	default:
		r.ones = 0
		r.appendBit(false)
	}
}

func (r *Receiver) resetToHunt() {
	r.state = StateHunt
	r.ones = 0
	r.curByte = 0
	r.bitCnt = 0
	r.frame = nil
	r.dcd.Store(false)
}

// onFlag closes out any in-progress frame (emitting a candidate if it
// meets the minimum length) and begins collecting the next one; HDLC
// allows a single flag to serve as both closing and opening delimiter.
// By the time the flag is recognised its leading 0 and six 1s have
// already gone through appendBit, so a byte-aligned frame ends with
// exactly those 7 bits pending in curByte; they are discarded.
func (r *Receiver) onFlag() {
	if r.state == StateFrame && r.bitCnt == 7 && len(r.frame) >= minFrameLen {
		r.deliver(append([]byte(nil), r.frame...))
	}
	r.state = StateFrame
	r.curByte = 0
	r.bitCnt = 0
	r.frame = r.frame[:0]
	r.dcd.Store(true)
}

// IsCollecting reports whether this receiver is currently gathering
// bits into an in-progress frame — the software DCD signal spec.md
// requires per (chan, subchan, slice), polled by the bound channel's
// transmit queue to avoid keying over a reception in progress. Safe
// for concurrent use, unlike the rest of Receiver's methods.
func (r *Receiver) IsCollecting() bool {
	return r.dcd.Load()
}

// appendBit assembles destuffed data bits into bytes, LSB-first, and
// appends completed bytes to the in-progress frame buffer. Bits
// arriving while still hunting for the first flag are discarded.
func (r *Receiver) appendBit(bit bool) {
	if r.state != StateFrame {
		return
	}
	if bit {
		r.curByte |= 1 << uint(r.bitCnt)
	}
	r.bitCnt++
	if r.bitCnt == 8 {
		r.frame = append(r.frame, r.curByte)
		r.curByte = 0
		r.bitCnt = 0
	}
}

// deliver runs FCS validation (and, on failure, the fix-bits ladder)
// over a completed frame and emits a Candidate if it is acceptable.
func (r *Receiver) deliver(framed []byte) {
	if CheckFCS(framed) {
		r.emitCandidate(framed[:len(framed)-2], ax25.RetryNone)
		return
	}

	if r.opts.FixBits {
		if fixed, level, ok := FixBits(framed); ok {
			r.emitCandidate(fixed[:len(fixed)-2], level)
			return
		}
	}

	if r.opts.Passall {
		r.emitCandidate(framed[:len(framed)-2], ax25.RetryPassall)
	}
}

func (r *Receiver) emitCandidate(payload []byte, level ax25.RetryLevel) {
	if r.emit == nil {
		return
	}
	r.emit(Candidate{
		Chan:       r.opts.Chan,
		Subchan:    r.opts.Subchan,
		Slice:      r.opts.Slice,
		AudioLevel: r.audioLevel,
		FECType:    ax25.FECNone,
		RetryLevel: level,
		Spectrum:   r.spectrum,
		Payload:    payload,
	})
}

// ProcessBits feeds a whole slice of stuffed bits through ProcessBit,
// a convenience for demodulators that buffer a block at a time.
func (r *Receiver) ProcessBits(bits []bool) {
	for _, b := range bits {
		r.ProcessBit(b)
	}
}
