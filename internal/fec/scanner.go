// Package fec implements C2, the FEC-wrapper scanner that sits
// between a channel's raw demodulated bit stream and its HDLC
// receivers: it watches the same bits for an FX.25 correlation tag or
// an IL2P sync word and, on a successful Reed-Solomon decode, reports
// a Candidate the same way an hdlc.Receiver does (spec.md §4.2's C2
// sitting ahead of C3 in the C1->C2->C3 data flow). A Scanner never
// diverts bits away from C1 — genuine FEC-coded bytes simply don't
// look like flag-delimited HDLC to the bit receiver running in
// parallel on the same stream, so the two rarely produce competing
// candidates for the same span; if they ever do, C3's fec_type
// preference order (il2p > fx25 > none) picks the winner.
package fec

import (
	"github.com/doismellburning/samoyed/internal/ax25"
	"github.com/doismellburning/samoyed/internal/fec/fx25"
	"github.com/doismellburning/samoyed/internal/fec/il2p"
	"github.com/doismellburning/samoyed/internal/hdlc"
)

type stage int

const (
	stageIdle stage = iota
	stageFX25Block
	stageIL2PHeader
	stageIL2PPayload
)

// Scanner watches one sub-channel's raw bit stream for an FX.25
// correlation tag or IL2P sync word, byte-aligned — both wrapper
// formats are fixed-size/block-oriented rather than bit-stuffed, so
// byte-level assembly is enough; it never needs HDLC's bit destuffing.
// Not safe for concurrent use: like hdlc.Receiver, one Scanner belongs
// to one demodulator slicer.
type Scanner struct {
	chanNum, subchan int
	fxCodecs         *fx25.Codecs
	emit             func(hdlc.Candidate)

	curByte byte
	bitCnt  int

	// Two rolling 8-byte windows over the same incoming bytes, built
	// with opposite shift direction because the two wrapper formats
	// transmit their framing marker with opposite byte order: IL2P's
	// sync word is big-endian (spec.md §4.2, Encode's
	// byte(SyncWord>>16),byte(SyncWord>>8),byte(SyncWord)), FX.25's
	// correlation tag is little-endian (Encode's byte(tag.Value>>8i)
	// for i=0..7). winLeft keeps the newest byte in the low bits
	// (matches IL2P's big-endian 3-byte prefix check); winRight keeps
	// the newest byte in the high bits (matches fx25.Tag.Value's
	// layout, where the first transmitted byte is the value's LSB).
	winLeft  uint64
	winRight uint64

	stage stage

	fxTag    fx25.Tag
	fxWindow uint64
	fxBlock  []byte

	il2pHeader    []byte
	il2pHeaderBuf []byte // saved coded header, needed again once the payload block completes
	il2pPayload   []byte
}

// NewScanner builds a Scanner that reports decoded FX.25/IL2P frames
// to emit, tagged with chanNum/subchan like an hdlc.Receiver's own
// candidates. fxCodecs is typically shared across every sub-channel
// scanner on a Channel: after NewCodecs populates every known tag,
// Decode never mutates the cache, so concurrent reads from several
// scanners are safe.
func NewScanner(chanNum, subchan int, fxCodecs *fx25.Codecs, emit func(hdlc.Candidate)) *Scanner {
	return &Scanner{chanNum: chanNum, subchan: subchan, fxCodecs: fxCodecs, emit: emit}
}

// ProcessBit feeds one raw demodulated bit — the same stream handed
// to the paired hdlc.Receiver — into the scanner.
func (s *Scanner) ProcessBit(bit bool) {
	s.curByte <<= 1
	if bit {
		s.curByte |= 1
	}
	s.bitCnt++
	if s.bitCnt < 8 {
		return
	}
	b := s.curByte
	s.curByte = 0
	s.bitCnt = 0
	s.onByte(b)
}

// ProcessBits feeds a whole slice of bits through ProcessBit.
func (s *Scanner) ProcessBits(bits []bool) {
	for _, b := range bits {
		s.ProcessBit(b)
	}
}

func (s *Scanner) onByte(b byte) {
	s.winLeft = (s.winLeft << 8) | uint64(b)
	s.winRight = (s.winRight >> 8) | (uint64(b) << 56)

	switch s.stage {
	case stageFX25Block:
		s.fxBlock = append(s.fxBlock, b)
		if len(s.fxBlock) == s.fxTag.N {
			s.finishFX25()
		}
		return
	case stageIL2PHeader:
		s.il2pHeader = append(s.il2pHeader, b)
		if len(s.il2pHeader) == il2p.HeaderCodedLen {
			s.finishIL2PHeader()
		}
		return
	case stageIL2PPayload:
		s.il2pPayload = append(s.il2pPayload, b)
		if len(s.il2pPayload) == cap(s.il2pPayload) {
			s.finishIL2PPayload()
		}
		return
	}

	if uint32(s.winLeft&0xFFFFFF) == il2p.SyncWord {
		s.stage = stageIL2PHeader
		s.il2pHeader = s.il2pHeader[:0]
		return
	}
	if tag, ok := fx25.Correlate(s.winRight); ok {
		s.stage = stageFX25Block
		s.fxTag = tag
		s.fxWindow = s.winRight
		s.fxBlock = s.fxBlock[:0]
	}
}

func (s *Scanner) finishFX25() {
	block := s.fxBlock
	window := s.fxWindow
	s.stage = stageIdle
	s.fxBlock = nil

	result, ok := fx25.Decode(window, block, s.fxCodecs)
	if !ok {
		return
	}
	// Per spec.md §4.2, a recovered FX.25 payload is still the plain
	// HDLC bytes between flags: still CRC-checked before C3 ever sees
	// it (unlike IL2P, whose integrity comes from RS alone).
	if len(result.Payload) < 2 || !hdlc.CheckFCS(result.Payload) {
		return
	}
	s.deliver(ax25.FECFX25, result.RetryLevel, result.CorrectedSymbols, result.Payload[:len(result.Payload)-2])
}

func (s *Scanner) finishIL2PHeader() {
	header := s.il2pHeader
	s.il2pHeader = nil

	h, _, ok := il2p.DecodeHeader(header)
	if !ok {
		s.stage = stageIdle
		return
	}
	need := il2p.PayloadCodedLen(int(h.Length))
	if need == 0 {
		s.stage = stageIdle
		return
	}
	s.il2pHeaderBuf = header
	s.il2pPayload = make([]byte, 0, need)
	s.stage = stageIL2PPayload
}

func (s *Scanner) finishIL2PPayload() {
	payload := s.il2pPayload
	header := s.il2pHeaderBuf
	s.stage = stageIdle
	s.il2pPayload = nil
	s.il2pHeaderBuf = nil

	result, ok := il2p.Decode(header, payload)
	if !ok {
		return
	}
	s.deliver(ax25.FECIL2P, result.RetryLevel, result.CorrectedSymbols, result.Packet.ToBytes())
}

func (s *Scanner) deliver(fecType ax25.FECType, level ax25.RetryLevel, corrected int, payload []byte) {
	if s.emit == nil {
		return
	}
	s.emit(hdlc.Candidate{
		Chan:             s.chanNum,
		Subchan:          s.subchan,
		FECType:          fecType,
		RetryLevel:       level,
		CorrectedSymbols: corrected,
		Payload:          payload,
	})
}
