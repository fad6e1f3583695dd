// Package il2p implements the IL2P forward-error-correction framing
// (C2): 24-bit sync word detection, a Reed-Solomon (15, 11) protected
// header carrying frame metadata, and Reed-Solomon (255, 239) payload
// blocks sent one after another (the blocks are not interleaved). IL2P
// integrity comes entirely from RS, so a successfully
// decoded frame bypasses C1's CRC and fix-bits ladder (spec.md §4.2).
package il2p

import (
	"encoding/binary"

	"github.com/doismellburning/samoyed/internal/ax25"
	"github.com/doismellburning/samoyed/internal/fec/rs"
)

// SyncWord is the 24-bit pattern that precedes every IL2P header.
const SyncWord = 0xF15E48

const (
	headerDataLen   = 11
	headerCodedLen  = 15
	payloadBlockLen = 239
	payloadParity   = 16
	payloadCodedLen = payloadBlockLen + payloadParity
)

// HeaderCodedLen is the wire length of an encoded header block,
// exported for the channel scanner that must know how many bytes to
// buffer before calling DecodeHeader.
const HeaderCodedLen = headerCodedLen

// PayloadCodedLen returns the number of coded payload bytes a
// declared payload length occupies: one RS(255,239) block per
// started 239-byte chunk, matching EncodePayload's block split.
func PayloadCodedLen(length int) int {
	if length <= 0 {
		return 0
	}
	blocks := (length + payloadBlockLen - 1) / payloadBlockLen
	return blocks * payloadCodedLen
}

// Header is the fixed-size metadata block carried ahead of the
// payload: enough to reconstruct an AX.25 address/control/PID without
// transmitting the full shifted-ASCII address fields on air.
type Header struct {
	DestCall string
	DestSSID byte
	SrcCall  string
	SrcSSID  byte
	Control  byte
	HasPID   bool
	PID      byte
	Length   uint16 // payload length in bytes
	Scramble bool
}

var headerCodec = rs.NewCodec(headerCodedLen, headerDataLen)

// EncodeHeader packs h into the 11 data bytes of the header RS block
// and returns the 15-byte coded header.
func EncodeHeader(h Header) []byte {
	data := make([]byte, headerDataLen)
	copy(data[0:6], padCall(h.DestCall))
	data[6] = h.DestSSID & 0x0F
	data[7] = h.SrcSSID & 0x0F
	// The source callsign doesn't fit in the remaining header budget
	// uncompressed (real IL2P packs callsigns at 6 bits/char). Rather
	// than replicate that compression without a reference to check it
	// against, the source call travels as the first six bytes of the
	// payload; Length below covers payload-including-that-prefix.
	binary.BigEndian.PutUint16(data[8:10], h.Length)
	flags := h.Control
	if h.HasPID {
		flags |= 0x01
	}
	if h.Scramble {
		flags |= 0x02
	}
	data[10] = flags
	return headerCodec.Encode(data)
}

func padCall(call string) []byte {
	out := make([]byte, 6)
	for i := 0; i < 6; i++ {
		if i < len(call) {
			out[i] = call[i]
		} else {
			out[i] = ' '
		}
	}
	return out
}

// DecodeHeader reverses EncodeHeader, correcting up to two symbol
// errors via the (15, 11) RS code. The returned count is the number of
// header symbols corrected; Decode adds it to the payload's count in
// Result.CorrectedSymbols.
func DecodeHeader(coded []byte) (Header, int, bool) {
	if len(coded) != headerCodedLen {
		return Header{}, 0, false
	}
	fixed, corrected, ok := headerCodec.Decode(coded)
	if !ok {
		return Header{}, 0, false
	}
	data := fixed[:headerDataLen]

	h := Header{
		DestCall: trimCall(data[0:6]),
		DestSSID: data[6] & 0x0F,
		SrcSSID:  data[7] & 0x0F,
		Length:   binary.BigEndian.Uint16(data[8:10]),
	}
	flags := data[10]
	h.Control = flags &^ 0x03
	h.HasPID = flags&0x01 != 0
	h.Scramble = flags&0x02 != 0
	return h, corrected, true
}

func trimCall(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return string(b[:end])
}

// payloadCodec is shared by every interleaved payload block.
var payloadCodec = rs.NewCodec(payloadCodedLen, payloadBlockLen)

// EncodePayload splits payload into fixed-size RS blocks (the final
// block zero-padded) and returns the concatenated coded blocks.
func EncodePayload(payload []byte) []byte {
	var out []byte
	for off := 0; off < len(payload); off += payloadBlockLen {
		end := off + payloadBlockLen
		if end > len(payload) {
			end = len(payload)
		}
		block := make([]byte, payloadBlockLen)
		copy(block, payload[off:end])
		out = append(out, payloadCodec.Encode(block)...)
	}
	return out
}

// DecodePayload RS-corrects each consecutive block in turn and joins
// their data, trimming to the declared payload length. totalCorrected sums the
// symbols corrected across all blocks.
func DecodePayload(coded []byte, length int) ([]byte, int, bool) {
	var out []byte
	totalCorrected := 0
	for off := 0; off < len(coded); off += payloadCodedLen {
		end := off + payloadCodedLen
		if end > len(coded) {
			return nil, 0, false
		}
		fixed, corrected, ok := payloadCodec.Decode(coded[off:end])
		if !ok {
			return nil, 0, false
		}
		totalCorrected += corrected
		out = append(out, fixed[:payloadBlockLen]...)
	}
	if length > len(out) {
		return nil, 0, false
	}
	return out[:length], totalCorrected, true
}

// Result is a fully decoded IL2P frame, reconstructed into the same
// shape C3/C4 expect from a plain HDLC candidate.
type Result struct {
	Packet     *ax25.Packet
	RetryLevel ax25.RetryLevel
	// CorrectedSymbols is the exact header+payload RS-corrected symbol
	// count (spec.md §4.2: "retry_level carries the number of symbols
	// corrected"). ax25.RetryLevel can't hold a value like 10, so the
	// true count lives here; RetryLevel stays a coarse none/single
	// signal for C3's arbitrator preference ordering.
	CorrectedSymbols int
}

// Decode reconstructs an AX.25 packet from a coded header and coded
// payload. Per spec.md §4.2, IL2P frames are emitted directly to C3
// without a CRC check: their integrity is the RS decode succeeding.
func Decode(codedHeader, codedPayload []byte) (Result, bool) {
	h, hCorrected, ok := DecodeHeader(codedHeader)
	if !ok {
		return Result{}, false
	}
	raw, pCorrected, ok := DecodePayload(codedPayload, int(h.Length))
	if !ok || len(raw) < 6 {
		return Result{}, false
	}
	srcCall := trimCall(raw[:6])
	info := raw[6:]

	dest, err := ax25.ParseAddress(h.DestCall)
	if err != nil {
		return Result{}, false
	}
	dest.SSID = h.DestSSID

	src, err := ax25.ParseAddress(srcCall)
	if err != nil {
		return Result{}, false
	}
	src.SSID = h.SrcSSID

	p := &ax25.Packet{
		Addrs:   []ax25.Address{dest, src},
		Control: h.Control,
		HasPID:  h.HasPID,
		PID:     h.PID,
		Info:    info,
	}

	total := hCorrected + pCorrected
	level := ax25.RetryNone
	if total > 0 {
		level = ax25.RetrySingle
	}
	return Result{Packet: p, RetryLevel: level, CorrectedSymbols: total}, true
}

// Encode builds the IL2P wire form (sync word + coded header + coded
// payload) for a two-address, no-repeater packet — the common case
// for a direct APRS/UI transmission. Packets needing digipeat paths
// still transmit as plain HDLC or FX.25; IL2P's compact header has no
// room for a repeater list.
func Encode(p *ax25.Packet) ([]byte, error) {
	if len(p.Addrs) < 2 {
		return nil, &ax25.FrameError{Kind: ax25.FaultNoAddressTerminator}
	}
	dest := p.Addrs[ax25.Destination]
	src := p.Addrs[ax25.Source]

	payload := append(padCall(src.Call), p.Info...)
	h := Header{
		DestCall: dest.Call,
		DestSSID: dest.SSID,
		SrcSSID:  src.SSID,
		Control:  p.Control,
		HasPID:   p.HasPID,
		PID:      p.PID,
		Length:   uint16(len(payload)),
	}

	var out []byte
	out = append(out, byte(SyncWord>>16), byte(SyncWord>>8&0xFF), byte(SyncWord&0xFF))
	out = append(out, EncodeHeader(h)...)
	out = append(out, EncodePayload(payload)...)
	return out, nil
}
