// Package ax25 implements AX.25 address, control, and packet handling:
// parsing and constructing frames, mutating the repeater list, and the
// retry/FEC metadata attached to a decoded candidate frame.
package ax25

import "fmt"

// Address position indices (spec.md §3).
const (
	Destination = 0
	Source      = 1
	Repeater1   = 2
	Repeater8   = 9

	MaxAddrs = 10
	MinAddrs = 2
)

// FrameType identifies the AX.25 control-field family of a packet.
type FrameType int

const (
	FrameI FrameType = iota
	FrameSRR
	FrameSRNR
	FrameSREJ
	FrameSSREJ
	FrameUSABM
	FrameUDISC
	FrameUDM
	FrameUUA
	FrameUFRMR
	FrameUUI
	FrameUXID
	FrameUTEST
	FrameUnknown
)

func (f FrameType) String() string {
	switch f {
	case FrameI:
		return "I"
	case FrameSRR:
		return "S-RR"
	case FrameSRNR:
		return "S-RNR"
	case FrameSREJ:
		return "S-REJ"
	case FrameSSREJ:
		return "S-SREJ"
	case FrameUSABM:
		return "U-SABM"
	case FrameUDISC:
		return "U-DISC"
	case FrameUDM:
		return "U-DM"
	case FrameUUA:
		return "U-UA"
	case FrameUFRMR:
		return "U-FRMR"
	case FrameUUI:
		return "U-UI"
	case FrameUXID:
		return "U-XID"
	case FrameUTEST:
		return "U-TEST"
	default:
		return "Unknown"
	}
}

// RetryLevel records how much bit-fixing the HDLC receiver had to do to
// obtain a CRC-valid frame (spec.md §4.1 "fix-bits" ladder).
type RetryLevel int

const (
	RetryNone RetryLevel = iota
	RetrySingle
	RetryDouble
	RetryTriple
	RetryTwoSep
	RetryPassall
)

func (r RetryLevel) String() string {
	switch r {
	case RetryNone:
		return "NONE"
	case RetrySingle:
		return "SINGLE"
	case RetryDouble:
		return "DOUBLE"
	case RetryTriple:
		return "TRIPLE"
	case RetryTwoSep:
		return "TWO_SEP"
	case RetryPassall:
		return "PASSALL"
	default:
		return "UNKNOWN"
	}
}

// FECType records which forward-error-correction envelope, if any,
// produced the frame (spec.md §3 Candidate frame).
type FECType int

const (
	FECNone FECType = iota
	FECFX25
	FECIL2P
)

func (f FECType) String() string {
	switch f {
	case FECNone:
		return "none"
	case FECFX25:
		return "fx25"
	case FECIL2P:
		return "il2p"
	default:
		return "unknown"
	}
}

// FaultKind describes why from_bytes rejected a buffer.
type FaultKind int

const (
	FaultNone FaultKind = iota
	FaultTooShort
	FaultNoAddressTerminator
	FaultTooManyAddresses
	FaultBadSSID
)

func (e FaultKind) Error() string {
	switch e {
	case FaultTooShort:
		return "ax25: buffer shorter than minimum address+control length"
	case FaultNoAddressTerminator:
		return "ax25: no address with HDLC end-of-address bit set"
	case FaultTooManyAddresses:
		return "ax25: more than 10 addresses in address field"
	case FaultBadSSID:
		return "ax25: malformed SSID"
	default:
		return "ax25: no fault"
	}
}

// FrameError wraps a FaultKind with the offset at which it was detected.
type FrameError struct {
	Kind   FaultKind
	Offset int
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("%s (offset %d)", e.Kind.Error(), e.Offset)
}

func (e *FrameError) Unwrap() error {
	return e.Kind
}
