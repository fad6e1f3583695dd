package ax25

import (
	"fmt"
	"strconv"
	"strings"
)

// Address is one AX.25 address field: up to 6 callsign characters, an
// SSID 0-15, the "has been repeated" bit, and the two reserved/RR bits.
type Address struct {
	Call string
	SSID byte
	H    bool // has-been-repeated
	RR   byte // two reserved bits, as transmitted (0-3)
}

// MaxCallLen is the number of characters the 6-byte shifted-ASCII
// callsign field can hold.
const MaxCallLen = 6

// String renders the address as "CALL-SSID" (SSID omitted when zero),
// with a trailing "*" when H is set, matching direwolf's convention for
// a used repeater in a path listing.
func (a Address) String() string {
	s := a.Call
	if a.SSID != 0 {
		s += "-" + strconv.Itoa(int(a.SSID))
	}
	if a.H {
		s += "*"
	}
	return s
}

// ParseAddress parses "CALL-SSID" (SSID optional, 0-15) into an Address.
// The H bit is not encoded in this textual form; callers set it
// separately via SetH.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSuffix(s, "*")
	call := s
	ssid := 0
	if idx := strings.IndexByte(s, '-'); idx >= 0 {
		call = s[:idx]
		var err error
		ssid, err = strconv.Atoi(s[idx+1:])
		if err != nil || ssid < 0 || ssid > 15 {
			return Address{}, &FrameError{Kind: FaultBadSSID}
		}
	}
	call = strings.ToUpper(strings.TrimSpace(call))
	if len(call) == 0 || len(call) > MaxCallLen {
		return Address{}, &FrameError{Kind: FaultBadSSID}
	}
	return Address{Call: call, SSID: byte(ssid), RR: 0x03}, nil
}

// decodeAddress reads one 7-byte shifted-ASCII AX.25 address field.
func decodeAddress(b []byte) (Address, bool) {
	if len(b) < 7 {
		return Address{}, false
	}
	var call strings.Builder
	for i := 0; i < 6; i++ {
		c := b[i] >> 1
		if c != ' ' {
			call.WriteByte(c)
		}
	}
	last := b[6]
	return Address{
		Call: call.String(),
		SSID: (last >> 1) & 0x0F,
		H:    last&0x80 != 0,
		RR:   (last >> 5) & 0x03,
	}, true
}

// isLastAddr reports whether the HDLC address-field-extension bit
// (bit 0, clear = more addresses follow, set = last address) is set.
func isLastAddr(b []byte) bool {
	return len(b) >= 7 && b[6]&0x01 != 0
}

// encode writes one 7-byte shifted-ASCII AX.25 address field.
// last sets the end-of-address-field bit (bit 0 of the 7th byte).
func (a Address) encode(last bool) [7]byte {
	var out [7]byte
	call := a.Call
	if len(call) > MaxCallLen {
		call = call[:MaxCallLen]
	}
	for i := 0; i < 6; i++ {
		c := byte(' ')
		if i < len(call) {
			c = call[i]
		}
		out[i] = c << 1
	}
	b := (a.RR&0x03)<<5 | (a.SSID&0x0F)<<1
	if a.H {
		b |= 0x80
	}
	if last {
		b |= 0x01
	}
	out[6] = b
	return out
}

func (a Address) validate() error {
	if len(a.Call) == 0 || len(a.Call) > MaxCallLen {
		return fmt.Errorf("ax25: callsign %q has invalid length", a.Call)
	}
	if a.SSID > 15 {
		return fmt.Errorf("ax25: ssid %d out of range", a.SSID)
	}
	return nil
}
