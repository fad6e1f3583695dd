package ax25

// Packet is an AX.25 frame: an address list, one control octet, an
// optional PID, and an info field. The Set*/InsertAddr/RemoveAddr
// methods modify the packet in place; Dup returns a deep copy that
// shares no backing Addrs or Info slice with the original, which is
// what digipeating works on (spec.md §3).
type Packet struct {
	Addrs   []Address
	Control byte
	HasPID  bool
	PID     byte
	Info    []byte
}

const (
	pidNone = 0xF0 // no layer 3 protocol (APRS UI frames use this value)
)

// FromBytes parses a raw AX.25 frame (as delivered between HDLC flags,
// already unstuffed and with the FCS stripped) into a Packet.
func FromBytes(buf []byte) (*Packet, error) {
	const minLen = 2*7 + 1 // two addresses + control
	if len(buf) < minLen {
		return nil, &FrameError{Kind: FaultTooShort}
	}

	var addrs []Address
	off := 0
	for {
		if off+7 > len(buf) {
			return nil, &FrameError{Kind: FaultTooShort, Offset: off}
		}
		if len(addrs) >= MaxAddrs {
			return nil, &FrameError{Kind: FaultTooManyAddresses, Offset: off}
		}
		a, ok := decodeAddress(buf[off : off+7])
		if !ok {
			return nil, &FrameError{Kind: FaultTooShort, Offset: off}
		}
		addrs = append(addrs, a)
		last := isLastAddr(buf[off : off+7])
		off += 7
		if last {
			break
		}
	}
	if len(addrs) < MinAddrs {
		return nil, &FrameError{Kind: FaultNoAddressTerminator}
	}

	if off >= len(buf) {
		return nil, &FrameError{Kind: FaultTooShort, Offset: off}
	}
	control := buf[off]
	off++

	p := &Packet{Addrs: addrs, Control: control}

	// I and UI frames carry a PID byte; S frames do not.
	if control&0x01 == 0 || control&0x03 == 0x03 && control&0xEF == 0x03 {
		if off < len(buf) {
			p.PID = buf[off]
			p.HasPID = true
			off++
		}
	}

	if off <= len(buf) {
		info := make([]byte, len(buf)-off)
		copy(info, buf[off:])
		p.Info = info
	}

	return p, nil
}

// ToBytes reconstructs the raw frame bytes for transmission (the
// inverse of FromBytes): to_bytes(from_bytes(B)) == B for any valid B.
func (p *Packet) ToBytes() []byte {
	var out []byte
	for i, a := range p.Addrs {
		enc := a.encode(i == len(p.Addrs)-1)
		out = append(out, enc[:]...)
	}
	out = append(out, p.Control)
	if p.HasPID {
		out = append(out, p.PID)
	}
	out = append(out, p.Info...)
	return out
}

// Dup returns a deep copy of p so digipeating never aliases the
// original packet's buffers into another output queue.
func (p *Packet) Dup() *Packet {
	n := &Packet{
		Control: p.Control,
		HasPID:  p.HasPID,
		PID:     p.PID,
	}
	n.Addrs = make([]Address, len(p.Addrs))
	copy(n.Addrs, p.Addrs)
	n.Info = make([]byte, len(p.Info))
	copy(n.Info, p.Info)
	return n
}

// GetAddr returns the address at pos as "CALL-SSID".
func (p *Packet) GetAddr(pos int) (string, bool) {
	if pos < 0 || pos >= len(p.Addrs) {
		return "", false
	}
	return p.Addrs[pos].String(), true
}

// SetAddr replaces the address at pos, parsed from "CALL-SSID" text.
// The H bit of the existing address at pos is preserved.
func (p *Packet) SetAddr(pos int, callSSID string) error {
	if pos < 0 || pos >= len(p.Addrs) {
		return &FrameError{Kind: FaultTooShort, Offset: pos}
	}
	a, err := ParseAddress(callSSID)
	if err != nil {
		return err
	}
	a.H = p.Addrs[pos].H
	p.Addrs[pos] = a
	return nil
}

// SetH sets or clears the "has been repeated" bit at pos.
func (p *Packet) SetH(pos int, h bool) {
	if pos < 0 || pos >= len(p.Addrs) {
		return
	}
	p.Addrs[pos].H = h
}

// SetSSID sets the SSID (0-15) at pos.
func (p *Packet) SetSSID(pos int, ssid byte) {
	if pos < 0 || pos >= len(p.Addrs) {
		return
	}
	p.Addrs[pos].SSID = ssid & 0x0F
}

// InsertAddr inserts addr at pos, shifting successors up. It fails if
// that would push the address count past MaxAddrs.
func (p *Packet) InsertAddr(pos int, addr Address) error {
	if len(p.Addrs) >= MaxAddrs {
		return &FrameError{Kind: FaultTooManyAddresses, Offset: pos}
	}
	if pos < 0 || pos > len(p.Addrs) {
		pos = len(p.Addrs)
	}
	p.Addrs = append(p.Addrs, Address{})
	copy(p.Addrs[pos+1:], p.Addrs[pos:])
	p.Addrs[pos] = addr
	return nil
}

// RemoveAddr removes the address at pos, shifting successors down.
func (p *Packet) RemoveAddr(pos int) {
	if pos < 0 || pos >= len(p.Addrs) {
		return
	}
	p.Addrs = append(p.Addrs[:pos], p.Addrs[pos+1:]...)
}

// FirstNotRepeated returns the lowest-numbered repeater position with
// H=0, or -1 if all repeaters have been used (or there are none).
func (p *Packet) FirstNotRepeated() int {
	for pos := Repeater1; pos < len(p.Addrs); pos++ {
		if !p.Addrs[pos].H {
			return pos
		}
	}
	return -1
}

// Heard returns the position of the last repeater with H=1, else Source.
func (p *Packet) Heard() int {
	last := Source
	for pos := Repeater1; pos < len(p.Addrs); pos++ {
		if p.Addrs[pos].H {
			last = pos
		}
	}
	return last
}

// IsAPRS reports whether this is a UI frame with PID 0xF0.
func (p *Packet) IsAPRS() bool {
	return p.FrameType() == FrameUUI && p.HasPID && p.PID == pidNone
}

// FrameType classifies the control octet per spec.md §4.4.
func (p *Packet) FrameType() FrameType {
	c := p.Control
	switch {
	case c&0x01 == 0:
		return FrameI
	case c&0x03 == 0x01:
		switch (c >> 2) & 0x03 {
		case 0:
			return FrameSRR
		case 1:
			return FrameSRNR
		case 2:
			return FrameSREJ
		case 3:
			return FrameSSREJ
		}
	case c&0xEF == 0x03:
		return FrameUUI
	case c&0xEF == 0x2F:
		return FrameUSABM
	case c&0xEF == 0x43:
		return FrameUDISC
	case c&0xEF == 0x0F:
		return FrameUDM
	case c&0xEF == 0x63:
		return FrameUUA
	case c&0xEF == 0x87:
		return FrameUFRMR
	case c&0xEF == 0xAF:
		return FrameUXID
	case c&0xEF == 0xE3:
		return FrameUTEST
	}
	return FrameUnknown
}

// NS returns N(S), the send sequence number of an I frame.
func (p *Packet) NS() byte {
	return (p.Control >> 1) & 0x07
}

// NR returns N(R), the receive sequence number of an I or S frame.
func (p *Packet) NR() byte {
	return (p.Control >> 5) & 0x07
}

// PF returns the poll/final bit.
func (p *Packet) PF() bool {
	return p.Control&0x10 != 0
}
