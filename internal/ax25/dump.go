package ax25

import (
	"fmt"
	"strings"
)

// Dump renders buf as a direwolf-style hex/ASCII dump: 16 bytes per
// line, hex column followed by a printable-ASCII rendering (non-
// printable bytes shown as '.'). Used by -d packet diagnostics.
func Dump(buf []byte) string {
	var b strings.Builder
	for off := 0; off < len(buf); off += 16 {
		end := off + 16
		if end > len(buf) {
			end = len(buf)
		}
		row := buf[off:end]

		fmt.Fprintf(&b, "  %03x  ", off)
		for i := 0; i < 16; i++ {
			if i < len(row) {
				fmt.Fprintf(&b, "%02x ", row[i])
			} else {
				b.WriteString("   ")
			}
			if i == 7 {
				b.WriteByte(' ')
			}
		}
		b.WriteString(" ")
		for _, c := range row {
			if c >= 0x20 && c < 0x7F {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// DumpPacket renders a decoded packet's address list and info field for
// the -d diagnostic trace: the path string followed by Dump of Info.
func DumpPacket(p *Packet) string {
	var b strings.Builder
	for i, a := range p.Addrs {
		if i == Destination {
			b.WriteString(a.Call)
			if a.SSID != 0 {
				fmt.Fprintf(&b, "-%d", a.SSID)
			}
		} else if i == Source {
			b.WriteString(">")
			b.WriteString(a.Call)
			if a.SSID != 0 {
				fmt.Fprintf(&b, "-%d", a.SSID)
			}
		} else {
			b.WriteString(",")
			b.WriteString(a.String())
		}
	}
	fmt.Fprintf(&b, " ctrl=0x%02x", p.Control)
	if p.HasPID {
		fmt.Fprintf(&b, " pid=0x%02x", p.PID)
	}
	b.WriteString(":\n")
	b.WriteString(Dump(p.Info))
	return b.String()
}
