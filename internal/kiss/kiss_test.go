package kiss

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func feedAll(d *Decoder, data []byte) []Frame {
	var frames []Frame
	for _, b := range data {
		if f, ok := d.Feed(b); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte{0x82, 0xA0, 0x03, 0xF0, 'h', 'i'}
	wire := Encode(2, CmdData, payload)

	d := NewDecoder()
	frames := feedAll(d, wire)

	require.Len(t, frames, 1)
	require.Equal(t, 2, frames[0].Chan)
	require.Equal(t, CmdData, frames[0].Command)
	require.Equal(t, payload, frames[0].Payload)
}

func TestEscapesFENDAndFESCBytes(t *testing.T) {
	payload := []byte{FEND, FESC, 0x01}
	wire := Encode(0, CmdData, payload)

	// The raw FEND/FESC bytes in payload must not appear unescaped.
	for i := 1; i < len(wire)-1; i++ {
		if wire[i] == FEND {
			t.Fatalf("unescaped FEND at position %d", i)
		}
	}

	d := NewDecoder()
	frames := feedAll(d, wire)
	require.Len(t, frames, 1)
	require.Equal(t, payload, frames[0].Payload)
}

func TestMultipleFramesBackToBack(t *testing.T) {
	var wire []byte
	wire = append(wire, Encode(0, CmdData, []byte("one"))...)
	wire = append(wire, Encode(1, CmdData, []byte("two"))...)

	d := NewDecoder()
	frames := feedAll(d, wire)
	require.Len(t, frames, 2)
	require.Equal(t, "one", string(frames[0].Payload))
	require.Equal(t, "two", string(frames[1].Payload))
}

func TestUnknownCommandDropped(t *testing.T) {
	d := NewDecoder()
	// Command nibble 0xC is the reserved XKISS extension.
	wire := []byte{FEND, 0x0C, 'x', FEND}
	frames := feedAll(d, wire)
	require.Empty(t, frames)
}

func TestCommandStrings(t *testing.T) {
	require.Equal(t, "DATA", CmdData.String())
	require.Equal(t, "SET_HARDWARE", CmdSetHardware.String())
}

func TestStrayFESCReportsProtocolErrorAndKeepsDecoding(t *testing.T) {
	var errCount int
	d := NewDecoder(WithProtocolErrorHook(func() { errCount++ }))

	// FEND, type byte, FESC followed by a byte that's neither
	// TFEND nor TFESC (a stray escape), then the rest of the frame.
	wire := []byte{FEND, 0x00, FESC, 'x', 'y', FEND}
	var frames []Frame
	for _, b := range wire {
		if f, ok := d.Feed(b); ok {
			frames = append(frames, f)
		}
	}

	require.Equal(t, 1, errCount)
	require.Len(t, frames, 1)
	// The stray byte after FESC is dropped; decoding resumes with 'y'.
	require.Equal(t, []byte("y"), frames[0].Payload)
}
