package hdlc

import (
	"testing"

	"github.com/doismellburning/samoyed/internal/ax25"
	"github.com/stretchr/testify/require"
)

func flagBits() []bool {
	return bitsFromBytes([]byte{0x7E})
}

// encodeFrame renders data (address+control+...+FCS already appended)
// as a flag-delimited, bit-stuffed bit stream ready to feed a Receiver.
func encodeFrame(framed []byte) []bool {
	var out []bool
	out = append(out, flagBits()...)
	out = append(out, StuffBits(bitsFromBytes(framed))...)
	out = append(out, flagBits()...)
	return out
}

func sampleFramed(t *testing.T) []byte {
	t.Helper()
	dest, err := ax25.ParseAddress("APRS")
	require.NoError(t, err)
	src, err := ax25.ParseAddress("N0CALL-1")
	require.NoError(t, err)
	p := &ax25.Packet{
		Addrs:   []ax25.Address{dest, src},
		Control: 0x03,
		HasPID:  true,
		PID:     0xF0,
		Info:    []byte("test packet"),
	}
	return AppendFCS(p.ToBytes())
}

func TestReceiverEmitsValidCandidate(t *testing.T) {
	framed := sampleFramed(t)
	var got []Candidate
	r := NewReceiver(Options{Chan: 0}, func(c Candidate) {
		got = append(got, c)
	})
	r.ProcessBits(encodeFrame(framed))

	require.Len(t, got, 1)
	require.Equal(t, ax25.RetryNone, got[0].RetryLevel)
	require.Equal(t, framed[:len(framed)-2], got[0].Payload)
}

func TestReceiverFixBitsSingleRecoversFlippedBit(t *testing.T) {
	framed := sampleFramed(t)
	corrupt := append([]byte(nil), framed...)
	flipBit(corrupt, 3) // corrupt one bit inside the destination address

	var got []Candidate
	r := NewReceiver(Options{Chan: 0, FixBits: true}, func(c Candidate) {
		got = append(got, c)
	})
	r.ProcessBits(encodeFrame(corrupt))

	require.Len(t, got, 1)
	require.Equal(t, ax25.RetrySingle, got[0].RetryLevel)
	require.Equal(t, framed[:len(framed)-2], got[0].Payload)
}

func TestReceiverDropsBadFCSWithoutPassallOrFixBits(t *testing.T) {
	framed := sampleFramed(t)
	corrupt := append([]byte(nil), framed...)
	flipBit(corrupt, 3)

	var got []Candidate
	r := NewReceiver(Options{Chan: 0}, func(c Candidate) {
		got = append(got, c)
	})
	r.ProcessBits(encodeFrame(corrupt))

	require.Empty(t, got)
}

func TestReceiverPassallDeliversBadFCS(t *testing.T) {
	framed := sampleFramed(t)
	corrupt := append([]byte(nil), framed...)
	flipBit(corrupt, 3)

	var got []Candidate
	r := NewReceiver(Options{Chan: 0, Passall: true}, func(c Candidate) {
		got = append(got, c)
	})
	r.ProcessBits(encodeFrame(corrupt))

	require.Len(t, got, 1)
	require.Equal(t, ax25.RetryPassall, got[0].RetryLevel)
}

func TestReceiverTooShortFrameNotEmitted(t *testing.T) {
	var got []Candidate
	r := NewReceiver(Options{Chan: 0, Passall: true}, func(c Candidate) {
		got = append(got, c)
	})
	short := AppendFCS([]byte{0x01, 0x02, 0x03})
	r.ProcessBits(encodeFrame(short))

	require.Empty(t, got)
}

func TestReceiverAbortOnSevenOnesResetsToHunt(t *testing.T) {
	framed := sampleFramed(t)

	var got []Candidate
	r := NewReceiver(Options{Chan: 0}, func(c Candidate) {
		got = append(got, c)
	})

	var stream []bool
	stream = append(stream, flagBits()...)
	// Seven consecutive 1 bits: an abort, never produced by a
	// correctly stuffed stream.
	for i := 0; i < 7; i++ {
		stream = append(stream, true)
	}
	stream = append(stream, encodeFrame(framed)...)
	r.ProcessBits(stream)

	require.Len(t, got, 1)
	require.Equal(t, framed[:len(framed)-2], got[0].Payload)
}

func TestReceiverIsCollectingTracksFrameState(t *testing.T) {
	r := NewReceiver(Options{Chan: 0}, func(Candidate) {})
	require.False(t, r.IsCollecting(), "should be clear before any flag is seen")

	r.ProcessBits(flagBits())
	require.True(t, r.IsCollecting(), "should assert once a frame has been opened")

	framed := sampleFramed(t)
	r.ProcessBits(StuffBits(bitsFromBytes(framed)))
	require.True(t, r.IsCollecting(), "should stay asserted mid-frame")

	r.ProcessBits(flagBits())
	require.True(t, r.IsCollecting(), "closing flag immediately reopens the next frame")
}

func TestReceiverIsCollectingClearsOnAbort(t *testing.T) {
	r := NewReceiver(Options{Chan: 0}, func(Candidate) {})
	r.ProcessBits(flagBits())
	require.True(t, r.IsCollecting())

	for i := 0; i < 7; i++ {
		r.ProcessBit(true)
	}
	require.False(t, r.IsCollecting(), "seven consecutive ones is an abort back to hunt")
}
