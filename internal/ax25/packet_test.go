package ax25

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) Address {
	t.Helper()
	a, err := ParseAddress(s)
	require.NoError(t, err)
	return a
}

func TestFromBytesToBytesRoundTrip(t *testing.T) {
	p := &Packet{
		Addrs: []Address{
			mustParse(t, "APRS"),
			mustParse(t, "N0CALL-7"),
			mustParse(t, "WIDE1-1"),
			mustParse(t, "WIDE2-2"),
		},
		Control: 0x03,
		HasPID:  true,
		PID:     0xF0,
		Info:    []byte("hello world"),
	}
	raw := p.ToBytes()

	got, err := FromBytes(raw)
	require.NoError(t, err)

	if diff := cmp.Diff(p, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	// to_bytes(from_bytes(B)) == B
	require.Equal(t, raw, got.ToBytes())
}

func TestFromBytesTooShort(t *testing.T) {
	_, err := FromBytes([]byte{0x01, 0x02, 0x03})
	require.Error(t, err)
	var fe *FrameError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, FaultTooShort, fe.Kind)
}

func TestDupIsIndependentCopy(t *testing.T) {
	p := &Packet{
		Addrs:   []Address{mustParse(t, "KC1ABC"), mustParse(t, "APRS")},
		Control: 0x03,
		HasPID:  true,
		PID:     0xF0,
		Info:    []byte("test"),
	}
	dup := p.Dup()

	require.Equal(t, p.Info, dup.Info)
	dup.Info[0] = 'X'
	require.NotEqual(t, p.Info[0], dup.Info[0])

	dup.Addrs[0].Call = "DIFFERENT"
	require.NotEqual(t, p.Addrs[0].Call, dup.Addrs[0].Call)
}

func TestInsertRemoveAddr(t *testing.T) {
	p := &Packet{
		Addrs: []Address{mustParse(t, "DEST"), mustParse(t, "SRC")},
	}
	rep := mustParse(t, "WIDE1-1")
	require.NoError(t, p.InsertAddr(Repeater1, rep))
	require.Len(t, p.Addrs, 3)
	require.Equal(t, "WIDE1-1", p.Addrs[Repeater1].String())

	p.RemoveAddr(Repeater1)
	require.Len(t, p.Addrs, 2)
	require.Equal(t, "SRC", p.Addrs[Source].Call)
}

func TestFirstNotRepeatedAndHeard(t *testing.T) {
	p := &Packet{
		Addrs: []Address{
			mustParse(t, "DEST"),
			mustParse(t, "SRC"),
			mustParse(t, "WIDE1-1"),
			mustParse(t, "WIDE2-2"),
		},
	}
	require.Equal(t, Repeater1, p.FirstNotRepeated())
	require.Equal(t, Source, p.Heard())

	p.SetH(Repeater1, true)
	require.Equal(t, Repeater1+1, p.FirstNotRepeated())
	require.Equal(t, Repeater1, p.Heard())

	p.SetH(Repeater1+1, true)
	require.Equal(t, -1, p.FirstNotRepeated())
	require.Equal(t, Repeater1+1, p.Heard())
}

func TestIsAPRS(t *testing.T) {
	p := &Packet{
		Addrs:   []Address{mustParse(t, "APRS"), mustParse(t, "N0CALL")},
		Control: 0x03,
		HasPID:  true,
		PID:     0xF0,
	}
	require.True(t, p.IsAPRS())

	p.PID = 0xCF
	require.False(t, p.IsAPRS())
}

func TestFrameTypeUI(t *testing.T) {
	p := &Packet{Control: 0x03}
	require.Equal(t, FrameUUI, p.FrameType())
}

func TestFrameTypeI(t *testing.T) {
	p := &Packet{Control: 0x00}
	require.Equal(t, FrameI, p.FrameType())
}
