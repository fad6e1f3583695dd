package ax25

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAddressRoundTrip(t *testing.T) {
	cases := []string{"N0CALL", "N0CALL-15", "WIDE2-2", "KC1ABC-0"}
	for _, s := range cases {
		a, err := ParseAddress(s)
		require.NoError(t, err, s)
		enc := a.encode(true)
		got, ok := decodeAddress(enc[:])
		require.True(t, ok)
		require.Equal(t, a.Call, got.Call)
		require.Equal(t, a.SSID, got.SSID)
	}
}

func TestParseAddressRejectsBadSSID(t *testing.T) {
	_, err := ParseAddress("N0CALL-16")
	require.Error(t, err)

	_, err = ParseAddress("N0CALL-x")
	require.Error(t, err)
}

func TestParseAddressRejectsLongCall(t *testing.T) {
	_, err := ParseAddress("TOOLONGCALL")
	require.Error(t, err)
}

func TestAddressStringTrailingStar(t *testing.T) {
	a := Address{Call: "WIDE1", SSID: 1, H: true}
	require.Equal(t, "WIDE1-1*", a.String())
}

func TestEncodeDoesNotCorruptSSIDBits(t *testing.T) {
	// Regression: encode once packed a reserved-bits constant that
	// overlapped the SSID field, corrupting any nonzero SSID.
	for ssid := byte(0); ssid <= 15; ssid++ {
		a := Address{Call: "N0CALL", SSID: ssid, RR: 0x03}
		enc := a.encode(false)
		got, ok := decodeAddress(enc[:])
		require.True(t, ok)
		require.Equal(t, ssid, got.SSID, "ssid %d corrupted by encode", ssid)
	}
}
