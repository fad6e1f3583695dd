package hdlc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendFCSCheckFCSRoundTrip(t *testing.T) {
	data := []byte("N0CALL>APRS:hello world")
	framed := AppendFCS(data)
	require.True(t, CheckFCS(framed))
}

func TestFlippingAnyBitInvalidatesFCS(t *testing.T) {
	data := []byte{0x82, 0xA0, 0xA4, 0xAE, 0x9C, 0x62, 0x60, 0x03, 0xF0, 'h', 'i'}
	framed := AppendFCS(data)

	for i := 0; i < len(framed)*8; i++ {
		corrupt := append([]byte(nil), framed...)
		flipBit(corrupt, i)
		require.False(t, CheckFCS(corrupt), "bit %d", i)
	}
}
