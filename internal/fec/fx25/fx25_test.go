package fx25

import (
	"testing"

	"github.com/doismellburning/samoyed/internal/ax25"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codecs := NewCodecs()
	tag := Tags[4] // smallest block, fastest test
	payload := []byte("hi there")

	wire := Encode(tag, payload, codecs)
	require.Len(t, wire, 8+tag.N)

	window := uint64(0)
	for i := 0; i < 8; i++ {
		window |= uint64(wire[i]) << (uint(i) * 8)
	}

	result, ok := Decode(window, wire[8:], codecs)
	require.True(t, ok)
	require.Equal(t, ax25.RetryNone, result.RetryLevel)
	require.Equal(t, payload, result.Payload[:len(payload)])
}

func TestCorrelateRejectsUnrelatedWindow(t *testing.T) {
	codecs := NewCodecs()
	_, ok := Decode(0x0123456789ABCDEF, make([]byte, Tags[0].N), codecs)
	require.False(t, ok)
}

func TestDecodeReportsExactCorrectedSymbolCount(t *testing.T) {
	codecs := NewCodecs()
	tag := Tags[0] // N=255, K=239: 16 parity symbols, corrects up to 8
	payload := []byte("reports exact corrected symbol counts, not a binary collapse")

	wire := Encode(tag, payload, codecs)
	window := uint64(0)
	for i := 0; i < 8; i++ {
		window |= uint64(wire[i]) << (uint(i) * 8)
	}
	block := append([]byte(nil), wire[8:]...)
	for i := 0; i < 3; i++ {
		block[i] ^= 0x01
	}

	result, ok := Decode(window, block, codecs)
	require.True(t, ok)
	require.Equal(t, 3, result.CorrectedSymbols)
	require.Equal(t, ax25.RetrySingle, result.RetryLevel)
}

func TestCorrelateToleratesBitErrors(t *testing.T) {
	tag := Tags[2]
	corrupted := tag.Value ^ 0x0F // 4 bit errors, within threshold
	got, ok := correlate(corrupted)
	require.True(t, ok)
	require.Equal(t, tag.Value, got.Value)
}
