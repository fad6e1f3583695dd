package rs

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeNoErrors(t *testing.T) {
	c := NewCodec(15, 11)
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	codeword := c.Encode(data)
	require.Len(t, codeword, 15)

	fixed, corrected, ok := c.Decode(codeword)
	require.True(t, ok)
	require.Equal(t, 0, corrected)
	require.Equal(t, codeword, fixed)
}

func TestDecodeCorrectsWithinCapacity(t *testing.T) {
	c := NewCodec(15, 11)
	data := []byte{9, 8, 7, 6, 5, 4, 3, 2, 1, 0, 255}
	codeword := c.Encode(data)

	rnd := rand.New(rand.NewSource(42))
	corrupt := append([]byte(nil), codeword...)
	// (n-k)/2 == 2 correctable symbol errors.
	positions := rnd.Perm(len(corrupt))[:2]
	for _, p := range positions {
		corrupt[p] ^= 0x55
	}

	fixed, corrected, ok := c.Decode(corrupt)
	require.True(t, ok)
	require.Equal(t, 2, corrected)
	require.Equal(t, codeword, fixed)
	require.Equal(t, data, fixed[:11])
}

func TestDecodeErrReportsWrongLength(t *testing.T) {
	c := NewCodec(15, 11)
	_, _, err := c.DecodeErr(make([]byte, 10))
	require.ErrorIs(t, err, ErrWrongLength)
}

func TestDecodeErrReportsTooManyErrors(t *testing.T) {
	c := NewCodec(15, 11)
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	codeword := c.Encode(data)

	corrupt := append([]byte(nil), codeword...)
	for i := 0; i < 4; i++ {
		corrupt[i] ^= 0xFF
	}

	_, _, err := c.DecodeErr(corrupt)
	require.Error(t, err)
}
