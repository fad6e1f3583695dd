package hdlc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func bitsFromBytes(data []byte) []bool {
	var bits []bool
	for _, b := range data {
		for i := 0; i < 8; i++ {
			bits = append(bits, b&(1<<uint(i)) != 0)
		}
	}
	return bits
}

func TestStuffUnstuffRoundTrip(t *testing.T) {
	src := rand.NewSource(1)
	rnd := rand.New(src)
	data := make([]byte, 64)
	rnd.Read(data)

	bits := bitsFromBytes(data)
	stuffed := StuffBits(bits)
	unstuffed := UnstuffBits(stuffed)

	require.Equal(t, bits, unstuffed)
}

func TestStuffInsertsZeroAfterFiveOnes(t *testing.T) {
	bits := []bool{true, true, true, true, true, false, true}
	stuffed := StuffBits(bits)

	// five 1s, then the inserted stuff bit, then the rest unchanged.
	require.Equal(t, []bool{true, true, true, true, true, false, false, true}, stuffed)

	require.Equal(t, bits, UnstuffBits(stuffed))
}

func TestStuffNeverProducesSixConsecutiveOnes(t *testing.T) {
	bits := make([]bool, 40)
	for i := range bits {
		bits[i] = true
	}
	stuffed := StuffBits(bits)

	run := 0
	for _, b := range stuffed {
		if b {
			run++
			require.LessOrEqual(t, run, 5)
		} else {
			run = 0
		}
	}
}
