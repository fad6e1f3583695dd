package hdlc

import "github.com/doismellburning/samoyed/internal/ax25"

// maxFixBitsBits bounds how many candidate bit positions the TRIPLE
// and DOUBLE searches consider, to keep the O(n^2)/O(n^3) combinatorics
// tractable on the frame lengths actually seen on packet radio (a few
// hundred bytes at most).
const maxFixBitsBits = 8 * 240

// FixBits attempts the SINGLE -> DOUBLE -> TRIPLE -> TWO_SEP retry
// ladder (spec.md §4.1) against a framed buffer (data + 2-byte FCS)
// whose naive FCS check failed. It returns the corrected buffer and
// the level at which a CRC-valid result was found, stopping at the
// first success.
func FixBits(framed []byte) ([]byte, ax25.RetryLevel, bool) {
	nbits := len(framed) * 8
	if nbits > maxFixBitsBits {
		nbits = maxFixBitsBits
	}

	if out, ok := trySingle(framed, nbits); ok {
		return out, ax25.RetrySingle, true
	}
	if out, ok := tryDouble(framed, nbits); ok {
		return out, ax25.RetryDouble, true
	}
	if out, ok := tryTriple(framed, nbits); ok {
		return out, ax25.RetryTriple, true
	}
	if out, ok := tryTwoSeparated(framed, nbits); ok {
		return out, ax25.RetryTwoSep, true
	}
	return nil, ax25.RetryNone, false
}

func flipBit(buf []byte, pos int) {
	buf[pos/8] ^= 1 << uint(pos%8)
}

func trySingle(framed []byte, nbits int) ([]byte, bool) {
	work := append([]byte(nil), framed...)
	for i := 0; i < nbits; i++ {
		flipBit(work, i)
		if CheckFCS(work) {
			return work, true
		}
		flipBit(work, i)
	}
	return nil, false
}

func tryDouble(framed []byte, nbits int) ([]byte, bool) {
	work := append([]byte(nil), framed...)
	for i := 0; i < nbits; i++ {
		flipBit(work, i)
		for j := i + 1; j < nbits; j++ {
			flipBit(work, j)
			if CheckFCS(work) {
				return work, true
			}
			flipBit(work, j)
		}
		flipBit(work, i)
	}
	return nil, false
}

// tripleMaxBits further bounds the TRIPLE search: direwolf itself only
// enables three-bit fixing at low baud rates, where frames are short.
const tripleMaxBits = 8 * 40

func tryTriple(framed []byte, nbits int) ([]byte, bool) {
	if nbits > tripleMaxBits {
		nbits = tripleMaxBits
	}
	work := append([]byte(nil), framed...)
	for i := 0; i < nbits; i++ {
		flipBit(work, i)
		for j := i + 1; j < nbits; j++ {
			flipBit(work, j)
			for k := j + 1; k < nbits; k++ {
				flipBit(work, k)
				if CheckFCS(work) {
					return work, true
				}
				flipBit(work, k)
			}
			flipBit(work, j)
		}
		flipBit(work, i)
	}
	return nil, false
}

// twoSepMinGap is the minimum bit distance required between the two
// flipped positions in the TWO_SEP pass, distinguishing it from the
// exhaustive (and already-tried) DOUBLE pass.
const twoSepMinGap = 8

func tryTwoSeparated(framed []byte, nbits int) ([]byte, bool) {
	work := append([]byte(nil), framed...)
	for i := 0; i < nbits; i++ {
		flipBit(work, i)
		for j := i + twoSepMinGap; j < nbits; j++ {
			flipBit(work, j)
			if CheckFCS(work) {
				return work, true
			}
			flipBit(work, j)
		}
		flipBit(work, i)
	}
	return nil, false
}
