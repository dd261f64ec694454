package anthem

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// MinChannelLength is the shortest channel Synthesize produces.
const MinChannelLength = 64

// Synthesize maps a tuple stream to a channel.
//
// Tuples become complex(nameLength, value), the sequence is zero-padded to
// PaddedLength(len(stream)), inverse-transformed, and the real part of each
// output is passed through SignedLog. The result is not normalised.
func Synthesize(stream TupleStream) Channel {
	n := PaddedLength(len(stream))

	in := make([]complex128, n)
	for i, t := range stream {
		in[i] = complex(float64(t.NameLength), t.Value)
	}

	out := fft.IFFT(in)

	ch := make(Channel, n)
	for i, c := range out {
		ch[i] = SignedLog(real(c))
	}
	return ch
}

// PaddedLength returns the smallest power of two ≥ max(n, MinChannelLength).
func PaddedLength(n int) int {
	size := MinChannelLength
	for size < n {
		size <<= 1
	}
	return size
}

// SignedLog compresses r while keeping its sign: ln r, -ln(-r), or 0.
func SignedLog(r float64) float64 {
	switch {
	case r > 0:
		return math.Log(r)
	case r < 0:
		return -math.Log(-r)
	default:
		return 0
	}
}
