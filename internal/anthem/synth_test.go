package anthem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaddedLength(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{0, 64}, {1, 64}, {63, 64}, {64, 64}, {65, 128}, {128, 128},
		{129, 256}, {132297, 262144}, {262144, 262144},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PaddedLength(tt.n), "n=%d", tt.n)
	}
}

func TestSynthesize_LengthIsPowerOfTwo(t *testing.T) {
	for _, n := range []int{0, 1, 4, 63, 64, 65, 100, 1000, 4097} {
		stream := make(TupleStream, n)
		for i := range stream {
			stream[i] = Tuple{NameLength: 4, Value: float64(i % 7)}
		}
		ch := Synthesize(stream)
		l := len(ch)
		assert.GreaterOrEqual(t, l, MinChannelLength, "n=%d", n)
		assert.GreaterOrEqual(t, l, n, "n=%d", n)
		assert.Zero(t, l&(l-1), "length %d is not a power of two", l)
	}
}

func TestSynthesize_EmptyStreamIsSilent(t *testing.T) {
	ch := Synthesize(nil)
	require.Len(t, ch, 64)
	for i, s := range ch {
		assert.Equal(t, 0.0, s, "sample %d", i)
	}
}

func TestSynthesize_ImpulseIsFlat(t *testing.T) {
	// A single real impulse inverse-transforms to a constant 1/N.
	ch := Synthesize(TupleStream{{NameLength: 1, Value: 0}})
	require.Len(t, ch, 64)
	want := -math.Log(64)
	for i, s := range ch {
		assert.InDelta(t, want, s, 1e-9, "sample %d", i)
	}
}

func TestSynthesize_NameAmountScenario(t *testing.T) {
	stream, _, err := BuildStream(FieldMap{"Name": "Bob", "Amount": 5}, FieldSchema{"Name", "Amount"}, 4)
	require.NoError(t, err)

	ch := Synthesize(stream)
	require.Len(t, ch, 64)
	// DC bin: (4+4+6+6)/64 = 0.3125.
	assert.InDelta(t, math.Log(20.0/64), ch[0], 1e-9)
	for _, s := range ch {
		assert.False(t, math.IsNaN(s) || math.IsInf(s, 0))
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	stream := TupleStream{{4, 3}, {6, 5}, {8, 13}}
	assert.Equal(t, Synthesize(stream), Synthesize(stream))
}

func TestSignedLog(t *testing.T) {
	assert.Equal(t, 0.0, SignedLog(0))
	assert.Equal(t, 0.0, SignedLog(math.Copysign(0, -1)))
	assert.InDelta(t, math.Log(10), SignedLog(10), 1e-12)
	assert.InDelta(t, -math.Log(10), SignedLog(-10), 1e-12)
	assert.Equal(t, 0.0, SignedLog(1))
	assert.Equal(t, 0.0, SignedLog(-1))
}

func TestSignedLog_PreservesSignAboveUnitMagnitude(t *testing.T) {
	for _, r := range []float64{1.0001, 2, math.E, 42, 1e6, 1e300} {
		assert.Greater(t, SignedLog(r), 0.0, "r=%v", r)
		assert.Less(t, SignedLog(-r), 0.0, "r=%v", -r)
		assert.Equal(t, -SignedLog(r), SignedLog(-r), "odd symmetry at %v", r)
	}
}

func TestSignedLog_FractionalMagnitudesFlip(t *testing.T) {
	// ln of a magnitude below one is negative; the formula is applied as is.
	assert.Less(t, SignedLog(0.5), 0.0)
	assert.Greater(t, SignedLog(-0.5), 0.0)
}
