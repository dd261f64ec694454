package anthem

import "math/rand"

// Placeholder returns an Anthem of uniformly random samples in [-1, 1).
//
// It stands in for the pipeline where no record source is reachable and is
// only used when explicitly configured. length is rounded up to a valid
// channel length.
func Placeholder(id string, length int, rnd *rand.Rand) *Anthem {
	n := PaddedLength(length)
	a := &Anthem{ID: id, Channels: make([]Channel, len(Kinds))}
	for i := range a.Channels {
		ch := make(Channel, n)
		for j := range ch {
			ch[j] = rnd.Float64()*2 - 1
		}
		a.Channels[i] = ch
	}
	return a
}
