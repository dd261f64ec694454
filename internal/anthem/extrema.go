package anthem

// Extrema returns the largest and smallest sample across all channels.
//
// Both are seeded at 0, so the reported range always includes zero. The scan
// is a single pass with constant auxiliary memory, whatever the sample count.
func Extrema(channels []Channel) (max, min float64) {
	for _, ch := range channels {
		for _, s := range ch {
			if s > max {
				max = s
			}
			if s < min {
				min = s
			}
		}
	}
	return max, min
}
