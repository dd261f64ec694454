package export

// DefaultStatsWindow is the number of leading samples summarised per channel.
const DefaultStatsWindow = 1000

// edgeCount is how many values First and Last hold.
const edgeCount = 5

// Stats summarises the start of one channel.
type Stats struct {
	Length int
	// Window is the number of samples Min, Max and Avg cover.
	Window int
	Min    float64
	Max    float64
	Avg    float64
	First  []float64
	Last   []float64
}

// ChannelStats summarises ch over its first window samples.
// A non-positive window uses DefaultStatsWindow.
func ChannelStats(ch []float64, window int) Stats {
	if window <= 0 {
		window = DefaultStatsWindow
	}
	st := Stats{Length: len(ch), Window: min(window, len(ch))}
	if st.Window == 0 {
		return st
	}

	st.Min, st.Max = ch[0], ch[0]
	var sum float64
	for _, v := range ch[:st.Window] {
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
		sum += v
	}
	st.Avg = sum / float64(st.Window)

	st.First = append([]float64(nil), ch[:min(edgeCount, len(ch))]...)
	st.Last = append([]float64(nil), ch[len(ch)-min(edgeCount, len(ch)):]...)
	return st
}
