package engine

// DefaultRateWindow is the number of ticks Rate looks back over.
const DefaultRateWindow = 5

// Rate returns, for every point of a done-count history, how many units were
// finished during the preceding window ticks.
func Rate(history []int, window int) []int {
	if window < 1 {
		window = 1
	}
	out := make([]int, len(history))
	for i := range history {
		from := i - window
		if from < 0 {
			from = 0
		}
		out[i] = history[i] - history[from]
	}
	return out
}

// MeanThroughput is the average number of units finished per tick over the
// whole history.
func MeanThroughput(history []int) float64 {
	if len(history) < 2 {
		return 0
	}
	return float64(history[len(history)-1]-history[0]) / float64(len(history)-1)
}

// Throughput returns a copy of the done-count history of the current run.
func (e *Engine) Throughput() []int {
	return append([]int(nil), e.cur.state.DoneHistory...)
}
