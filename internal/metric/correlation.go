package metric

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// Rank returns the 1-based ranks of values. Tied values share the average of
// the ranks they span.
func Rank(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	ranks := make([]float64, len(values))
	i := 0
	for i < len(idx) {
		j := i + 1
		for j < len(idx) && values[idx[j]] == values[idx[i]] {
			j++
		}
		rank := (float64(i+1) + float64(j)) / 2.0
		for k := i; k < j; k++ {
			ranks[idx[k]] = rank
		}
		i = j
	}
	return ranks
}

// Pearson returns the Pearson correlation of x and y, or null when either
// series has zero variance or fewer than two points.
func Pearson(x, y []float64) Value {
	if len(x) != len(y) || len(x) < 2 {
		return Null()
	}
	mx, err := stats.Mean(x)
	if err != nil {
		return Null()
	}
	my, err := stats.Mean(y)
	if err != nil {
		return Null()
	}

	var num, dx2, dy2 float64
	for i := range x {
		dx := x[i] - mx
		dy := y[i] - my
		num += dx * dy
		dx2 += dx * dx
		dy2 += dy * dy
	}
	if dx2 == 0 || dy2 == 0 {
		return Null()
	}
	r := num / math.Sqrt(dx2*dy2)
	return Number(math.Max(-1, math.Min(1, r)))
}

// Spearman is the Pearson correlation of the average-tie ranks of actual and
// predicted.
func Spearman(actual, predicted []float64) Value {
	if len(actual) != len(predicted) {
		return Null()
	}
	return Pearson(Rank(actual), Rank(predicted))
}

func MeanAbsoluteError(actual, predicted []float64) Value {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return Null()
	}
	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return Number(sum / float64(len(actual)))
}

func RootMeanSquaredError(actual, predicted []float64) Value {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return Null()
	}
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return Number(math.Sqrt(sum / float64(len(actual))))
}
