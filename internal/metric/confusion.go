package metric

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Names of the confusion-matrix statistics.
const (
	OverallACC = "Overall ACC"
	Kappa      = "Kappa"
	F1Macro    = "F1 Macro"
	F1Micro    = "F1 Micro"
	PPVMacro   = "PPV Macro"
	TPRMacro   = "TPR Macro"
	CI95       = "95% CI"
)

// ConfusionStats lists the statistics ConfusionMatrix.Stats produces, in
// output order.
var ConfusionStats = []string{OverallACC, Kappa, F1Macro, F1Micro, PPVMacro, TPRMacro, CI95}

// ConfusionMatrix counts (actual, predicted) label pairs. Every distinct
// value is its own class.
type ConfusionMatrix struct {
	Classes []float64
	Counts  [][]int
	N       int
}

func NewConfusionMatrix(actual, predicted []float64) *ConfusionMatrix {
	seen := make(map[float64]bool)
	var classes []float64
	for _, vals := range [][]float64{actual, predicted} {
		for _, v := range vals {
			if !seen[v] {
				seen[v] = true
				classes = append(classes, v)
			}
		}
	}
	sort.Float64s(classes)

	index := make(map[float64]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	counts := make([][]int, len(classes))
	for i := range counts {
		counts[i] = make([]int, len(classes))
	}
	n := min(len(actual), len(predicted))
	for i := 0; i < n; i++ {
		counts[index[actual[i]]][index[predicted[i]]]++
	}
	return &ConfusionMatrix{Classes: classes, Counts: counts, N: n}
}

type classCounts struct {
	tp, fp, fn int
}

func (cm *ConfusionMatrix) perClass() []classCounts {
	out := make([]classCounts, len(cm.Classes))
	for i := range cm.Classes {
		out[i].tp = cm.Counts[i][i]
		for j := range cm.Classes {
			if j == i {
				continue
			}
			out[i].fp += cm.Counts[j][i]
			out[i].fn += cm.Counts[i][j]
		}
	}
	return out
}

func (cm *ConfusionMatrix) accuracy() (float64, bool) {
	if cm.N == 0 {
		return 0, false
	}
	correct := 0
	for i := range cm.Classes {
		correct += cm.Counts[i][i]
	}
	return float64(correct) / float64(cm.N), true
}

// Stats computes every statistic in ConfusionStats.
func (cm *ConfusionMatrix) Stats() *Set {
	out := NewSet()
	acc, ok := cm.accuracy()
	if !ok {
		for _, name := range ConfusionStats {
			out.Set(name, Null())
		}
		return out
	}
	classes := cm.perClass()

	out.Set(OverallACC, Number(acc))
	out.Set(Kappa, cm.kappa(acc))
	out.Set(F1Macro, macro(classes, func(c classCounts) (float64, bool) {
		return ratio(float64(2*c.tp), float64(2*c.tp+c.fp+c.fn))
	}))

	var tp, fp, fn int
	for _, c := range classes {
		tp += c.tp
		fp += c.fp
		fn += c.fn
	}
	if f1, ok := ratio(float64(2*tp), float64(2*tp+fp+fn)); ok {
		out.Set(F1Micro, Number(f1))
	} else {
		out.Set(F1Micro, Null())
	}

	out.Set(PPVMacro, macro(classes, func(c classCounts) (float64, bool) {
		return ratio(float64(c.tp), float64(c.tp+c.fp))
	}))
	out.Set(TPRMacro, macro(classes, func(c classCounts) (float64, bool) {
		return ratio(float64(c.tp), float64(c.tp+c.fn))
	}))

	se := math.Sqrt(acc * (1 - acc) / float64(cm.N))
	out.Set(CI95, Text(formatInterval(acc-1.959964*se, acc+1.959964*se)))
	return out
}

func (cm *ConfusionMatrix) kappa(po float64) Value {
	n := float64(cm.N)
	var pe float64
	for i := range cm.Classes {
		var row, col int
		for j := range cm.Classes {
			row += cm.Counts[i][j]
			col += cm.Counts[j][i]
		}
		pe += (float64(row) / n) * (float64(col) / n)
	}
	if pe == 1 {
		return Null()
	}
	return Number((po - pe) / (1 - pe))
}

// macro averages a per-class statistic. Any undefined class makes the
// average undefined.
func macro(classes []classCounts, stat func(classCounts) (float64, bool)) Value {
	if len(classes) == 0 {
		return Null()
	}
	var sum float64
	for _, c := range classes {
		v, ok := stat(c)
		if !ok {
			return Null()
		}
		sum += v
	}
	return Number(sum / float64(len(classes)))
}

func ratio(num, den float64) (float64, bool) {
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

func formatInterval(lo, hi float64) string {
	return fmt.Sprintf("(%s, %s)",
		strconv.FormatFloat(lo, 'g', -1, 64),
		strconv.FormatFloat(hi, 'g', -1, 64))
}
