package calculator

import (
	"math"

	"StockSentinel/internal/model"
)

// lookbackRange scans bars[end-n+1 .. end] (clipped at 0) and returns the
// highest high and lowest low. NaN values are skipped; a window with no usable
// value yields -Inf/+Inf.
func lookbackRange(bars []model.Bar, end, n int) (high, low float64) {
	start := end - n + 1
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i <= end; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low
}
