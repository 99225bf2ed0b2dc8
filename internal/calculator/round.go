package calculator

import (
	"strconv"

	"github.com/guregu/null/v5"
	"github.com/shopspring/decimal"
)

// Round2 rounds a defined value to two decimal places. It rounds the exact
// binary value, half to even, so 2.675 (stored as 2.67499...) gives 2.67.
// Undefined values stay undefined.
func Round2(v null.Float) null.Float {
	if !v.Valid || !isFinite(v.Float64) {
		return null.Float{}
	}
	// 1074 fractional digits spell out any float64 exactly.
	d, err := decimal.NewFromString(strconv.FormatFloat(v.Float64, 'f', 1074, 64))
	if err != nil {
		return null.Float{}
	}
	f, _ := d.RoundBank(2).Float64()
	return null.FloatFrom(f)
}
