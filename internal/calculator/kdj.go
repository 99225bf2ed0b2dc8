package calculator

import (
	"errors"
	"math"

	"StockSentinel/internal/model"

	"github.com/guregu/null/v5"
)

// KDJParams are the lookback window and the two smoothing factors.
type KDJParams struct {
	N  int
	M1 int
	M2 int
}

// DefaultKDJParams returns the conventional KDJ(9,3,3).
func DefaultKDJParams() KDJParams {
	return KDJParams{N: 9, M1: 3, M2: 3}
}

func (p KDJParams) Validate() error {
	if p.N <= 0 {
		return errors.New("kdj: n must be positive")
	}
	if p.M1 <= 0 || p.M2 <= 0 {
		return errors.New("kdj: smoothing factors must be positive")
	}
	return nil
}

const kdjSeed = 50.0

// RSV computes the raw stochastic value for every bar. Indices with fewer
// than n bars of history are undefined; a flat window yields 50.
func RSV(bars []model.Bar, n int) []null.Float {
	out := make([]null.Float, len(bars))
	for i := n - 1; i < len(bars); i++ {
		if !isFinite(bars[i].Close) {
			continue
		}
		high, low := lookbackRange(bars, i, n)
		if high == low {
			out[i] = null.FloatFrom(50)
			continue
		}
		v := 100 * (bars[i].Close - low) / (high - low)
		if isFinite(v) {
			out[i] = null.FloatFrom(v)
		}
	}
	return out
}

// KDJ computes the full K/D/J series aligned 1:1 with s.Bars.
//
// K and D start from a seed of 50 at the first defined RSV and are only
// updated where RSV is defined; in between they carry forward. Rows before
// the first defined RSV have no K/D/J at all.
func KDJ(s model.Series, p KDJParams) ([]model.KDJPoint, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	out := make([]model.KDJPoint, len(s.Bars))
	if len(s.Bars) == 0 {
		return out, nil
	}

	rsv := RSV(s.Bars, p.N)
	m1, m2 := float64(p.M1), float64(p.M2)

	k, d := kdjSeed, kdjSeed
	seeded := false
	for i, bar := range s.Bars {
		out[i].Date = bar.Date
		if rsv[i].Valid {
			k = (m1-1)/m1*k + 1/m1*rsv[i].Float64
			d = (m2-1)/m2*d + 1/m2*k
			seeded = true
		}
		if !seeded {
			continue
		}
		j := 3*k - 2*d
		out[i].K = finite(k)
		out[i].D = finite(d)
		out[i].J = finite(j)
	}
	return out, nil
}

// Latest returns the last point of a KDJ series.
func Latest(points []model.KDJPoint) (model.KDJPoint, bool) {
	if len(points) == 0 {
		return model.KDJPoint{}, false
	}
	return points[len(points)-1], true
}

func finite(v float64) null.Float {
	if !isFinite(v) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
