package calculator

import (
	"math"
	"time"

	"StockSentinel/internal/model"

	"github.com/guregu/null/v5"
)

// Bucket is a calendar period that finer bars are grouped into.
type Bucket int

const (
	// Week groups Monday..Sunday and labels the bucket with its Sunday.
	Week Bucket = iota
	// Month groups a calendar month and labels the bucket with its last day.
	Month
)

func (b Bucket) key(t time.Time) int {
	if b == Month {
		return t.Year()*100 + int(t.Month())
	}
	y, w := t.ISOWeek()
	return y*100 + w
}

func (b Bucket) label(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	if b == Month {
		return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location())
	}
	return day.AddDate(0, 0, (7-int(day.Weekday()))%7)
}

// Resample aggregates a date-ordered series into calendar buckets: first open,
// max high, min low, last close. NaN prices are skipped, so a bucket field is
// NaN only when every bar in the bucket is. Buckets without bars are not emitted.
func Resample(s model.Series, b Bucket) model.Series {
	out := model.Series{Code: s.Code}
	if len(s.Bars) == 0 {
		return out
	}

	var cur model.Bar
	curKey := 0
	started := false

	for _, bar := range s.Bars {
		k := b.key(bar.Date)
		if !started || k != curKey {
			if started {
				out.Bars = append(out.Bars, cur)
			}
			cur = model.Bar{
				Date:     b.label(bar.Date),
				Code:     carryCode(s.Code, bar.Code),
				Open:     bar.Open,
				High:     bar.High,
				Low:      bar.Low,
				Close:    bar.Close,
				PreClose: bar.PreClose,
				Volume:   bar.Volume,
				Amount:   bar.Amount,
			}
			curKey = k
			started = true
			continue
		}
		if math.IsNaN(cur.Open) {
			cur.Open = bar.Open
		}
		if math.IsNaN(cur.High) || bar.High > cur.High {
			cur.High = bar.High
		}
		if math.IsNaN(cur.Low) || bar.Low < cur.Low {
			cur.Low = bar.Low
		}
		if !math.IsNaN(bar.Close) {
			cur.Close = bar.Close
		}
		cur.Volume = addNull(cur.Volume, bar.Volume)
		cur.Amount = addNull(cur.Amount, bar.Amount)
	}
	out.Bars = append(out.Bars, cur)
	return out
}

func carryCode(seriesCode, barCode string) string {
	if barCode != "" {
		return barCode
	}
	return seriesCode
}

func addNull(a, b null.Float) null.Float {
	switch {
	case a.Valid && b.Valid:
		return null.FloatFrom(a.Float64 + b.Float64)
	case b.Valid:
		return b
	default:
		return a
	}
}
