package calculator

import (
	"math"
	"testing"
	"time"

	"StockSentinel/internal/model"

	"github.com/guregu/null/v5"
)

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func bar(date string, open, high, low, close float64) model.Bar {
	return model.Bar{Date: day(date), Code: "sh.600000", Open: open, High: high, Low: low, Close: close}
}

func TestResample_Weekly(t *testing.T) {
	s := model.Series{Code: "sh.600000", Bars: []model.Bar{
		bar("2024-01-01", 10, 11, 9, 10.5),
		bar("2024-01-02", 10.5, 12, 10, 11),
		bar("2024-01-03", 11, 11.5, 8.5, 9),
		bar("2024-01-08", 9, 9.5, 8, 8.2),
		bar("2024-01-09", 8.2, 10, 8.1, 9.9),
		// no bars in the week of 2024-01-15
		bar("2024-01-22", 9.9, 10.2, 9.7, 10),
	}}

	got := Resample(s, Week)
	if got.Code != "sh.600000" {
		t.Errorf("code = %q", got.Code)
	}
	want := []model.Bar{
		{Date: day("2024-01-07"), Open: 10, High: 12, Low: 8.5, Close: 9},
		{Date: day("2024-01-14"), Open: 9, High: 10, Low: 8, Close: 9.9},
		{Date: day("2024-01-28"), Open: 9.9, High: 10.2, Low: 9.7, Close: 10},
	}
	if len(got.Bars) != len(want) {
		t.Fatalf("expected %d weekly bars, got %d", len(want), len(got.Bars))
	}
	for i, w := range want {
		g := got.Bars[i]
		if !g.Date.Equal(w.Date) {
			t.Errorf("bar %d: date = %s, want %s", i, g.Date.Format(model.DateLayout), w.Date.Format(model.DateLayout))
		}
		if g.Open != w.Open || g.High != w.High || g.Low != w.Low || g.Close != w.Close {
			t.Errorf("bar %d: got O=%v H=%v L=%v C=%v, want O=%v H=%v L=%v C=%v",
				i, g.Open, g.High, g.Low, g.Close, w.Open, w.High, w.Low, w.Close)
		}
		if g.Code != "sh.600000" {
			t.Errorf("bar %d: code not carried forward: %q", i, g.Code)
		}
	}
}

func TestResample_WeekAcrossYearBoundary(t *testing.T) {
	s := model.Series{Code: "sz.000001", Bars: []model.Bar{
		bar("2024-12-30", 1, 2, 1, 1.5),
		bar("2024-12-31", 1.5, 2.5, 1.2, 2),
		bar("2025-01-02", 2, 3, 1.8, 2.8),
	}}
	got := Resample(s, Week)
	if len(got.Bars) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(got.Bars))
	}
	if got.Bars[0].Date.Format(model.DateLayout) != "2025-01-05" {
		t.Errorf("label = %s, want 2025-01-05", got.Bars[0].Date.Format(model.DateLayout))
	}
	if got.Bars[0].High != 3 || got.Bars[0].Low != 1 {
		t.Errorf("high/low = %v/%v, want 3/1", got.Bars[0].High, got.Bars[0].Low)
	}
}

func TestResample_SundayBelongsToItsOwnWeek(t *testing.T) {
	s := model.Series{Bars: []model.Bar{
		bar("2024-01-07", 1, 1, 1, 1),
		bar("2024-01-08", 2, 2, 2, 2),
	}}
	got := Resample(s, Week)
	if len(got.Bars) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(got.Bars))
	}
	if got.Bars[0].Date.Format(model.DateLayout) != "2024-01-07" {
		t.Errorf("first label = %s, want 2024-01-07", got.Bars[0].Date.Format(model.DateLayout))
	}
}

func TestResample_Monthly(t *testing.T) {
	s := model.Series{Code: "sh.600000", Bars: []model.Bar{
		bar("2024-01-30", 5, 6, 4, 5.5),
		bar("2024-01-31", 5.5, 7, 5, 6),
		bar("2024-02-01", 6, 6.5, 3, 4),
	}}
	got := Resample(s, Month)
	if len(got.Bars) != 2 {
		t.Fatalf("expected 2 monthly bars, got %d", len(got.Bars))
	}
	if got.Bars[0].Date.Format(model.DateLayout) != "2024-01-31" || got.Bars[1].Date.Format(model.DateLayout) != "2024-02-29" {
		t.Errorf("labels = %s, %s", got.Bars[0].Date.Format(model.DateLayout), got.Bars[1].Date.Format(model.DateLayout))
	}
	if got.Bars[0].Open != 5 || got.Bars[0].High != 7 || got.Bars[0].Low != 4 || got.Bars[0].Close != 6 {
		t.Errorf("january aggregate wrong: %+v", got.Bars[0])
	}
}

func TestResample_SumsVolume(t *testing.T) {
	a := bar("2024-01-01", 1, 1, 1, 1)
	a.Volume = null.FloatFrom(100)
	b := bar("2024-01-02", 1, 1, 1, 1)
	b.Volume = null.FloatFrom(250)
	c := bar("2024-01-03", 1, 1, 1, 1)

	got := Resample(model.Series{Bars: []model.Bar{a, b, c}}, Week)
	if !got.Bars[0].Volume.Valid || got.Bars[0].Volume.Float64 != 350 {
		t.Errorf("volume = %+v, want 350", got.Bars[0].Volume)
	}
	if got.Bars[0].Amount.Valid {
		t.Error("amount should stay undefined when no bar carries it")
	}
}

func TestResample_Empty(t *testing.T) {
	got := Resample(model.Series{Code: "sh.600000"}, Week)
	if got.Len() != 0 {
		t.Errorf("expected empty series, got %d bars", got.Len())
	}
	if got.Code != "sh.600000" {
		t.Errorf("code = %q", got.Code)
	}
}

func TestResample_SkipsNaNPrices(t *testing.T) {
	nan := math.NaN()
	s := model.Series{Code: "sh.600000", Bars: []model.Bar{
		bar("2024-01-01", nan, nan, nan, 10),
		bar("2024-01-02", 10, 12, 9, 11),
		bar("2024-01-03", 11, 11.5, 8.5, nan),
		bar("2024-01-08", nan, nan, nan, nan),
	}}

	got := Resample(s, Week)
	if got.Len() != 2 {
		t.Fatalf("expected 2 weeks, got %d", got.Len())
	}
	w := got.Bars[0]
	if w.Open != 10 || w.High != 12 || w.Low != 8.5 || w.Close != 11 {
		t.Errorf("week = open %v high %v low %v close %v, want 10/12/8.5/11", w.Open, w.High, w.Low, w.Close)
	}
	all := got.Bars[1]
	if !math.IsNaN(all.High) || !math.IsNaN(all.Close) {
		t.Errorf("all-NaN week should stay NaN, got high %v close %v", all.High, all.Close)
	}
}
