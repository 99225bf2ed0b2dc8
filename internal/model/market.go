package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v5"
)

// DateLayout is the calendar-date format used on the wire and by the data source.
const DateLayout = "2006-01-02"

// Period is the sampling period of a bar series.
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

// ParsePeriod accepts the long names as well as the single-letter data source frequencies.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "d":
		return Daily, nil
	case "weekly", "w":
		return Weekly, nil
	case "monthly", "m":
		return Monthly, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Frequency returns the data source frequency code for the period.
func (p Period) Frequency() string {
	switch p {
	case Weekly:
		return "w"
	case Monthly:
		return "m"
	default:
		return "d"
	}
}

// AdjustMode selects the price adjustment applied by the data source.
type AdjustMode string

const (
	AdjustBackward AdjustMode = "1"
	AdjustForward  AdjustMode = "2"
	AdjustNone     AdjustMode = "3"
)

// ParseAdjustMode returns AdjustNone for an empty string.
func ParseAdjustMode(s string) (AdjustMode, error) {
	switch AdjustMode(strings.TrimSpace(s)) {
	case "":
		return AdjustNone, nil
	case AdjustBackward:
		return AdjustBackward, nil
	case AdjustForward:
		return AdjustForward, nil
	case AdjustNone:
		return AdjustNone, nil
	}
	return "", fmt.Errorf("unknown adjust flag %q", s)
}

// Bar represents one sampling period of market data.
type Bar struct {
	Date     time.Time
	Code     string
	Open     float64
	High     float64
	Low      float64
	Close    float64
	PreClose null.Float
	Volume   null.Float
	Amount   null.Float
	Turn     null.Float
	PctChg   null.Float
}

type barJSON struct {
	Date     string     `json:"date"`
	Code     string     `json:"code"`
	Open     float64    `json:"open"`
	High     float64    `json:"high"`
	Low      float64    `json:"low"`
	Close    float64    `json:"close"`
	PreClose null.Float `json:"preclose"`
	Volume   null.Float `json:"volume"`
	Amount   null.Float `json:"amount"`
	Turn     null.Float `json:"turn"`
	PctChg   null.Float `json:"pctChg"`
}

func (b Bar) MarshalJSON() ([]byte, error) {
	return json.Marshal(barJSON{
		Date:     b.Date.Format(DateLayout),
		Code:     b.Code,
		Open:     b.Open,
		High:     b.High,
		Low:      b.Low,
		Close:    b.Close,
		PreClose: b.PreClose,
		Volume:   b.Volume,
		Amount:   b.Amount,
		Turn:     b.Turn,
		PctChg:   b.PctChg,
	})
}

func (b *Bar) UnmarshalJSON(data []byte) error {
	var raw barJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d, err := time.Parse(DateLayout, raw.Date)
	if err != nil {
		return fmt.Errorf("bar date: %w", err)
	}
	*b = Bar{
		Date:     d,
		Code:     raw.Code,
		Open:     raw.Open,
		High:     raw.High,
		Low:      raw.Low,
		Close:    raw.Close,
		PreClose: raw.PreClose,
		Volume:   raw.Volume,
		Amount:   raw.Amount,
		Turn:     raw.Turn,
		PctChg:   raw.PctChg,
	}
	return nil
}

// Series is an ordered run of bars for a single instrument, strictly increasing by date.
type Series struct {
	Code string `json:"code"`
	Bars []Bar  `json:"bars"`
}

func (s Series) Len() int { return len(s.Bars) }

// Last returns the most recent bar.
func (s Series) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}
