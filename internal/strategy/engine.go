package strategy

import (
	"fmt"

	"StockSentinel/internal/model"
)

// Thresholds are the weekly J levels that trigger a signal.
type Thresholds struct {
	BuyJ  float64
	SellJ float64
}

// DefaultThresholds buys at J <= -5 and sells at J >= 105.
func DefaultThresholds() Thresholds {
	return Thresholds{BuyJ: -5, SellJ: 105}
}

// Evaluate derives a signal from a weekly KDJ snapshot. An undefined J always holds.
func Evaluate(snap model.KDJSnapshot, th Thresholds) model.Signal {
	sig := model.Signal{
		Code:   snap.Code,
		Date:   snap.Date,
		J:      snap.J,
		Action: model.ActionHold,
	}
	if !snap.J.Valid {
		sig.Reason = "weekly J undefined: not enough history"
		return sig
	}

	j := snap.J.Float64
	zone := zoneOf(j, th)
	switch {
	case j <= th.BuyJ:
		sig.Action = model.ActionBuy
		sig.Reason = fmt.Sprintf("J %.2f <= %.2f (%s)", j, th.BuyJ, zone)
	case j >= th.SellJ:
		sig.Action = model.ActionSell
		sig.Reason = fmt.Sprintf("J %.2f >= %.2f (%s)", j, th.SellJ, zone)
	default:
		sig.Reason = fmt.Sprintf("J %.2f (%s)", j, zone)
	}
	if m := momentum(snap); m != "" {
		sig.Reason += ", " + m
	}
	return sig
}
