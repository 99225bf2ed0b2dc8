package strategy

import (
	"fmt"

	"StockSentinel/internal/model"
)

// Zone names where the J line sits relative to the 0..100 band and the thresholds.
type Zone string

const (
	ZoneExtremeOversold   Zone = "extreme oversold"
	ZoneOversold          Zone = "oversold"
	ZoneNeutral           Zone = "neutral"
	ZoneOverbought        Zone = "overbought"
	ZoneExtremeOverbought Zone = "extreme overbought"
)

// zoneOf classifies j. Thresholds take precedence over the 0..100 band.
func zoneOf(j float64, th Thresholds) Zone {
	switch {
	case j <= th.BuyJ:
		return ZoneExtremeOversold
	case j < 0:
		return ZoneOversold
	case j <= 100:
		return ZoneNeutral
	case j < th.SellJ:
		return ZoneOverbought
	default:
		return ZoneExtremeOverbought
	}
}

// momentum describes K against D.
func momentum(snap model.KDJSnapshot) string {
	if !snap.K.Valid || !snap.D.Valid {
		return ""
	}
	switch {
	case snap.K.Float64 > snap.D.Float64:
		return fmt.Sprintf("K %.2f above D %.2f", snap.K.Float64, snap.D.Float64)
	case snap.K.Float64 < snap.D.Float64:
		return fmt.Sprintf("K %.2f below D %.2f", snap.K.Float64, snap.D.Float64)
	}
	return fmt.Sprintf("K equals D at %.2f", snap.K.Float64)
}
