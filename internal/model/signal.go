package model

import "github.com/guregu/null/v5"

// SignalAction is the suggested action derived from the weekly J line.
type SignalAction string

const (
	ActionBuy  SignalAction = "BUY"
	ActionSell SignalAction = "SELL"
	ActionHold SignalAction = "HOLD"
)

// TriggerType indicates what produced the signal.
type TriggerType string

const (
	TriggerScheduled TriggerType = "SCHEDULED"
	TriggerManual    TriggerType = "MANUAL"
)

// Signal is the output of the strategy engine for one instrument.
type Signal struct {
	Code        string
	Date        string
	J           null.Float
	Action      SignalAction
	Reason      string
	TriggerType TriggerType
}

// Actionable reports whether the signal asks for a trade.
func (s Signal) Actionable() bool {
	return s.Action == ActionBuy || s.Action == ActionSell
}
