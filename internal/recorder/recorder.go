package recorder

import (
	"time"

	"StockSentinel/internal/model"

	"github.com/guregu/null/v5"
)

// KDJRecord is one served weekly KDJ snapshot.
type KDJRecord struct {
	Code       string
	Date       string // week label, YYYY-MM-DD
	K          null.Float
	D          null.Float
	J          null.Float
	Trigger    model.TriggerType
	RecordedAt time.Time
}

// CallRecord audits one executor-wrapped call.
type CallRecord struct {
	ID        string
	Op        string
	Code      string
	StartedAt time.Time
	Elapsed   time.Duration
	Attempts  []model.Attempt
	Err       string // empty on success
}

// Outcome returns the outcome of the final attempt, or "" when none ran.
func (c *CallRecord) Outcome() model.AttemptOutcome {
	if len(c.Attempts) == 0 {
		return ""
	}
	return c.Attempts[len(c.Attempts)-1].Outcome
}

// Recorder persists served indicators and call history for analysis.
type Recorder interface {
	RecordKDJ(rec *KDJRecord) error
	RecordCall(rec *CallRecord) error
	RecentKDJ(code string, limit int) ([]KDJRecord, error)
	Close() error
}
