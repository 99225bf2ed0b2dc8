package model

import "time"

// AttemptOutcome is the result class of one execution try.
type AttemptOutcome string

const (
	OutcomeSuccess AttemptOutcome = "success"
	OutcomeTimeout AttemptOutcome = "timeout"
	OutcomeError   AttemptOutcome = "error"
)

// Attempt records a single try of a wrapped operation.
type Attempt struct {
	Number    int
	StartedAt time.Time
	Elapsed   time.Duration
	Outcome   AttemptOutcome
}
