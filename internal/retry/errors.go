package retry

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeoutExhausted matches any TimeoutExhaustedError via errors.Is.
var ErrTimeoutExhausted = errors.New("retry: timeout exhausted")

// TimeoutExhaustedError is returned when every attempt of an operation timed out.
type TimeoutExhaustedError struct {
	Op       string
	Attempts int
	Timeout  time.Duration
}

func (e *TimeoutExhaustedError) Error() string {
	return fmt.Sprintf("%s: timed out after %d attempts (%v each)", e.Op, e.Attempts, e.Timeout)
}

func (e *TimeoutExhaustedError) Is(target error) bool {
	return target == ErrTimeoutExhausted
}

// PanicError wraps a panic raised inside an attempt.
type PanicError struct {
	Op    string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: panic: %v", e.Op, e.Value)
}
