// Package retry runs operations under a per-attempt timeout with a bounded
// retry budget.
//
// Attempts are strictly sequential: when an attempt times out it is cancelled
// and the executor blocks until the attempt has returned before starting the
// next one. Operations that hold a non-reentrant upstream session therefore
// never overlap. Only timeouts are retried; any other error is returned as is.
package retry

import (
	"context"
	"log/slog"
	"time"

	"StockSentinel/internal/model"
)

const (
	DefaultTimeout     = 60 * time.Second
	DefaultMaxAttempts = 3
)

// Observer receives every finished attempt.
type Observer interface {
	ObserveAttempt(op string, a model.Attempt)
}

// Executor holds the timeout and attempt budget shared by every wrapped call.
type Executor struct {
	timeout     time.Duration
	maxAttempts int
	logger      *slog.Logger
	observer    Observer
}

// Option configures an Executor.
type Option func(*Executor)

func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

func WithMaxAttempts(n int) Option {
	return func(e *Executor) { e.maxAttempts = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Executor) { e.observer = o }
}

// New creates an Executor with a 60s timeout and 3 attempts unless overridden.
func New(opts ...Option) *Executor {
	e := &Executor{
		timeout:     DefaultTimeout,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Timeout() time.Duration { return e.timeout }
func (e *Executor) MaxAttempts() int       { return e.maxAttempts }

// Report carries the value of a wrapped call and the attempts it took.
// OK is false when no attempt produced a value.
type Report[T any] struct {
	Value    T
	OK       bool
	Attempts []model.Attempt
}

type outcome[T any] struct {
	value T
	err   error
}

// Run executes op under e's policy. name identifies the operation in logs,
// metrics and the TimeoutExhaustedError; it never changes behaviour.
func Run[T any](ctx context.Context, e *Executor, name string, op func(ctx context.Context) (T, error)) (Report[T], error) {
	var rep Report[T]
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		started := time.Now()
		res, timedOut, ctxErr := runAttempt(ctx, e.timeout, name, op)

		a := model.Attempt{Number: attempt + 1, StartedAt: started, Elapsed: time.Since(started)}
		switch {
		case ctxErr != nil:
			a.Outcome = model.OutcomeError
		case timedOut:
			a.Outcome = model.OutcomeTimeout
		case res.err != nil:
			a.Outcome = model.OutcomeError
		default:
			a.Outcome = model.OutcomeSuccess
		}
		rep.Attempts = append(rep.Attempts, a)
		e.observe(name, a)

		if ctxErr != nil {
			e.logger.Warn("operation abandoned", "op", name, "attempt", a.Number, "max_attempts", e.maxAttempts, "error", ctxErr)
			return rep, ctxErr
		}
		if timedOut {
			e.logger.Warn("operation timed out", "op", name, "attempt", a.Number, "max_attempts", e.maxAttempts, "timeout", e.timeout)
			if attempt == e.maxAttempts-1 {
				e.logger.Error("operation reached max attempts", "op", name, "attempts", a.Number)
				return rep, &TimeoutExhaustedError{Op: name, Attempts: a.Number, Timeout: e.timeout}
			}
			continue
		}
		if res.err != nil {
			e.logger.Error("operation failed", "op", name, "attempt", a.Number, "error", res.err)
			return rep, res.err
		}
		rep.Value = res.value
		rep.OK = true
		return rep, nil
	}
	return rep, nil
}

// runAttempt runs op once. It returns only after the goroutine running op has
// finished, whether op completed, timed out or the parent context ended.
func runAttempt[T any](ctx context.Context, timeout time.Duration, name string, op func(ctx context.Context) (T, error)) (outcome[T], bool, error) {
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		var res outcome[T]
		defer func() {
			if r := recover(); r != nil {
				res = outcome[T]{err: &PanicError{Op: name, Value: r}}
			}
			done <- res
		}()
		v, err := op(attemptCtx)
		res = outcome[T]{value: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res, false, nil
	case <-timer.C:
		// A result that landed together with the timer still counts.
		select {
		case res := <-done:
			return res, false, nil
		default:
		}
		cancel()
		<-done
		return outcome[T]{}, true, nil
	case <-ctx.Done():
		cancel()
		<-done
		return outcome[T]{}, false, ctx.Err()
	}
}

func (e *Executor) observe(name string, a model.Attempt) {
	if e.observer != nil {
		e.observer.ObserveAttempt(name, a)
	}
}
