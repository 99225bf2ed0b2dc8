// Package service holds the entry points behind the HTTP routes. Every entry
// point runs under the retry executor and fails with an *ErrorReport, a
// *retry.TimeoutExhaustedError, or the caller's context error.
package service

import (
	"context"
	"log/slog"
	"time"

	"StockSentinel/internal/cache"
	"StockSentinel/internal/calculator"
	"StockSentinel/internal/logger"
	"StockSentinel/internal/model"
	"StockSentinel/internal/provider"
	"StockSentinel/internal/recorder"
	"StockSentinel/internal/retry"

	"github.com/google/uuid"
)

const (
	DefaultLookbackDays = 180
	DefaultCacheTTL     = 10 * time.Minute
)

// KDJCounter counts indicator computations.
type KDJCounter interface {
	IncKDJ()
}

// Service fetches bars and computes indicators.
type Service struct {
	provider     provider.Provider
	exec         *retry.Executor
	cache        cache.Cache
	cacheTTL     time.Duration
	recorder     recorder.Recorder
	log          *slog.Logger
	now          func() time.Time
	kdj          calculator.KDJParams
	lookbackDays int
	kdjAdjust    model.AdjustMode
	counter      KDJCounter
	version      string
}

// Option configures a Service.
type Option func(*Service)

func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func WithRecorder(r recorder.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock replaces time.Now for the KDJ date window.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithKDJParams(p calculator.KDJParams) Option {
	return func(s *Service) { s.kdj = p }
}

func WithLookbackDays(days int) Option {
	return func(s *Service) { s.lookbackDays = days }
}

// WithKDJAdjust sets the adjustment of the daily bars the KDJ is computed from.
func WithKDJAdjust(a model.AdjustMode) Option {
	return func(s *Service) { s.kdjAdjust = a }
}

func WithMetrics(c KDJCounter) Option {
	return func(s *Service) { s.counter = c }
}

func WithVersion(v string) Option {
	return func(s *Service) { s.version = v }
}

// New creates a Service. p should already be serialized when shared.
func New(p provider.Provider, exec *retry.Executor, opts ...Option) *Service {
	s := &Service{
		provider:     p,
		exec:         exec,
		cache:        cache.Noop{},
		cacheTTL:     DefaultCacheTTL,
		recorder:     recorder.NewNoopRecorder(),
		log:          slog.Default(),
		now:          time.Now,
		kdj:          calculator.DefaultKDJParams(),
		lookbackDays: DefaultLookbackDays,
		kdjAdjust:    model.AdjustForward,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type triggerKey struct{}

// WithTrigger tags ctx with what caused a KDJ computation. The default is MANUAL.
func WithTrigger(ctx context.Context, t model.TriggerType) context.Context {
	return context.WithValue(ctx, triggerKey{}, t)
}

func triggerFrom(ctx context.Context) model.TriggerType {
	if t, ok := ctx.Value(triggerKey{}).(model.TriggerType); ok {
		return t
	}
	return model.TriggerManual
}

// fetch returns the series for q from the cache or the provider.
func (s *Service) fetch(ctx context.Context, q provider.Query) (model.Series, error) {
	key := cache.Key(q)
	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn("cache get failed", append(logger.Attrs(ctx), "key", key, "error", err)...)
	} else if ok && cached.Len() > 0 {
		return cached, nil
	}

	series, err := provider.FetchBars(ctx, s.provider, q)
	if err != nil {
		return model.Series{}, report(ctx, err, q.Code)
	}
	if err := s.cache.Set(ctx, key, series, s.cacheTTL); err != nil {
		s.log.Warn("cache set failed", append(logger.Attrs(ctx), "key", key, "error", err)...)
	}
	return series, nil
}

// recordCall writes the audit row for one wrapped call.
func (s *Service) recordCall(ctx context.Context, op, code string, started time.Time, attempts []model.Attempt, err error) {
	rec := &recorder.CallRecord{
		ID:        uuid.NewString(),
		Op:        op,
		Code:      code,
		StartedAt: started,
		Elapsed:   time.Since(started),
		Attempts:  attempts,
	}
	if err != nil {
		rec.Err = err.Error()
	}
	if rerr := s.recorder.RecordCall(rec); rerr != nil {
		s.log.Warn("record call failed", append(logger.Attrs(ctx), "op", op, "code", code, "error", rerr)...)
	}
}

func (s *Service) logFailure(ctx context.Context, op, code string, err error) {
	s.log.Error("request failed", append(logger.Attrs(ctx), "op", op, "code", code, "error", err)...)
}
