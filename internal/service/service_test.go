package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"StockSentinel/internal/model"
	"StockSentinel/internal/provider"
	"StockSentinel/internal/recorder"
	"StockSentinel/internal/retry"
)

var today = time.Date(2024, 6, 5, 10, 0, 0, 0, time.UTC)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// flatDaily returns weekday bars at a constant price from start through today.
func flatDaily(code, start string, price float64) []model.Bar {
	d, _ := time.Parse(model.DateLayout, start)
	var bars []model.Bar
	for ; !d.After(today); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		bars = append(bars, model.Bar{Date: d, Code: code, Open: price, High: price, Low: price, Close: price})
	}
	return bars
}

type memRecorder struct {
	mu    sync.Mutex
	kdj   []recorder.KDJRecord
	calls []recorder.CallRecord
}

func (m *memRecorder) RecordKDJ(r *recorder.KDJRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kdj = append(m.kdj, *r)
	return nil
}

func (m *memRecorder) RecordCall(r *recorder.CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, *r)
	return nil
}

func (m *memRecorder) RecentKDJ(string, int) ([]recorder.KDJRecord, error) { return m.kdj, nil }
func (m *memRecorder) Close() error                                        { return nil }

type memCache struct {
	mu   sync.Mutex
	data map[string]model.Series
}

func (c *memCache) Get(_ context.Context, key string) (model.Series, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.data[key]
	return s, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, s model.Series, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = s
	return nil
}

type counter struct{ n int }

func (c *counter) IncKDJ() { c.n++ }

type fixture struct {
	mock *provider.MockProvider
	rec  *memRecorder
	svc  *Service
}

func newFixture(timeout time.Duration, opts ...Option) *fixture {
	m := &provider.MockProvider{Bars: map[string][]model.Bar{
		"sh.600000": flatDaily("sh.600000", "2024-01-01", 100),
		"sz.000001": flatDaily("sz.000001", "2024-05-01", 10),
	}}
	rec := &memRecorder{}
	exec := retry.New(retry.WithTimeout(timeout), retry.WithLogger(quiet()))
	base := []Option{WithRecorder(rec), WithLogger(quiet()), WithClock(func() time.Time { return today })}
	return &fixture{mock: m, rec: rec, svc: New(provider.Serialize(m), exec, append(base, opts...)...)}
}

func TestGetWeeklyKDJ_FlatSeries(t *testing.T) {
	c := &counter{}
	f := newFixture(time.Second, WithMetrics(c))
	snap, err := f.svc.GetWeeklyKDJ(context.Background(), "sh.600000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Code != "sh.600000" || snap.Date != "2024-06-09" {
		t.Errorf("snapshot = %+v, want code sh.600000 date 2024-06-09", snap)
	}
	for name, v := range map[string]float64{"k": snap.K.Float64, "d": snap.D.Float64, "j": snap.J.Float64} {
		if v != 50 {
			t.Errorf("%s = %v, want 50", name, v)
		}
	}
	if c.n != 1 {
		t.Errorf("kdj counter = %d, want 1", c.n)
	}
	if len(f.rec.kdj) != 1 || f.rec.kdj[0].Trigger != model.TriggerManual {
		t.Errorf("recorded snapshots = %+v", f.rec.kdj)
	}
	if len(f.rec.calls) != 1 || f.rec.calls[0].Op != "get_weekly_kdj" || len(f.rec.calls[0].Attempts) != 1 {
		t.Errorf("call log = %+v", f.rec.calls)
	}
	if logins, logouts, _ := f.mock.Stats(); logins != 1 || logouts != 1 {
		t.Errorf("logins=%d logouts=%d", logins, logouts)
	}
}

func TestGetWeeklyKDJ_InsufficientHistoryIsNull(t *testing.T) {
	f := newFixture(time.Second)
	snap, err := f.svc.GetWeeklyKDJ(context.Background(), "sz.000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.K.Valid || snap.D.Valid || snap.J.Valid {
		t.Errorf("expected null k/d/j with 6 weeks of history, got %+v", snap)
	}
	if snap.Date != "2024-06-09" {
		t.Errorf("date = %s", snap.Date)
	}
}

func TestGetWeeklyKDJ_ScheduledTrigger(t *testing.T) {
	f := newFixture(time.Second)
	ctx := WithTrigger(context.Background(), model.TriggerScheduled)
	if _, err := f.svc.GetWeeklyKDJ(ctx, "sh.600000"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.rec.kdj[0].Trigger != model.TriggerScheduled {
		t.Errorf("trigger = %s", f.rec.kdj[0].Trigger)
	}
}

func TestGetWeeklyKDJ_Errors(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		setup func(m *provider.MockProvider)
		kind  Kind
	}{
		{name: "empty code", code: "  ", kind: KindInvalidRequest},
		{name: "no data", code: "sh.999999", kind: KindEmptyResult},
		{name: "login failure", code: "sh.600000", setup: func(m *provider.MockProvider) { m.LoginErr = errors.New("refused") }, kind: KindUpstreamSession},
		{name: "query failure", code: "sh.600000", setup: func(m *provider.MockProvider) { m.QueryErr = errors.New("bad code") }, kind: KindUpstreamQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(time.Second)
			if tt.setup != nil {
				tt.setup(f.mock)
			}
			_, err := f.svc.GetWeeklyKDJ(context.Background(), tt.code)
			var rep *ErrorReport
			if !errors.As(err, &rep) {
				t.Fatalf("expected ErrorReport, got %v", err)
			}
			if rep.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", rep.Kind, tt.kind)
			}
			if len(f.rec.kdj) != 0 {
				t.Error("failed call must not record a snapshot")
			}
			for _, c := range f.rec.calls {
				if len(c.Attempts) > 1 {
					t.Errorf("non-timeout error was retried: %d attempts", len(c.Attempts))
				}
			}
		})
	}
}

func TestGetWeeklyKDJ_TimeoutThenSuccess(t *testing.T) {
	f := newFixture(50 * time.Millisecond)
	f.mock.QueryDelay = func(n int) time.Duration {
		if n == 1 {
			return time.Hour
		}
		return 0
	}

	snap, err := f.svc.GetWeeklyKDJ(context.Background(), "sh.600000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !snap.J.Valid {
		t.Errorf("expected defined J, got %+v", snap)
	}
	logins, logouts, peak := f.mock.Stats()
	if logins != 2 || logouts != 2 || peak != 1 {
		t.Errorf("logins=%d logouts=%d peak=%d, want 2/2/1", logins, logouts, peak)
	}
	attempts := f.rec.calls[0].Attempts
	if len(attempts) != 2 || attempts[0].Outcome != model.OutcomeTimeout || attempts[1].Outcome != model.OutcomeSuccess {
		t.Errorf("attempts = %+v", attempts)
	}
}

func TestGetWeeklyKDJ_TimeoutExhausted(t *testing.T) {
	f := newFixture(20 * time.Millisecond)
	f.mock.QueryDelay = func(int) time.Duration { return time.Hour }

	_, err := f.svc.GetWeeklyKDJ(context.Background(), "sh.600000")
	var te *retry.TimeoutExhaustedError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutExhaustedError, got %v", err)
	}
	if te.Attempts != 3 || te.Op != "get_weekly_kdj" {
		t.Errorf("error = %+v", te)
	}
	logins, logouts, peak := f.mock.Stats()
	if logins != 3 || logouts != 3 || peak != 1 {
		t.Errorf("logins=%d logouts=%d peak=%d, want 3/3/1", logins, logouts, peak)
	}
	if len(f.rec.kdj) != 0 {
		t.Error("exhausted call must not record a snapshot")
	}
	if f.rec.calls[0].Err == "" {
		t.Error("call log should carry the error")
	}
}

func TestWeeklyKDJHistory(t *testing.T) {
	f := newFixture(time.Second)
	hist, err := f.svc.WeeklyKDJHistory(context.Background(), "sh.600000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hist) != 23 {
		t.Fatalf("expected 23 weekly points, got %d", len(hist))
	}
	for i := 0; i < 8; i++ {
		if hist[i].K.Valid {
			t.Errorf("point %d should be undefined", i)
		}
	}
	if hist[0].Date != "2024-01-07" || hist[22].Date != "2024-06-09" {
		t.Errorf("dates = %s..%s", hist[0].Date, hist[22].Date)
	}
	if !hist[8].K.Valid || hist[8].K.Float64 != 50 {
		t.Errorf("point 8 = %+v, want K=50", hist[8])
	}
}

func TestGetBars_Validation(t *testing.T) {
	f := newFixture(time.Second)
	tests := []struct {
		name  string
		req   BarsRequest
		field string
	}{
		{"missing code", BarsRequest{StartDate: "2024-01-01", EndDate: "2024-01-31", Period: model.Daily}, "code"},
		{"bad start", BarsRequest{Code: "sh.600000", StartDate: "20240101", EndDate: "2024-01-31", Period: model.Daily}, "start_date"},
		{"end before start", BarsRequest{Code: "sh.600000", StartDate: "2024-02-01", EndDate: "2024-01-31", Period: model.Daily}, "end_date"},
		{"bad period", BarsRequest{Code: "sh.600000", StartDate: "2024-01-01", EndDate: "2024-01-31", Period: "hourly"}, "period"},
		{"bad adjust", BarsRequest{Code: "sh.600000", StartDate: "2024-01-01", EndDate: "2024-01-31", Period: model.Daily, Adjust: "9"}, "adjustflag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.GetBars(context.Background(), tt.req)
			var rep *ErrorReport
			if !errors.As(err, &rep) || rep.Kind != KindInvalidRequest || rep.Field != tt.field {
				t.Errorf("got %v, want invalid_request on %s", err, tt.field)
			}
		})
	}
	if logins, _, _ := f.mock.Stats(); logins != 0 {
		t.Errorf("invalid requests must not reach the provider, logins=%d", logins)
	}
}

func TestGetBars_PeriodsAndCache(t *testing.T) {
	mc := &memCache{data: map[string]model.Series{}}
	f := newFixture(time.Second, WithCache(mc, time.Minute))
	req := BarsRequest{Code: "sh.600000", StartDate: "2024-01-01", EndDate: "2024-01-31", Period: model.Daily}

	daily, err := f.svc.GetBars(context.Background(), req)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if daily.Len() != 23 {
		t.Errorf("daily bars = %d, want 23", daily.Len())
	}
	if _, err := f.svc.GetBars(context.Background(), req); err != nil {
		t.Fatalf("cached daily: %v", err)
	}
	if q := f.mock.Queries(); q != 1 {
		t.Errorf("provider queries = %d, want 1 (second call cached)", q)
	}

	req.Period = model.Weekly
	weekly, err := f.svc.GetBars(context.Background(), req)
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if weekly.Len() != 5 {
		t.Errorf("weekly bars = %d, want 5", weekly.Len())
	}
	if f.rec.calls[len(f.rec.calls)-1].Op != "get_bars_weekly" {
		t.Errorf("op = %s", f.rec.calls[len(f.rec.calls)-1].Op)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(time.Second, WithVersion("0.0.1"))
	h, err := f.svc.Health(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Status != "ok" || h.Version != "0.0.1" || h.Provider != "mock" {
		t.Errorf("health = %+v", h)
	}
}

func TestReport_Classification(t *testing.T) {
	tests := []struct {
		err  error
		kind Kind
	}{
		{&provider.SessionError{Provider: "x", Code: "1"}, KindUpstreamSession},
		{&provider.QueryError{Instrument: "c", Code: "2"}, KindUpstreamQuery},
		{provider.ErrEmptyResult, KindEmptyResult},
		{&provider.MalformedError{Field: "close", Row: 3, Reason: "is missing"}, KindMalformedSeries},
		{errors.New("other"), KindInternal},
		{&provider.QueryError{Instrument: "c", Err: context.DeadlineExceeded}, KindUpstreamQuery},
		{&provider.SessionError{Provider: "x", Err: context.DeadlineExceeded}, KindUpstreamSession},
	}
	for _, tt := range tests {
		var rep *ErrorReport
		if !errors.As(report(context.Background(), tt.err, "sh.600000"), &rep) || rep.Kind != tt.kind {
			t.Errorf("report(%v) kind = %v, want %s", tt.err, rep, tt.kind)
		}
	}
	var rep *ErrorReport
	errors.As(report(context.Background(), &provider.MalformedError{Field: "close"}, "x"), &rep)
	if rep.Field != "close" {
		t.Errorf("malformed field = %q", rep.Field)
	}
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	wrapped := &provider.QueryError{Instrument: "c", Err: context.Canceled}
	if err := report(cancelled, wrapped, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("context errors of a done attempt must pass through, got %v", err)
	}
}
