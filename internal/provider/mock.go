package provider

import (
	"context"
	"sync"
	"time"

	"StockSentinel/internal/calculator"
	"StockSentinel/internal/model"

	"github.com/guregu/null/v5"
)

// MockProvider serves in-memory daily bars for development and testing.
// Weekly and monthly queries are resampled from the daily data.
type MockProvider struct {
	// Bars holds daily bars per instrument code, ascending by date.
	Bars map[string][]model.Bar
	// Synthetic generates bars for codes missing from Bars.
	Synthetic bool
	// QueryDelay returns the delay of the n-th query (1-based). Delays
	// honour ctx cancellation.
	QueryDelay func(n int) time.Duration
	LoginErr   error
	QueryErr   error

	mu      sync.Mutex
	logins  int
	logouts int
	queries int
	active  int
	peak    int
}

// NewMockProvider creates a mock that synthesises data for any code.
func NewMockProvider() *MockProvider {
	return &MockProvider{Bars: make(map[string][]model.Bar), Synthetic: true}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Login(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.LoginErr != nil {
		return nil, &SessionError{Provider: m.Name(), Err: m.LoginErr}
	}
	m.mu.Lock()
	m.logins++
	m.active++
	if m.active > m.peak {
		m.peak = m.active
	}
	m.mu.Unlock()
	return &mockSession{m: m}, nil
}

// Stats returns login/logout counts and the peak number of open sessions.
func (m *MockProvider) Stats() (logins, logouts, peak int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logins, m.logouts, m.peak
}

// Queries returns how many queries have been started.
func (m *MockProvider) Queries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}

type mockSession struct {
	m    *MockProvider
	once sync.Once
}

func (s *mockSession) Query(ctx context.Context, q Query) (model.Series, error) {
	m := s.m
	m.mu.Lock()
	m.queries++
	n := m.queries
	daily, ok := m.Bars[q.Code]
	m.mu.Unlock()

	if m.QueryDelay != nil {
		if d := m.QueryDelay(n); d > 0 {
			t := time.NewTimer(d)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return model.Series{}, &QueryError{Instrument: q.Code, Err: ctx.Err()}
			}
		}
	}
	if m.QueryErr != nil {
		return model.Series{}, &QueryError{Instrument: q.Code, Err: m.QueryErr}
	}

	start, end := parseBound(q.StartDate, time.Time{}), parseBound(q.EndDate, time.Now())
	if !ok && m.Synthetic {
		daily = GenerateBars(q.Code, start, int(end.Sub(start).Hours()/24)+1, 10)
	}

	out := model.Series{Code: q.Code}
	for _, b := range daily {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		out.Bars = append(out.Bars, b)
	}
	switch q.Period {
	case model.Weekly:
		out = calculator.Resample(out, calculator.Week)
	case model.Monthly:
		out = calculator.Resample(out, calculator.Month)
	}
	return out, nil
}

func (s *mockSession) Logout(context.Context) error {
	s.once.Do(func() {
		s.m.mu.Lock()
		s.m.logouts++
		s.m.active--
		s.m.mu.Unlock()
	})
	return nil
}

func parseBound(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return fallback
	}
	return t
}

// GenerateBars returns deterministic weekday bars for code covering days
// calendar days from start. Prices oscillate around base.
func GenerateBars(code string, start time.Time, days int, base float64) []model.Bar {
	if start.IsZero() || days <= 0 {
		return nil
	}
	seed := 0
	for _, r := range code {
		seed += int(r)
	}
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	var bars []model.Bar
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		step := (d.YearDay()+seed)%23 - 11
		p := base * (1 + float64(step)*0.004)
		prev := base * (1 + float64((d.YearDay()-1+seed)%23-11)*0.004)
		bars = append(bars, model.Bar{
			Date:     d,
			Code:     code,
			Open:     prev,
			High:     max(p, prev) * 1.005,
			Low:      min(p, prev) * 0.995,
			Close:    p,
			PreClose: null.FloatFrom(prev),
			Volume:   null.FloatFrom(float64(1_000_000 + step*10_000)),
		})
	}
	return bars
}
