package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"StockSentinel/internal/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAttempt(t *testing.T) {
	m := New()
	m.ObserveAttempt("get_weekly_kdj", model.Attempt{Number: 1, Elapsed: 2 * time.Second, Outcome: model.OutcomeTimeout})
	m.ObserveAttempt("get_weekly_kdj", model.Attempt{Number: 2, Elapsed: time.Second, Outcome: model.OutcomeSuccess})
	m.ObserveAttempt("health", model.Attempt{Number: 1, Outcome: model.OutcomeSuccess})

	if got := testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("get_weekly_kdj", "timeout")); got != 1 {
		t.Errorf("timeout attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("get_weekly_kdj", "success")); got != 1 {
		t.Errorf("success attempts = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.AttemptDuration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.IncKDJ()
	m.ObserveRequest("/health", 200)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		"kdj_computations_total 1",
		`http_requests_total{route="/health",status="200"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNewUsesPrivateRegistry(t *testing.T) {
	// Two instances must not collide on registration.
	a, b := New(), New()
	a.IncKDJ()
	if testutil.ToFloat64(b.KDJComputations) != 0 {
		t.Error("instances share state")
	}
}
