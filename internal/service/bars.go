package service

import (
	"context"
	"math"
	"strings"
	"time"

	"StockSentinel/internal/logger"
	"StockSentinel/internal/model"
	"StockSentinel/internal/provider"
	"StockSentinel/internal/retry"

	"github.com/guregu/null/v5"
)

// BarsRequest selects a bar series. Dates are inclusive, YYYY-MM-DD.
type BarsRequest struct {
	Code      string
	StartDate string
	EndDate   string
	Period    model.Period
	Adjust    model.AdjustMode
}

func (r BarsRequest) query() (provider.Query, error) {
	code := strings.TrimSpace(r.Code)
	if code == "" {
		return provider.Query{}, invalid("code", "code is required")
	}
	start, err := time.Parse(model.DateLayout, r.StartDate)
	if err != nil {
		return provider.Query{}, invalid("start_date", "start_date must be YYYY-MM-DD, got %q", r.StartDate)
	}
	end, err := time.Parse(model.DateLayout, r.EndDate)
	if err != nil {
		return provider.Query{}, invalid("end_date", "end_date must be YYYY-MM-DD, got %q", r.EndDate)
	}
	if end.Before(start) {
		return provider.Query{}, invalid("end_date", "end_date %s is before start_date %s", r.EndDate, r.StartDate)
	}
	period, err := model.ParsePeriod(string(r.Period))
	if err != nil {
		return provider.Query{}, invalid("period", "%v", err)
	}
	adjust, err := model.ParseAdjustMode(string(r.Adjust))
	if err != nil {
		return provider.Query{}, invalid("adjustflag", "%v", err)
	}
	return provider.Query{Code: code, StartDate: r.StartDate, EndDate: r.EndDate, Period: period, Adjust: adjust}, nil
}

// GetBars returns the bar series for the request's period.
func (s *Service) GetBars(ctx context.Context, req BarsRequest) (model.Series, error) {
	q, err := req.query()
	if err != nil {
		return model.Series{}, err
	}
	op := "get_bars_" + string(q.Period)

	started := time.Now()
	rep, err := retry.Run(ctx, s.exec, op, func(ctx context.Context) (model.Series, error) {
		series, err := s.fetch(ctx, q)
		if err != nil {
			return model.Series{}, err
		}
		if err := checkFinite(series); err != nil {
			return model.Series{}, report(ctx, err, q.Code)
		}
		return series, nil
	})
	s.recordCall(ctx, op, q.Code, started, rep.Attempts, err)
	if err != nil {
		s.logFailure(ctx, op, q.Code, err)
		return model.Series{}, err
	}
	if !rep.OK {
		return model.Series{}, &ErrorReport{Kind: KindInternal, Code: q.Code, Message: "no result produced"}
	}
	s.log.Info("bars served", append(logger.Attrs(ctx), "op", op, "code", q.Code, "bars", rep.Value.Len(), "attempts", len(rep.Attempts))...)
	return rep.Value, nil
}

// checkFinite rejects a series whose prices or optional fields cannot be
// encoded as JSON numbers.
func checkFinite(s model.Series) error {
	bad := func(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }
	for i, b := range s.Bars {
		for _, f := range []struct {
			name string
			v    float64
		}{{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close}} {
			if bad(f.v) {
				return &provider.MalformedError{Field: f.name, Row: i, Reason: "is not finite"}
			}
		}
		for _, f := range []struct {
			name string
			v    null.Float
		}{{"preclose", b.PreClose}, {"volume", b.Volume}, {"amount", b.Amount}, {"turn", b.Turn}, {"pctChg", b.PctChg}} {
			if f.v.Valid && bad(f.v.Float64) {
				return &provider.MalformedError{Field: f.name, Row: i, Reason: "is not finite"}
			}
		}
	}
	return nil
}
