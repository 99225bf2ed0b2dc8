package service

import (
	"context"
	"strings"
	"time"

	"StockSentinel/internal/calculator"
	"StockSentinel/internal/logger"
	"StockSentinel/internal/model"
	"StockSentinel/internal/provider"
	"StockSentinel/internal/recorder"
	"StockSentinel/internal/retry"
)

// weeklyKDJ fetches the lookback window of daily bars for code, resamples
// it to weeks and returns the full KDJ series. Everything it builds is
// local, so an abandoned attempt leaves nothing behind.
func (s *Service) weeklyKDJ(ctx context.Context, code string, end time.Time) ([]model.KDJPoint, error) {
	q := provider.Query{
		Code:      code,
		StartDate: end.AddDate(0, 0, -s.lookbackDays).Format(model.DateLayout),
		EndDate:   end.Format(model.DateLayout),
		Period:    model.Daily,
		Adjust:    s.kdjAdjust,
	}
	daily, err := s.fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	weekly := calculator.Resample(daily, calculator.Week)
	points, err := calculator.KDJ(weekly, s.kdj)
	if err != nil {
		return nil, report(ctx, err, code)
	}
	if len(points) == 0 {
		return nil, &ErrorReport{Kind: KindEmptyResult, Code: code, Message: "no weekly bars in lookback window"}
	}
	if s.counter != nil {
		s.counter.IncKDJ()
	}
	s.log.Debug("weekly kdj computed", append(logger.Attrs(ctx), "code", code, "daily", daily.Len(), "weekly", weekly.Len())...)
	return points, nil
}

func snapshot(code string, p model.KDJPoint) model.KDJSnapshot {
	return model.KDJSnapshot{
		Code: code,
		Date: p.Date.Format(model.DateLayout),
		K:    calculator.Round2(p.K),
		D:    calculator.Round2(p.D),
		J:    calculator.Round2(p.J),
	}
}

func normalizeCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", invalid("code", "code is required")
	}
	return code, nil
}

// GetWeeklyKDJ returns the most recent weekly KDJ point for code, rounded to
// two decimals. Undefined lines are null.
func (s *Service) GetWeeklyKDJ(ctx context.Context, code string) (model.KDJSnapshot, error) {
	const op = "get_weekly_kdj"
	code, err := normalizeCode(code)
	if err != nil {
		return model.KDJSnapshot{}, err
	}

	started := time.Now()
	end := s.now()
	rep, err := retry.Run(ctx, s.exec, op, func(ctx context.Context) (model.KDJSnapshot, error) {
		points, err := s.weeklyKDJ(ctx, code, end)
		if err != nil {
			return model.KDJSnapshot{}, err
		}
		latest, _ := calculator.Latest(points)
		return snapshot(code, latest), nil
	})
	s.recordCall(ctx, op, code, started, rep.Attempts, err)
	if err != nil {
		s.logFailure(ctx, op, code, err)
		return model.KDJSnapshot{}, err
	}
	if !rep.OK {
		return model.KDJSnapshot{}, &ErrorReport{Kind: KindInternal, Code: code, Message: "no result produced"}
	}

	snap := rep.Value
	if rerr := s.recorder.RecordKDJ(&recorder.KDJRecord{
		Code:       snap.Code,
		Date:       snap.Date,
		K:          snap.K,
		D:          snap.D,
		J:          snap.J,
		Trigger:    triggerFrom(ctx),
		RecordedAt: time.Now(),
	}); rerr != nil {
		s.log.Warn("record kdj failed", append(logger.Attrs(ctx), "code", code, "error", rerr)...)
	}
	if !snap.K.Valid || !snap.D.Valid || !snap.J.Valid {
		s.log.Warn("weekly kdj undefined", append(logger.Attrs(ctx), "code", code, "date", snap.Date)...)
	}
	s.log.Info("weekly kdj served", append(logger.Attrs(ctx), "code", code, "date", snap.Date, "attempts", len(rep.Attempts))...)
	return snap, nil
}

// WeeklyKDJHistory returns the whole rounded weekly KDJ series for code,
// oldest first.
func (s *Service) WeeklyKDJHistory(ctx context.Context, code string) ([]model.KDJSnapshot, error) {
	const op = "get_weekly_kdj_history"
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	end := s.now()
	rep, err := retry.Run(ctx, s.exec, op, func(ctx context.Context) ([]model.KDJSnapshot, error) {
		points, err := s.weeklyKDJ(ctx, code, end)
		if err != nil {
			return nil, err
		}
		out := make([]model.KDJSnapshot, len(points))
		for i, p := range points {
			out[i] = snapshot(code, p)
		}
		return out, nil
	})
	s.recordCall(ctx, op, code, started, rep.Attempts, err)
	if err != nil {
		s.logFailure(ctx, op, code, err)
		return nil, err
	}
	if !rep.OK {
		return nil, &ErrorReport{Kind: KindInternal, Code: code, Message: "no result produced"}
	}
	return rep.Value, nil
}

// RecentKDJ returns previously served snapshots for code, newest first.
func (s *Service) RecentKDJ(code string, limit int) ([]recorder.KDJRecord, error) {
	return s.recorder.RecentKDJ(code, limit)
}
