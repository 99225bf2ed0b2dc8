package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"StockSentinel/internal/model"
	"StockSentinel/internal/notifier"
	"StockSentinel/internal/recorder"
	"StockSentinel/internal/service"
	"StockSentinel/internal/strategy"

	"github.com/robfig/cron/v3"
)

// recentLimit caps the /recent reply.
const recentLimit = 8

// KDJSource computes and recalls weekly KDJ snapshots.
type KDJSource interface {
	GetWeeklyKDJ(ctx context.Context, code string) (model.KDJSnapshot, error)
	RecentKDJ(code string, limit int) ([]recorder.KDJRecord, error)
}

type retrySender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the watchlist job on a cron schedule and answers chat commands.
type Scheduler struct {
	Cron       *cron.Cron
	Source     KDJSource
	Notifier   notifier.Notifier
	Thresholds strategy.Thresholds
	Watchlist  []string
	Ctx        context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, src KDJSource, n notifier.Notifier, th strategy.Thresholds, watchlist []string) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Source:     src,
		Notifier:   n,
		Thresholds: th,
		Watchlist:  watchlist,
		Ctx:        ctx,
	}
}

// RegisterWatchlist schedules the watchlist job. spec has a seconds field.
func (s *Scheduler) RegisterWatchlist(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.watchlistTask); err != nil {
		return fmt.Errorf("register watchlist task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	slog.Info("scheduler started", "watchlist", len(s.Watchlist))
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// RunNow executes the watchlist job immediately (RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.watchlistTask()
}

func (s *Scheduler) watchlistTask() {
	slog.Info("running watchlist task", "codes", len(s.Watchlist))
	signals := s.evaluateWatchlist(service.WithTrigger(s.Ctx, model.TriggerScheduled))

	actionable := 0
	for _, sig := range signals {
		if sig.Actionable() {
			actionable++
			s.trySend(notifier.FormatSignalAlert(sig))
		}
	}
	slog.Info("watchlist task finished", "evaluated", len(signals), "actionable", actionable)
}

// evaluateWatchlist computes a signal per code, one code at a time.
// Failed codes are reported and skipped.
func (s *Scheduler) evaluateWatchlist(ctx context.Context) []model.Signal {
	var out []model.Signal
	for _, code := range s.Watchlist {
		if ctx.Err() != nil {
			break
		}
		snap, err := s.Source.GetWeeklyKDJ(ctx, code)
		if err != nil {
			slog.Error("watchlist kdj failed", "code", code, "error", err)
			s.trySend(notifier.FormatError(code, err))
			continue
		}
		sig := strategy.Evaluate(snap, s.Thresholds)
		sig.TriggerType = model.TriggerScheduled
		slog.Info("watchlist signal", "code", code, "date", sig.Date, "action", sig.Action, "reason", sig.Reason)
		out = append(out, sig)
	}
	return out
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	switch fields[0] {
	case "/kdj":
		if len(fields) < 2 {
			return "usage: /kdj &lt;code&gt;"
		}
		code := fields[1]
		snap, err := s.Source.GetWeeklyKDJ(service.WithTrigger(ctx, model.TriggerManual), code)
		if err != nil {
			return notifier.FormatError(code, err)
		}
		sig := strategy.Evaluate(snap, s.Thresholds)
		sig.TriggerType = model.TriggerManual
		return notifier.FormatKDJReport(snap, sig)
	case "/recent":
		if len(fields) < 2 {
			return "usage: /recent &lt;code&gt;"
		}
		recs, err := s.Source.RecentKDJ(fields[1], recentLimit)
		if err != nil {
			return notifier.FormatError(fields[1], err)
		}
		return notifier.FormatRecent(fields[1], recs)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	var err error
	if rs, ok := s.Notifier.(retrySender); ok {
		err = rs.SendWithRetry(s.Ctx, text, 3)
	} else {
		err = s.Notifier.Send(s.Ctx, text)
	}
	if err != nil {
		slog.Error("send notification failed", "error", err)
	}
}
