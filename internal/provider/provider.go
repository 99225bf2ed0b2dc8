// Package provider is the bar data source: a login/query/logout lifecycle
// behind a session handle that must be released on every exit path.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"StockSentinel/internal/model"
)

// logoutTimeout bounds the detached logout that runs after a cancelled query.
const logoutTimeout = 10 * time.Second

// Query selects a bar series from the data source. Dates are YYYY-MM-DD and
// inclusive; an empty date leaves that side open.
type Query struct {
	Code      string
	StartDate string
	EndDate   string
	Period    model.Period
	Adjust    model.AdjustMode
}

// Fields returns the column set requested for the query's period.
func (q Query) Fields() []string {
	if q.Period == model.Daily {
		return []string{"date", "code", "open", "high", "low", "close", "preclose"}
	}
	return []string{"date", "code", "open", "high", "low", "close", "volume", "amount", "adjustflag", "turn", "pctChg"}
}

// Provider opens sessions against a bar data source.
type Provider interface {
	Name() string
	Login(ctx context.Context) (Session, error)
}

// Session is one logged-in handle. It is not safe for concurrent use.
type Session interface {
	Query(ctx context.Context, q Query) (model.Series, error)
	Logout(ctx context.Context) error
}

// WithSession logs in, runs fn and logs out. Logout runs on every exit path,
// including panics and a cancelled ctx.
func WithSession(ctx context.Context, p Provider, fn func(ctx context.Context, s Session) error) (err error) {
	s, err := p.Login(ctx)
	if err != nil {
		return err
	}
	defer func() {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
		defer cancel()
		if lerr := s.Logout(lctx); lerr != nil {
			slog.Warn("logout failed", "provider", p.Name(), "error", lerr)
			if err == nil {
				err = lerr
			}
		}
	}()
	return fn(ctx, s)
}

// FetchBars runs q inside its own session. A query with no rows yields ErrEmptyResult.
func FetchBars(ctx context.Context, p Provider, q Query) (model.Series, error) {
	var out model.Series
	err := WithSession(ctx, p, func(ctx context.Context, s Session) error {
		series, err := s.Query(ctx, q)
		if err != nil {
			return err
		}
		out = series
		return nil
	})
	if err != nil {
		return model.Series{}, err
	}
	if out.Len() == 0 {
		return model.Series{}, fmt.Errorf("%s %s..%s: %w", q.Code, q.StartDate, q.EndDate, ErrEmptyResult)
	}
	return out, nil
}
