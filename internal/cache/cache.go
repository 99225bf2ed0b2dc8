// Package cache keeps fetched bar series for a short time so repeated
// requests for the same window skip the upstream session.
package cache

import (
	"context"
	"fmt"
	"time"

	"StockSentinel/internal/model"
	"StockSentinel/internal/provider"
)

// Cache stores bar series by query key.
type Cache interface {
	Get(ctx context.Context, key string) (model.Series, bool, error)
	Set(ctx context.Context, key string, s model.Series, ttl time.Duration) error
}

// Key identifies a query. Every field that changes the result is part of it.
func Key(q provider.Query) string {
	return fmt.Sprintf("bars:%s:%s:%s:%s:%s", q.Code, q.Period.Frequency(), q.Adjust, q.StartDate, q.EndDate)
}

// Noop never hits.
type Noop struct{}

func (Noop) Get(context.Context, string) (model.Series, bool, error) {
	return model.Series{}, false, nil
}

func (Noop) Set(context.Context, string, model.Series, time.Duration) error { return nil }
