package service

import (
	"context"

	"StockSentinel/internal/retry"
)

// HealthStatus is the body of the health check.
type HealthStatus struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Version  string `json:"version,omitempty"`
	Provider string `json:"provider"`
}

// Health reports that the service is up. It runs under the executor like
// every other entry point.
func (s *Service) Health(ctx context.Context) (HealthStatus, error) {
	rep, err := retry.Run(ctx, s.exec, "health", func(context.Context) (HealthStatus, error) {
		return HealthStatus{
			Status:   "ok",
			Message:  "service is running",
			Version:  s.version,
			Provider: s.provider.Name(),
		}, nil
	})
	if err != nil {
		return HealthStatus{}, err
	}
	if !rep.OK {
		return HealthStatus{}, &ErrorReport{Kind: KindInternal, Message: "no result produced"}
	}
	return rep.Value, nil
}
