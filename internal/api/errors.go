package api

import (
	"context"
	"errors"
	"net/http"

	"StockSentinel/internal/retry"
	"StockSentinel/internal/service"

	"github.com/gin-gonic/gin"
)

// StatusFor maps a service error to an HTTP status.
func StatusFor(err error) int {
	var rep *service.ErrorReport
	switch {
	case errors.As(err, &rep):
		switch rep.Kind {
		case service.KindInvalidRequest:
			return http.StatusBadRequest
		case service.KindEmptyResult:
			return http.StatusNotFound
		case service.KindUpstreamSession, service.KindUpstreamQuery, service.KindMalformedSeries:
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	case errors.Is(err, retry.ErrTimeoutExhausted):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// abort writes err as a JSON error body. ErrorReports are written as is.
func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	status := StatusFor(err)

	var rep *service.ErrorReport
	if errors.As(err, &rep) {
		c.AbortWithStatusJSON(status, rep)
		return
	}
	kind := "internal"
	if status == http.StatusGatewayTimeout {
		kind = "timeout_exhausted"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "kind": kind})
}
