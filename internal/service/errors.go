package service

import (
	"context"
	"errors"
	"fmt"

	"StockSentinel/internal/provider"
)

// Kind classifies an ErrorReport.
type Kind string

const (
	KindInvalidRequest  Kind = "invalid_request"
	KindUpstreamSession Kind = "upstream_session"
	KindUpstreamQuery   Kind = "upstream_query"
	KindEmptyResult     Kind = "empty_result"
	KindMalformedSeries Kind = "malformed_series"
	KindInternal        Kind = "internal"
)

// ErrorReport is the structured failure returned by every entry point.
type ErrorReport struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

func (e *ErrorReport) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func invalid(field, format string, args ...any) *ErrorReport {
	return &ErrorReport{Kind: KindInvalidRequest, Field: field, Message: fmt.Sprintf(format, args...)}
}

// report converts an upstream or engine error into an ErrorReport.
// Context errors pass through only while ctx itself is done, so the executor
// can tell a cancelled attempt from an upstream call that hit its own deadline.
func report(ctx context.Context, err error, code string) error {
	if err == nil {
		return nil
	}
	var (
		rep *ErrorReport
		se  *provider.SessionError
		qe  *provider.QueryError
		me  *provider.MalformedError
	)
	switch {
	case errors.As(err, &rep):
		return rep
	case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return err
	case errors.As(err, &se):
		return &ErrorReport{Kind: KindUpstreamSession, Code: code, Message: "data source login failed: " + se.Error()}
	case errors.As(err, &qe):
		return &ErrorReport{Kind: KindUpstreamQuery, Code: code, Message: "data source query failed: " + qe.Error()}
	case errors.Is(err, provider.ErrEmptyResult):
		return &ErrorReport{Kind: KindEmptyResult, Code: code, Message: "no data returned"}
	case errors.As(err, &me):
		return &ErrorReport{Kind: KindMalformedSeries, Code: code, Field: me.Field, Message: me.Error()}
	}
	return &ErrorReport{Kind: KindInternal, Code: code, Message: err.Error()}
}
