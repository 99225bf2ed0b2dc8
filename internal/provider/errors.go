package provider

import (
	"errors"
	"fmt"
)

// ErrEmptyResult is returned when a query succeeds but yields no rows.
var ErrEmptyResult = errors.New("provider: empty result set")

// SessionError reports a failed login or logout.
type SessionError struct {
	Provider string
	Code     string
	Msg      string
	Err      error
}

func (e *SessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s session: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s session: error_code=%s %s", e.Provider, e.Code, e.Msg)
}

func (e *SessionError) Unwrap() error { return e.Err }

// QueryError reports a failed history query.
type QueryError struct {
	Instrument string
	Code       string
	Msg        string
	Err        error
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query %s: %v", e.Instrument, e.Err)
	}
	return fmt.Sprintf("query %s: error_code=%s %s", e.Instrument, e.Code, e.Msg)
}

func (e *QueryError) Unwrap() error { return e.Err }

// MalformedError identifies a row field that is missing or not numeric.
type MalformedError struct {
	Field  string
	Row    int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed row %d: field %q %s", e.Row, e.Field, e.Reason)
}
