package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mikequentel/sheetposter/internal/config"
	"github.com/mikequentel/sheetposter/internal/rowstore"
)

type ErrorCode string

const (
	ErrorConfig     ErrorCode = "CONFIG_ERROR"
	ErrorStore      ErrorCode = "STORE_ERROR"
	ErrorFetch      ErrorCode = "FETCH_ERROR" // tags SkippedMedia; never returned
	ErrorUpstream   ErrorCode = "UPSTREAM_ERROR"
	ErrorValidation ErrorCode = "VALIDATION_ERROR"
	ErrorContent    ErrorCode = "CONTENT_ERROR"
	ErrorInternal   ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Message is the text safe to return to callers: the cause's message, or
// the reason in words when there is no cause.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return strings.ReplaceAll(e.Reason, "_", " ")
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// storeError classifies a row-store failure.
func storeError(reason string, err error) *Error {
	var cfgErr *rowstore.ConfigError
	if errors.As(err, &cfgErr) {
		return newError(ErrorConfig, "store_config_error", err)
	}
	var missing *config.MissingError
	if errors.As(err, &missing) {
		return newError(ErrorConfig, "missing_credentials", err)
	}
	return newError(ErrorStore, reason, err)
}

// CodeOf returns the code of a *Error anywhere in err's chain, or
// ErrorInternal.
func CodeOf(err error) ErrorCode {
	var ucErr *Error
	if errors.As(err, &ucErr) {
		return ucErr.Code
	}
	return ErrorInternal
}
