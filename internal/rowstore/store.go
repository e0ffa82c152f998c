// Package rowstore defines the content queue the workflows read from and
// append to. Backends live in subpackages.
package rowstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikequentel/sheetposter/internal/model"
)

// Store is a tabular queue of content rows. Every call is a fresh read or
// write against the backend.
type Store interface {
	ListRows(ctx context.Context) ([]model.ContentRow, error)
	AppendRow(ctx context.Context, imageURLs, caption string) error
}

// ConfigError means the backend could not be reached because its
// credentials or settings are absent or malformed.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("row store config: %s: %v", e.Reason, e.Err)
	}
	return "row store config: " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

// StoreError is any failure opening, reading or writing the backend.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("row store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ErrNoRows is wrapped in a StoreError when the store holds no data rows.
var ErrNoRows = errors.New("no data rows")

// Unavailable stands in for a backend that could not be opened, so the
// process can still start and report the problem per call.
type Unavailable struct {
	Err error
}

func (u Unavailable) ListRows(context.Context) ([]model.ContentRow, error) { return nil, u.Err }

func (u Unavailable) AppendRow(context.Context, string, string) error { return u.Err }
