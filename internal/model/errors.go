package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownKey is returned when a config key does not exist.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrNotEditable is returned when writing a key marked non-editable.
	ErrNotEditable = errors.New("config key is not editable")
	// ErrInvalidValue is returned when a value fails type, bounds or pattern checks.
	ErrInvalidValue = errors.New("invalid config value")
	// ErrNotFound is returned by data access when a member or loan does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for calculation arguments outside their allowed range.
	ErrInvalidInput = errors.New("invalid input")
)

// ConfigError is returned by config writes. Err is one of the sentinels
// above; Reason describes a rejected value and is empty otherwise.
type ConfigError struct {
	Key    string
	Err    error
	Reason string
}

func (e *ConfigError) Error() string {
	msg := e.Err.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Key == "" {
		return msg
	}
	return fmt.Sprintf("config %s: %s", e.Key, msg)
}

// invalidValue returns an ErrInvalidValue ConfigError without a key; the
// writer fills Key in.
func invalidValue(format string, args ...any) *ConfigError {
	return &ConfigError{Err: ErrInvalidValue, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// DataAccessError wraps a failure from the member data-access collaborator.
// Rule evaluation never turns these into violations.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("data access %s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }
