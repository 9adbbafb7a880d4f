package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for service layer
var (
	ErrMailNotConfigured = errors.New("email service not configured")
	ErrDispatchFailed    = errors.New("email dispatch failed")
)

// DispatchError carries the provider supplied detail of a failed send.
// Detail is meant for server logs only.
type DispatchError struct {
	Provider string
	Detail   string
	Err      error

	// cause is Err's text with secrets removed; Error prints it instead of Err
	cause string
}

func (e *DispatchError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("%s: %s: %s", ErrDispatchFailed, e.Provider, e.Detail)
	case e.cause != "":
		return fmt.Sprintf("%s: %s: %s", ErrDispatchFailed, e.Provider, e.cause)
	default:
		return fmt.Sprintf("%s: %s: %v", ErrDispatchFailed, e.Provider, e.Err)
	}
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDispatchFailed) hold for any DispatchError
func (e *DispatchError) Is(target error) bool {
	return target == ErrDispatchFailed
}

// HasProviderDetail reports whether the provider answered with an error body
func (e *DispatchError) HasProviderDetail() bool {
	return e.Detail != ""
}
