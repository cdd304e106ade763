// Package errors defines the typed errors shared across the application.
package errors

import (
	"errors"
)

type base struct {
	message string
	err     error
}

func (b base) Error() string {
	if b.err == nil {
		return b.message
	}
	if b.message == "" {
		return b.err.Error()
	}
	return b.message + ": " + b.err.Error()
}

func (b base) Unwrap() error {
	return b.err
}

func newBase(message string, errs []error) base {
	return base{
		message: message,
		err:     errors.Join(errs...),
	}
}

// Validation indicates malformed or invalid input data.
type Validation struct {
	base
}

// NewValidation creates a new Validation error
func NewValidation(message string, errs ...error) error {
	return Validation{newBase(message, errs)}
}

// NotFound indicates a resource that does not exist.
type NotFound struct {
	base
}

// NewNotFound creates a new NotFound error
func NewNotFound(message string, errs ...error) error {
	return NotFound{newBase(message, errs)}
}

// Unauthorized indicates missing or invalid credentials.
type Unauthorized struct {
	base
}

// NewUnauthorized creates a new Unauthorized error
func NewUnauthorized(message string, errs ...error) error {
	return Unauthorized{newBase(message, errs)}
}

// Forbidden indicates valid credentials without sufficient permissions.
type Forbidden struct {
	base
}

// NewForbidden creates a new Forbidden error
func NewForbidden(message string, errs ...error) error {
	return Forbidden{newBase(message, errs)}
}

// ServiceUnavailable indicates an external system that could not be reached.
type ServiceUnavailable struct {
	base
}

// NewServiceUnavailable creates a new ServiceUnavailable error
func NewServiceUnavailable(message string, errs ...error) error {
	return ServiceUnavailable{newBase(message, errs)}
}

// ThresholdExceeded indicates that a reconciliation safety limit was tripped
// and the guarded operations were not applied.
type ThresholdExceeded struct {
	base
}

// NewThresholdExceeded creates a new ThresholdExceeded error
func NewThresholdExceeded(message string, errs ...error) error {
	return ThresholdExceeded{newBase(message, errs)}
}

// Unexpected indicates an internal failure with no more specific kind.
type Unexpected struct {
	base
}

// NewUnexpected creates a new Unexpected error
func NewUnexpected(message string, errs ...error) error {
	return Unexpected{newBase(message, errs)}
}

// IsValidation reports whether err is (or wraps) a Validation error.
func IsValidation(err error) bool {
	var v Validation
	return errors.As(err, &v)
}

// IsNotFound reports whether err is (or wraps) a NotFound error.
func IsNotFound(err error) bool {
	var n NotFound
	return errors.As(err, &n)
}

// IsThresholdExceeded reports whether err is (or wraps) a ThresholdExceeded error.
func IsThresholdExceeded(err error) bool {
	var te ThresholdExceeded
	return errors.As(err, &te)
}

// New creates a plain error, mirroring the standard library for callers
// that do not need a typed kind.
func New(message string) error {
	return errors.New(message)
}
