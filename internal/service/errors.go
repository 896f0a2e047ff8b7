package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidUser       = errors.New("invalid user")
	ErrInvalidRange      = errors.New("dateFrom is after dateTo")
	ErrInvalidLength     = errors.New("series length must be positive")
	ErrAggregationFailed = errors.New("aggregation failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrValidation        = errors.New("validation failed")
)

// AggregationError wraps a store failure hit while computing analytics.
type AggregationError struct {
	Op  string
	Err error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("analytics: %s: %v", e.Op, e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}

func (e *AggregationError) Is(target error) bool {
	return target == ErrAggregationFailed
}

// ValidationError carries a message that is safe to show to the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
