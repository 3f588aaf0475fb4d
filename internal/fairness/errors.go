package fairness

import (
	"errors"
	"fmt"
)

// AuditError represents a fatal configuration problem detected while
// setting up an audit run. Degenerate data (empty groups, zero rates) is
// NOT an error - it flows through as NaN/N-A sentinels.
type AuditError struct {
	// Code identifies the error category.
	Code AuditErrorCode

	// Message is a human-readable description.
	Message string

	// Strategy is the offending reference strategy, when relevant.
	Strategy string

	// Value is the missing custom reference value, when relevant.
	Value string
}

// AuditErrorCode categorizes audit configuration errors.
type AuditErrorCode string

const (
	// ErrCodeEmptyInput indicates reference selection over zero groups.
	ErrCodeEmptyInput AuditErrorCode = "EMPTY_INPUT"

	// ErrCodeReferenceNotFound indicates a custom reference value absent
	// from the grouped data. Recoverable by re-specifying the reference.
	ErrCodeReferenceNotFound AuditErrorCode = "REFERENCE_NOT_FOUND"

	// ErrCodeInvalidStrategy indicates an unknown reference strategy.
	ErrCodeInvalidStrategy AuditErrorCode = "INVALID_STRATEGY"

	// ErrCodeInvalidConfig indicates malformed thresholds or column lists.
	ErrCodeInvalidConfig AuditErrorCode = "INVALID_CONFIG"
)

// Error implements the error interface.
func (e *AuditError) Error() string {
	switch {
	case e.Value != "":
		return fmt.Sprintf("%s: %s (value=%q)", e.Code, e.Message, e.Value)
	case e.Strategy != "":
		return fmt.Sprintf("%s: %s (strategy=%q)", e.Code, e.Message, e.Strategy)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsReferenceNotFound reports whether err is a missing custom reference.
// Uses errors.As to handle wrapped errors.
func IsReferenceNotFound(err error) bool {
	var ae *AuditError
	return errors.As(err, &ae) && ae.Code == ErrCodeReferenceNotFound
}

// IsInvalidStrategy reports whether err is an unknown reference strategy.
func IsInvalidStrategy(err error) bool {
	var ae *AuditError
	return errors.As(err, &ae) && ae.Code == ErrCodeInvalidStrategy
}

// newReferenceNotFound creates an AuditError for an absent custom value.
func newReferenceNotFound(value string) *AuditError {
	return &AuditError{
		Code:    ErrCodeReferenceNotFound,
		Message: "custom reference value not present in grouped data",
		Value:   value,
	}
}

// newInvalidStrategy creates an AuditError for an unknown strategy.
func newInvalidStrategy(strategy string) *AuditError {
	return &AuditError{
		Code:     ErrCodeInvalidStrategy,
		Message:  "unknown reference strategy",
		Strategy: strategy,
	}
}
