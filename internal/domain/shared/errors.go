package shared

import (
	"errors"
	"fmt"
)

// Error codes shared by every bounded context.
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeIllegalStateTransition = "ILLEGAL_STATE_TRANSITION"
	CodeFormulaAmbiguous       = "FORMULA_AMBIGUOUS"
	CodeNoBOMConfigured        = "NO_BOM_CONFIGURED"
	CodeInvalidBatchTarget     = "INVALID_BATCH_TARGET"
	CodeOutputOutOfTolerance   = "OUTPUT_WEIGHT_OUT_OF_TOLERANCE"
	CodeBatchNumberExhausted   = "BATCH_NUMBER_EXHAUSTED"
	CodeUnauthorized           = "UNAUTHORIZED"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Details carries structured data a caller can render, e.g. a shortfall list.
	Details interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so sentinel comparisons survive WithDetails copies.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// WithDetails returns a copy of the error carrying structured details
func (e *DomainError) WithDetails(details interface{}) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a VALIDATION_ERROR with a formatted message
func NewValidationError(format string, args ...interface{}) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError creates a NOT_FOUND error naming the missing resource
func NewNotFoundError(resource string, id interface{}) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %v not found", resource, id))
}

// NewIllegalTransitionError creates an ILLEGAL_STATE_TRANSITION error
func NewIllegalTransitionError(format string, args ...interface{}) *DomainError {
	return NewDomainError(CodeIllegalStateTransition, fmt.Sprintf(format, args...))
}

// ErrorCode extracts the domain error code, or "" when err is not a DomainError
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// HasCode reports whether err is a DomainError with the given code
func HasCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeValidation, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrInsufficientStock   = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrNoBOMConfigured     = NewDomainError(CodeNoBOMConfigured, "No BOM configured for the requested products")
	ErrFormulaAmbiguous    = NewDomainError(CodeFormulaAmbiguous, "More than one active formula for product")
)
