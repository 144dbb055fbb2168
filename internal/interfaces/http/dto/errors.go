package dto

import (
	"net/http"

	"github.com/paintworks/backend/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Request error codes
const (
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeFormulaAmbiguous is used when a master product has no single active formula
	ErrCodeFormulaAmbiguous = "ERR_FORMULA_AMBIGUOUS"
)

// Production rule error codes
const (
	ErrCodeInsufficientStock    = "ERR_INSUFFICIENT_STOCK"
	ErrCodeIllegalTransition    = "ERR_ILLEGAL_STATE_TRANSITION"
	ErrCodeNoBOMConfigured      = "ERR_NO_BOM_CONFIGURED"
	ErrCodeInvalidBatchTarget   = "ERR_INVALID_BATCH_TARGET"
	ErrCodeOutputOutOfTolerance = "ERR_OUTPUT_WEIGHT_OUT_OF_TOLERANCE"
	ErrCodeBatchNumberExhausted = "ERR_BATCH_NUMBER_EXHAUSTED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeFormulaAmbiguous:    http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInsufficientStock:    http.StatusUnprocessableEntity,
	ErrCodeIllegalTransition:    http.StatusUnprocessableEntity,
	ErrCodeNoBOMConfigured:      http.StatusUnprocessableEntity,
	ErrCodeInvalidBatchTarget:   http.StatusUnprocessableEntity,
	ErrCodeOutputOutOfTolerance: http.StatusUnprocessableEntity,

	// Every batch number candidate collided; the caller may simply retry
	ErrCodeBatchNumberExhausted: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes onto API error codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeValidation:             ErrCodeValidation,
	shared.CodeNotFound:               ErrCodeNotFound,
	shared.CodeAlreadyExists:          ErrCodeAlreadyExists,
	shared.CodeConcurrencyConflict:    ErrCodeConcurrencyConflict,
	shared.CodeInsufficientStock:      ErrCodeInsufficientStock,
	shared.CodeIllegalStateTransition: ErrCodeIllegalTransition,
	shared.CodeFormulaAmbiguous:       ErrCodeFormulaAmbiguous,
	shared.CodeNoBOMConfigured:        ErrCodeNoBOMConfigured,
	shared.CodeInvalidBatchTarget:     ErrCodeInvalidBatchTarget,
	shared.CodeOutputOutOfTolerance:   ErrCodeOutputOutOfTolerance,
	shared.CodeBatchNumberExhausted:   ErrCodeBatchNumberExhausted,
	shared.CodeUnauthorized:           ErrCodeUnauthorized,
}

// NormalizeErrorCode converts a domain error code to its API code.
// Codes that are already API codes, or unknown, are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
