package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a configuration domain error with a structured code.
// Codes follow the AS-<AREA>-<NNNN> layout, where the numeric part mirrors
// the closest HTTP status class.
type DomainError struct {
	Code    string // Error code (e.g., "AS-SCHM-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithDetailsf is WithDetails with fmt.Sprintf formatting.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// CodeOf returns the code of the first DomainError in err's chain, or ""
// when there is none.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Schema Errors (SCHM)
// ============================================================================

var (
	// ErrSchemaInvalid indicates a schema failed meta-validation or compilation.
	ErrSchemaInvalid = NewDomainError("AS-SCHM-4000", "invalid schema")

	// ErrSchemaMissingID indicates no identifier could be derived for a schema.
	ErrSchemaMissingID = NewDomainError("AS-SCHM-4001", "schema has no $id and no id was supplied")

	// ErrSchemaNotFound indicates the requested schema is not registered.
	ErrSchemaNotFound = NewDomainError("AS-SCHM-4040", "schema not found")

	// ErrSchemaMountConflict indicates an extension schema is already mounted
	// under the same kind and name with a different id.
	ErrSchemaMountConflict = NewDomainError("AS-SCHM-4090", "extension schema mount conflict")
)

// ============================================================================
// Config Errors (CONF)
// ============================================================================

var (
	// ErrConfigInvalid indicates a user-provided config file could not be parsed.
	ErrConfigInvalid = NewDomainError("AS-CONF-4000", "config file is invalid")

	// ErrConfigNotFound indicates a user-provided config file does not exist.
	ErrConfigNotFound = NewDomainError("AS-CONF-4040", "config file not found")

	// ErrArgumentInvalid indicates a command-line value could not be converted.
	ErrArgumentInvalid = NewDomainError("AS-CONF-4001", "invalid argument value")
)

// ============================================================================
// Extension Errors (EXT)
// ============================================================================

var (
	// ErrManifestInvalid indicates an extension manifest could not be read.
	ErrManifestInvalid = NewDomainError("AS-EXT-4000", "extension manifest is invalid")

	// ErrExtensionSchemaLoad indicates an extension schema file could not be loaded.
	ErrExtensionSchemaLoad = NewDomainError("AS-EXT-4001", "unable to load extension schema")
)
