// Package domainerrors carries coded errors across the metadata pipeline.
//
// Every failure the core surfaces to a caller is a *Error with a Code. Callers
// branch on the code with HasCode instead of matching message text:
//
//	if dErrors.HasCode(err, dErrors.CodeAlreadyPresent) { ... }
//
// Wrap keeps the underlying cause reachable through errors.Is / errors.As.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure.
type Code string

const (
	// Generic codes.
	CodeInternal           Code = "internal_error"
	CodeValidation         Code = "validation_error"
	CodeInvariantViolation Code = "invariant_violation"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeBadRequest         Code = "bad_request"

	// Metadata pipeline codes.
	CodeParse            Code = "parse_error"
	CodeSignature        Code = "signature_error"
	CodeSchemaValidation Code = "schema_validation_error"
	CodeMergeValidation  Code = "merge_validation_error"
	CodeStrategyNotFound Code = "strategy_not_found"
	CodePrecondition     Code = "precondition_violation"
	CodeAlreadyPresent   Code = "already_present"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf is New with fmt formatting.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to err. A nil err yields nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any coded error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is an alias for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
