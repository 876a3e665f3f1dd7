package updater

import (
	"errors"
	"fmt"
)

// Code classifies an update failure.
type Code string

// Error codes for update operations.
const (
	ErrCodeCheckFailed Code = "CHECK_FAILED"
	ErrCodeNotFound    Code = "NOT_FOUND"
	ErrCodeNoUpdate    Code = "NO_UPDATE"
	ErrCodeBusy        Code = "BUSY"
	ErrCodeBackup      Code = "BACKUP_FAILED"
	ErrCodeApply       Code = "APPLY_FAILED"
	ErrCodeDisabled    Code = "DISABLED"
)

// Error is an update failure carrying a code callers can branch on.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// CodeOf returns the code of the first *Error in err's chain, or "" when
// there is none.
func CodeOf(err error) Code {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ""
}

func newError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}
