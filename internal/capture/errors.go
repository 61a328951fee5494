package capture

import "errors"

// ErrQuotaExceeded marks a create-path capture blocked by the monthly quota.
// Match with errors.Is; the concrete *QuotaExceededError carries the reason.
var ErrQuotaExceeded = errors.New("monthly lead quota exceeded")

// ErrValidation marks malformed candidate input. Not retried.
var ErrValidation = errors.New("invalid candidate")

type QuotaExceededError struct {
	Limit  int64
	Reason string
}

func (e *QuotaExceededError) Error() string { return e.Reason }

func (e *QuotaExceededError) Is(target error) bool { return target == ErrQuotaExceeded }

type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Detail }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
