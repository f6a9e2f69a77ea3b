package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Common sentinel errors. Every error returned by the services is marked with exactly one of
// these so callers can branch with errors.Is without string matching.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrValidation       = errors.New("validation error")
	ErrDatabase         = errors.New("database error")
	ErrInternal         = errors.New("internal error")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrDataIntegrity covers negative consumption without an override, duplicate readings
	// and overlapping billing periods. Fatal for the affected record only.
	ErrDataIntegrity = errors.New("data integrity error")

	// ErrMissingPricing is returned when no price record is effective at the billing date.
	ErrMissingPricing = errors.New("missing pricing")

	// ErrMissingPrecedingPeriod is returned when a period has no earlier reading to diff against.
	ErrMissingPrecedingPeriod = errors.New("missing preceding period")

	// ErrConfiguration aborts a whole run, e.g. zero active households.
	ErrConfiguration = errors.New("configuration error")

	// ErrConcurrencyConflict is retryable by the caller.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// InternalError carries the hint and reportable details attached through the builder.
type InternalError struct {
	Err     error
	Hint    string
	Details map[string]any
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// DisplayError returns the hint if present, the error message otherwise
func (e *InternalError) DisplayError() string {
	if e.Hint != "" {
		return e.Hint
	}
	return e.Error()
}

// ErrorBuilder builds a marked error in a fluent style:
//
//	ierr.NewError("no pricing").WithHint("...").WithReportableDetails(...).Mark(ierr.ErrMissingPricing)
type ErrorBuilder struct {
	err     error
	hint    string
	details map[string]any
}

// NewError starts a builder from a fresh message
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.NewWithDepth(1, msg)}
}

// WithError starts a builder wrapping an existing error
func WithError(err error) *ErrorBuilder {
	if err == nil {
		err = errors.NewWithDepth(1, "unknown error")
	}
	return &ErrorBuilder{err: err}
}

func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.err = errors.WithMessage(b.err, msg)
	return b
}

func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.hint = hint
	return b
}

func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.hint = fmt.Sprintf(format, args...)
	return b
}

func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	if b.details == nil {
		b.details = make(map[string]any, len(details))
	}
	for k, v := range details {
		b.details[k] = v
	}
	return b
}

// Mark finalizes the builder and marks the error with the given sentinel
func (b *ErrorBuilder) Mark(reference error) error {
	err := b.err
	if b.hint != "" {
		err = errors.WithHint(err, b.hint)
	}
	return errors.Mark(&InternalError{
		Err:     err,
		Hint:    b.hint,
		Details: b.details,
	}, reference)
}

// GetHint returns the outermost hint attached to err
func GetHint(err error) string {
	var ie *InternalError
	if errors.As(err, &ie) && ie.Hint != "" {
		return ie.Hint
	}
	hints := errors.GetAllHints(err)
	if len(hints) > 0 {
		return hints[0]
	}
	return ""
}

// GetReportableDetails returns the details of the outermost InternalError
func GetReportableDetails(err error) map[string]any {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.Details
	}
	return nil
}

func IsNotFound(err error) bool               { return errors.Is(err, ErrNotFound) }
func IsAlreadyExists(err error) bool          { return errors.Is(err, ErrAlreadyExists) }
func IsValidation(err error) bool             { return errors.Is(err, ErrValidation) }
func IsDatabase(err error) bool               { return errors.Is(err, ErrDatabase) }
func IsDataIntegrity(err error) bool          { return errors.Is(err, ErrDataIntegrity) }
func IsMissingPricing(err error) bool         { return errors.Is(err, ErrMissingPricing) }
func IsMissingPrecedingPeriod(err error) bool { return errors.Is(err, ErrMissingPrecedingPeriod) }
func IsConfiguration(err error) bool          { return errors.Is(err, ErrConfiguration) }
func IsConcurrencyConflict(err error) bool    { return errors.Is(err, ErrConcurrencyConflict) }
func IsInvalidOperation(err error) bool       { return errors.Is(err, ErrInvalidOperation) }
func IsPermissionDenied(err error) bool       { return errors.Is(err, ErrPermissionDenied) }
