package agreements

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the managers. Handlers map these to responses;
// anything else is treated as an upstream failure.
var (
	// ErrNotFound covers missing agreements, invitations, and signatures.
	// Consumed and expired invitations look identical to never-existing ones.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized covers both failed ownership checks and missing
	// identity. The external shape is the same for both so callers cannot
	// probe for existence.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrQuotaExceeded signals a plan limit was hit, including the case of
	// no active subscription at all.
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// ValidationError reports malformed or out-of-range input with the
// offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
