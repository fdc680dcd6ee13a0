package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by this package wraps exactly one
// of these sentinels so callers can branch with errors.Is without
// string matching.
var (
	// ErrValidation indicates malformed or incomplete input. It is
	// always surfaced before any mutation.
	ErrValidation = errors.New("validation error")
	// ErrConflict indicates an operation that is not legal given
	// current state.
	ErrConflict = errors.New("conflict")
	// ErrNotFound indicates a referenced meeting, notification or
	// response does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDelivery indicates a post-commit collaborator failure. The
	// committed lifecycle state stands; delivery is retried by the
	// caller.
	ErrDelivery = errors.New("delivery error")
)

var (
	// ErrStoreNotConfigured indicates the service is missing persistence wiring.
	ErrStoreNotConfigured = errors.New("meeting store is not configured")
	// ErrMeetingNotFound indicates the referenced meeting does not exist.
	ErrMeetingNotFound = fmt.Errorf("meeting %w", ErrNotFound)
	// ErrNotificationNotFound indicates the referenced notification does not exist.
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)
	// ErrMinutesNotFound indicates no minutes exist for the meeting.
	ErrMinutesNotFound = fmt.Errorf("minutes %w", ErrNotFound)
	// ErrAuditNotFound indicates the referenced audit entry does not exist.
	ErrAuditNotFound = fmt.Errorf("audit entry %w", ErrNotFound)
	// ErrMissingPractitionerDetails indicates a lifecycle operation on a
	// meeting with an attached practitioner did not supply the required
	// practitioner justification.
	ErrMissingPractitionerDetails = fmt.Errorf("%w: missing practitioner details", ErrValidation)
	// ErrResponseAlreadyStored indicates the notification already has a
	// recorded response. The first response is never overwritten.
	ErrResponseAlreadyStored = fmt.Errorf("%w: response already stored", ErrConflict)
	// ErrMeetingAlreadyActive indicates an unfinished meeting already
	// exists for the employee.
	ErrMeetingAlreadyActive = fmt.Errorf("%w: unfinished meeting already exists for employee", ErrConflict)
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// DeliveryError wraps a collaborator failure that occurred after the
// lifecycle commit succeeded.
func DeliveryError(operation string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrDelivery, operation, cause)
}
