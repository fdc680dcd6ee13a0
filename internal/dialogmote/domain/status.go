package domain

import "fmt"

// MeetingStatus is the lifecycle state of one dialogue meeting.
type MeetingStatus string

const (
	// StatusInvited is the initial state, reached only by convening.
	StatusInvited MeetingStatus = "invited"
	// StatusRescheduled means a new time or place has been proposed.
	StatusRescheduled MeetingStatus = "rescheduled"
	// StatusCancelled means the meeting was called off.
	StatusCancelled MeetingStatus = "cancelled"
	// StatusFinalized means the meeting was held and its minutes finalized.
	StatusFinalized MeetingStatus = "finalized"
	// StatusClosed is terminal: the meeting was administratively superseded.
	StatusClosed MeetingStatus = "closed"
)

// Valid reports whether s is a member of the fixed status set.
func (s MeetingStatus) Valid() bool {
	switch s {
	case StatusInvited, StatusRescheduled, StatusCancelled, StatusFinalized, StatusClosed:
		return true
	}
	return false
}

// Unfinished reports whether the meeting still awaits an outcome. At
// most one unfinished meeting may exist per employee.
func (s MeetingStatus) Unfinished() bool {
	return s == StatusInvited || s == StatusRescheduled
}

// Operation is one lifecycle operation on a meeting.
type Operation string

const (
	OperationConvene      Operation = "convene"
	OperationReschedule   Operation = "reschedule"
	OperationCancel       Operation = "cancel"
	OperationFinalize     Operation = "finalize"
	OperationAmendMinutes Operation = "amend minutes"
	OperationClose        Operation = "close"
)

// transitionTargets maps each operation to the status it produces.
// Amending minutes leaves the meeting finalized.
var transitionTargets = map[Operation]MeetingStatus{
	OperationConvene:      StatusInvited,
	OperationReschedule:   StatusRescheduled,
	OperationCancel:       StatusCancelled,
	OperationFinalize:     StatusFinalized,
	OperationAmendMinutes: StatusFinalized,
	OperationClose:        StatusClosed,
}

// allowedSources maps each operation to the statuses it may start from.
// Convene is absent: it applies only to a meeting that does not exist.
var allowedSources = map[Operation][]MeetingStatus{
	OperationReschedule:   {StatusInvited, StatusRescheduled},
	OperationCancel:       {StatusInvited, StatusRescheduled},
	OperationFinalize:     {StatusInvited, StatusRescheduled},
	OperationAmendMinutes: {StatusFinalized},
	OperationClose:        {StatusInvited, StatusRescheduled, StatusCancelled, StatusFinalized},
}

// TargetStatus returns the status produced by op.
func TargetStatus(op Operation) (MeetingStatus, bool) {
	target, ok := transitionTargets[op]
	return target, ok
}

// CheckTransition validates that op may be applied to a meeting in
// status current. Violations return a conflict naming the attempted
// operation and the meeting's actual status so callers can
// disambiguate idempotent retries from real errors.
func CheckTransition(op Operation, current MeetingStatus) error {
	sources, ok := allowedSources[op]
	if !ok {
		return conflictf("cannot %s: unknown operation", op)
	}
	for _, source := range sources {
		if current == source {
			return nil
		}
	}
	return conflictf("cannot %s: already %s", op, current)
}

func (s MeetingStatus) String() string {
	return string(s)
}

// ParseStatus converts a stored status token back into a MeetingStatus.
func ParseStatus(raw string) (MeetingStatus, error) {
	status := MeetingStatus(raw)
	if !status.Valid() {
		return "", fmt.Errorf("unknown meeting status %q", raw)
	}
	return status, nil
}
