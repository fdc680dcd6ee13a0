package domain

import "time"

// ResponseKind enumerates the accepted participant answers to a
// meeting notification.
type ResponseKind string

const (
	// ResponseWillAttend confirms attendance.
	ResponseWillAttend ResponseKind = "will_attend"
	// ResponseWillNotAttend declines attendance.
	ResponseWillNotAttend ResponseKind = "will_not_attend"
	// ResponseNewTimeProposed asks for a different time.
	ResponseNewTimeProposed ResponseKind = "new_time_proposed"
)

// Valid reports whether k is a known response kind.
func (k ResponseKind) Valid() bool {
	switch k {
	case ResponseWillAttend, ResponseWillNotAttend, ResponseNewTimeProposed:
		return true
	}
	return false
}

// Response is the single accepted answer to one notification. A second
// submission is rejected, never overwritten.
type Response struct {
	ID             string
	NotificationID string
	Kind           ResponseKind
	FreeText       string
	CreatedAt      time.Time
}
