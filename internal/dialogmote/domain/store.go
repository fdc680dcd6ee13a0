package domain

import (
	"context"
	"time"
)

// ThreadStateUpdate advances one practitioner participant's thread
// pointers as part of a commit.
type ThreadStateUpdate struct {
	ParticipantID   string
	ConversationRef string
	ThreadHeadID    string
}

// TransitionChange is the atomic unit written by one accepted
// lifecycle transition: the status update, the created notifications,
// the thread-state advance, the audit row and any minutes change are
// committed together or not at all.
type TransitionChange struct {
	Operation Operation
	// Create indicates convening: the meeting and its participants are
	// inserted rather than updated.
	Create bool
	// ExpectedStatus guards updates against concurrent transitions:
	// the commit fails with a conflict when the stored status no
	// longer matches.
	ExpectedStatus MeetingStatus
	Meeting        Meeting
	Notifications  []Notification
	ThreadUpdate   *ThreadStateUpdate
	Audit          AuditEntry
	Minutes        *Minutes
	// MinutesReplaceDraft promotes the single unfinalized draft row
	// instead of appending a new version.
	MinutesReplaceDraft bool
}

// Store is the domain persistence boundary. Implementations report
// missing rows by wrapping ErrNotFound and uniqueness or
// expected-status violations by wrapping ErrConflict.
type Store interface {
	GetMeeting(ctx context.Context, meetingID string) (Meeting, error)
	FindUnfinishedMeetingByEmployee(ctx context.Context, employeeIdent string) (Meeting, error)
	CommitTransition(ctx context.Context, change TransitionChange) error

	GetNotification(ctx context.Context, notificationID string) (Notification, error)
	ListNotificationsByMeeting(ctx context.Context, meetingID string) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string, readAt time.Time) (Notification, error)
	MarkLetterOrdered(ctx context.Context, notificationID string, orderedAt time.Time) (Notification, error)
	SetNotificationArtifact(ctx context.Context, notificationID string, artifactRef string) (Notification, error)
	FindNotificationByThreadRefs(ctx context.Context, conversationRef string, parentRef string) (Notification, error)

	GetResponseByNotification(ctx context.Context, notificationID string) (Response, error)
	PutResponse(ctx context.Context, response Response, thread *ThreadStateUpdate) error

	GetMinutes(ctx context.Context, minutesID string) (Minutes, error)
	GetDraftMinutes(ctx context.Context, meetingID string) (Minutes, error)
	ListMinutesByMeeting(ctx context.Context, meetingID string) ([]Minutes, error)
	UpsertDraftMinutes(ctx context.Context, minutes Minutes) error

	ListAuditByMeeting(ctx context.Context, meetingID string) ([]AuditEntry, error)
	MarkAuditPublished(ctx context.Context, auditID string) error
}

// DocumentRenderer is the external rendering collaborator. Render
// returns a stable reference to the rendered artifact for one
// notification document.
type DocumentRenderer interface {
	Render(ctx context.Context, notification Notification) (string, error)
}
