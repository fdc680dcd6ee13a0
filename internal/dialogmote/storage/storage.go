// Package storage defines the persistence records and interfaces for
// dialogue-meeting state.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested meeting, notification, response,
	// minutes or audit record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a requested write conflicts with uniqueness
	// constraints or an expected-status guard.
	ErrConflict = errors.New("record conflict")
)

// ParticipantRecord stores one meeting participant row.
type ParticipantRecord struct {
	ID        string
	MeetingID string
	Kind      string
	Ident     string

	Attends         bool
	ReceivesMinutes bool
	ConversationRef string
	ThreadHeadID    string
}

// MeetingRecord stores one meeting row with its participant rows.
type MeetingRecord struct {
	ID              string
	Status          string
	CaseworkerIdent string
	OrgUnit         string
	CreatedBy       string
	ScheduledAt     time.Time
	Place           string
	VideoLink       string
	CreatedAt       time.Time

	CurrentMinutesID string

	Employee     ParticipantRecord
	Employer     ParticipantRecord
	Practitioner *ParticipantRecord
}

// NotificationRecord stores one notification ledger row. Document
// content is stored as serialized JSON.
type NotificationRecord struct {
	ID            string
	ParticipantID string
	MeetingID     string
	Kind          string
	Type          string
	Channel       string
	DocumentJSON  string
	FreeText      string
	CreatedAt     time.Time

	ReadAt          *time.Time
	LetterOrderedAt *time.Time

	ConversationRef string
	ParentRef       string
	ArtifactRef     string
}

// ResponseRecord stores the single accepted response to a notification.
type ResponseRecord struct {
	ID             string
	NotificationID string
	Kind           string
	FreeText       string
	CreatedAt      time.Time
}

// MinutesRecord stores one minutes version row. Document and attendance
// content are stored as serialized JSON.
type MinutesRecord struct {
	ID               string
	MeetingID        string
	Version          int
	Finalized        bool
	DocumentJSON     string
	PractitionerTask string
	AmendmentReason  string
	AttendanceJSON   string
	CreatedAt        time.Time
}

// AuditRecord stores one status-change log row.
type AuditRecord struct {
	ID                string
	MeetingID         string
	Status            string
	ActorIdent        string
	FollowUpStartDate *time.Time
	Published         bool
	CreatedAt         time.Time
}

// ThreadStateRecord advances one participant's thread pointers as part
// of a write.
type ThreadStateRecord struct {
	ParticipantID   string
	ConversationRef string
	ThreadHeadID    string
}

// TransitionWrite is the atomic unit persisted for one accepted
// lifecycle transition.
type TransitionWrite struct {
	// Create inserts the meeting and participants instead of updating.
	Create bool
	// ExpectedStatus guards updates: when the stored status differs the
	// write fails with ErrConflict.
	ExpectedStatus string
	Meeting        MeetingRecord
	Notifications  []NotificationRecord
	ThreadUpdate   *ThreadStateRecord
	Audit          AuditRecord
	Minutes        *MinutesRecord
	// MinutesReplaceDraft overwrites the single unfinalized draft row
	// instead of appending a new version.
	MinutesReplaceDraft bool
}

// MeetingStore persists meeting lifecycle state.
type MeetingStore interface {
	GetMeeting(ctx context.Context, meetingID string) (MeetingRecord, error)
	FindUnfinishedMeetingByEmployee(ctx context.Context, employeeIdent string) (MeetingRecord, error)
	CommitTransition(ctx context.Context, write TransitionWrite) error
}

// NotificationStore persists the notification ledger.
type NotificationStore interface {
	GetNotification(ctx context.Context, notificationID string) (NotificationRecord, error)
	ListNotificationsByMeeting(ctx context.Context, meetingID string) ([]NotificationRecord, error)
	MarkNotificationRead(ctx context.Context, notificationID string, readAt time.Time) (NotificationRecord, error)
	MarkLetterOrdered(ctx context.Context, notificationID string, orderedAt time.Time) (NotificationRecord, error)
	SetNotificationArtifact(ctx context.Context, notificationID string, artifactRef string) (NotificationRecord, error)
	FindNotificationByThreadRefs(ctx context.Context, conversationRef string, parentRef string) (NotificationRecord, error)
}

// ResponseStore persists notification responses.
type ResponseStore interface {
	GetResponseByNotification(ctx context.Context, notificationID string) (ResponseRecord, error)
	PutResponse(ctx context.Context, record ResponseRecord, thread *ThreadStateRecord) error
}

// MinutesStore persists minutes versions.
type MinutesStore interface {
	GetMinutes(ctx context.Context, minutesID string) (MinutesRecord, error)
	GetDraftMinutes(ctx context.Context, meetingID string) (MinutesRecord, error)
	ListMinutesByMeeting(ctx context.Context, meetingID string) ([]MinutesRecord, error)
	UpsertDraftMinutes(ctx context.Context, record MinutesRecord) error
}

// AuditStore persists the status-change log.
type AuditStore interface {
	ListAuditByMeeting(ctx context.Context, meetingID string) ([]AuditRecord, error)
	MarkAuditPublished(ctx context.Context, auditID string) error
}

// Store combines all dialogue-meeting persistence concerns.
type Store interface {
	MeetingStore
	NotificationStore
	ResponseStore
	MinutesStore
	AuditStore
}
