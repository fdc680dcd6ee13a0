package domain

import "time"

// AuditEntry is one row of the append-only status-change log. Exactly
// one entry is written per accepted lifecycle transition. Entries are
// created unpublished and marked published by the downstream
// case-timeline consumer.
type AuditEntry struct {
	ID        string
	MeetingID string
	Status    MeetingStatus
	// ActorIdent identifies the caseworker, or the system actor for
	// administrative closes.
	ActorIdent string
	// FollowUpStartDate is a denormalized snapshot of the active
	// follow-up case start date at transition time.
	FollowUpStartDate *time.Time
	Published         bool
	CreatedAt         time.Time
}
