package domain

import "time"

// Meeting is one scheduled dialogue meeting. It exclusively owns its
// participants, which own their notifications and responses; minutes
// and audit rows are independently append-only histories.
type Meeting struct {
	ID              string
	Status          MeetingStatus
	CaseworkerIdent string
	// OrgUnit is the assigned organizational unit handling the case.
	OrgUnit   string
	CreatedBy string

	ScheduledAt time.Time
	Place       string
	VideoLink   string

	CreatedAt time.Time

	Employee Participant
	Employer Participant
	// Practitioner is nil when no treating practitioner takes part.
	Practitioner *Participant

	// CurrentMinutesID points at the authoritative minutes version, or
	// is empty before any minutes exist.
	CurrentMinutesID string
}

// HasPractitioner reports whether a practitioner participant is attached.
func (m Meeting) HasPractitioner() bool {
	return m.Practitioner != nil
}
