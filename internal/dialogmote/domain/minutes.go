package domain

import "time"

// Attendance records whether one participant attended the meeting.
type Attendance struct {
	Kind     ParticipantKind
	Ident    string
	Attended bool
}

// Minutes is one version of a meeting's minutes (referat). Versions
// are append-only: finalize promotes the draft, amend adds a new row
// and leaves prior versions intact. The meeting's CurrentMinutesID
// always points at the authoritative version.
type Minutes struct {
	ID        string
	MeetingID string
	// Version is 1 for the first finalized minutes and increments on
	// each amendment. The draft carries the version it will get once
	// finalized.
	Version          int
	Finalized        bool
	Document         []DocumentBlock
	PractitionerTask string
	// AmendmentReason is set only on amended versions.
	AmendmentReason string
	Attendance      []Attendance
	CreatedAt       time.Time
}

// MinutesContent is caseworker-supplied minutes input shared by the
// draft, finalize and amend operations.
type MinutesContent struct {
	Document         []DocumentBlock
	PractitionerTask string
	Attendance       []Attendance
}
