package domain

// ParticipantKind identifies one of the three participant roles of a
// dialogue meeting.
type ParticipantKind string

const (
	// KindEmployee is the employee on sick leave (arbeidstaker).
	KindEmployee ParticipantKind = "employee"
	// KindEmployer is the employer representative (arbeidsgiver).
	KindEmployer ParticipantKind = "employer"
	// KindPractitioner is the treating practitioner (behandler).
	KindPractitioner ParticipantKind = "practitioner"
)

// Valid reports whether k is a known participant kind.
func (k ParticipantKind) Valid() bool {
	switch k {
	case KindEmployee, KindEmployer, KindPractitioner:
		return true
	}
	return false
}

// Participant is one meeting participant and the owner of its
// notification thread.
type Participant struct {
	ID        string
	MeetingID string
	Kind      ParticipantKind
	// Ident is the subject identity: person id for employees,
	// organization number for employers, practitioner reference for
	// practitioners.
	Ident string

	// Practitioner-only fields.
	Attends         bool
	ReceivesMinutes bool
	// ConversationRef is constant for all practitioner messages of one
	// meeting. Empty until the first practitioner notification starts
	// the conversation.
	ConversationRef string
	// ThreadHeadID points at the most recent practitioner notification
	// or response, whichever is later. Maintained incrementally so the
	// thread builder never scans the ledger.
	ThreadHeadID string
}
