package domain

import "time"

// NotificationType describes the lifecycle event a notification records.
type NotificationType string

const (
	// TypeInvited is the initial meeting invitation.
	TypeInvited NotificationType = "invited"
	// TypeRescheduled announces a new proposed time or place.
	TypeRescheduled NotificationType = "rescheduled"
	// TypeCancelled announces cancellation.
	TypeCancelled NotificationType = "cancelled"
	// TypeMinutes delivers finalized or amended meeting minutes.
	TypeMinutes NotificationType = "minutes"
)

// Channel is the delivery channel for one notification.
type Channel string

const (
	// ChannelDigital is in-app digital delivery, or the structured
	// messaging protocol for practitioner participants.
	ChannelDigital Channel = "digital"
	// ChannelPhysicalLetter is postal delivery ordered through the
	// letter-ordering integration.
	ChannelPhysicalLetter Channel = "physical_letter"
)

// BlockKind is the type of one structured document block.
type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockLink      BlockKind = "link"
)

// DocumentBlock is one ordered content block of a notification document.
type DocumentBlock struct {
	Kind  BlockKind
	Title string
	Texts []string
}

// Notification is one append-only per-participant record of a
// lifecycle event plus its delivery document. It is created once by a
// lifecycle transition and mutated only to set the read timestamp, the
// letter-ordered timestamp, the rendered-artifact reference, or to
// attach a response.
type Notification struct {
	ID            string
	ParticipantID string
	MeetingID     string
	// Kind mirrors the owning participant's kind so dispatch can route
	// without a second lookup.
	Kind      ParticipantKind
	Type      NotificationType
	Channel   Channel
	Document  []DocumentBlock
	FreeText  string
	CreatedAt time.Time

	ReadAt          *time.Time
	LetterOrderedAt *time.Time

	// ConversationRef and ParentRef are set only on practitioner
	// notifications. The first notification of a meeting's practitioner
	// thread carries its own id as ConversationRef and no ParentRef.
	ConversationRef string
	ParentRef       string

	// ArtifactRef references the rendered document artifact once
	// rendering has occurred. Rendering happens at most once.
	ArtifactRef string
}
