package domain

// ThreadRefs is one conversation/parent reference pair for an outbound
// practitioner message.
type ThreadRefs struct {
	ConversationRef string
	ParentRef       string
}

// NextThreadRefs computes the reference pair for a new practitioner
// notification. The first notification of a meeting starts a new
// conversation rooted at its own id; every later one branches from the
// participant's thread head, which tracks the most recent practitioner
// notification or reply. The conversation reference never changes once
// established.
func NextThreadRefs(practitioner Participant, notificationID string) ThreadRefs {
	if practitioner.ConversationRef == "" {
		return ThreadRefs{ConversationRef: notificationID}
	}
	return ThreadRefs{
		ConversationRef: practitioner.ConversationRef,
		ParentRef:       practitioner.ThreadHeadID,
	}
}

// advanceThread records a new outbound practitioner notification on
// the participant's thread state.
func advanceThread(practitioner *Participant, refs ThreadRefs, notificationID string) {
	practitioner.ConversationRef = refs.ConversationRef
	practitioner.ThreadHeadID = notificationID
}
