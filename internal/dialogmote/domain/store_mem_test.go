package domain

import (
	"context"
	"fmt"
	"time"
)

// memStore is a test double implementing Store with the same
// visible semantics as the sqlite store: deep copies out, conflict on
// expected-status mismatch, idempotent timestamp writes.
type memStore struct {
	meetings      map[string]*Meeting
	order         []string
	notifications []*Notification
	responses     map[string]Response
	minutes       map[string][]*Minutes
	audits        []*AuditEntry

	// afterGet, when set, runs after GetMeeting returns. Used to
	// interleave a concurrent transition between load and commit.
	afterGet func()
}

func newMemStore() *memStore {
	return &memStore{
		meetings:  map[string]*Meeting{},
		responses: map[string]Response{},
		minutes:   map[string][]*Minutes{},
	}
}

func copyMeeting(m Meeting) Meeting {
	out := m
	if m.Practitioner != nil {
		practitioner := *m.Practitioner
		out.Practitioner = &practitioner
	}
	return out
}

func (s *memStore) GetMeeting(_ context.Context, meetingID string) (Meeting, error) {
	meeting, ok := s.meetings[meetingID]
	if !ok {
		return Meeting{}, ErrMeetingNotFound
	}
	out := copyMeeting(*meeting)
	if s.afterGet != nil {
		s.afterGet()
	}
	return out, nil
}

func (s *memStore) FindUnfinishedMeetingByEmployee(_ context.Context, employeeIdent string) (Meeting, error) {
	for _, meetingID := range s.order {
		meeting := s.meetings[meetingID]
		if meeting.Employee.Ident == employeeIdent && meeting.Status.Unfinished() {
			return copyMeeting(*meeting), nil
		}
	}
	return Meeting{}, ErrMeetingNotFound
}

func (s *memStore) CommitTransition(_ context.Context, change TransitionChange) error {
	if change.Create {
		if _, exists := s.meetings[change.Meeting.ID]; exists {
			return fmt.Errorf("%w: meeting already exists", ErrConflict)
		}
		stored := copyMeeting(change.Meeting)
		s.meetings[change.Meeting.ID] = &stored
		s.order = append(s.order, change.Meeting.ID)
	} else {
		stored, ok := s.meetings[change.Meeting.ID]
		if !ok {
			return ErrMeetingNotFound
		}
		if stored.Status != change.ExpectedStatus {
			return fmt.Errorf("%w: meeting status changed to %s", ErrConflict, stored.Status)
		}
		updated := copyMeeting(change.Meeting)
		s.meetings[change.Meeting.ID] = &updated
	}
	for _, notification := range change.Notifications {
		stored := notification
		s.notifications = append(s.notifications, &stored)
	}
	if change.ThreadUpdate != nil {
		s.applyThreadUpdate(*change.ThreadUpdate)
	}
	if change.Minutes != nil {
		s.applyMinutes(change.Meeting.ID, *change.Minutes, change.MinutesReplaceDraft)
	}
	audit := change.Audit
	s.audits = append(s.audits, &audit)
	return nil
}

func (s *memStore) applyThreadUpdate(update ThreadStateUpdate) {
	for _, meeting := range s.meetings {
		if meeting.Practitioner != nil && meeting.Practitioner.ID == update.ParticipantID {
			meeting.Practitioner.ConversationRef = update.ConversationRef
			meeting.Practitioner.ThreadHeadID = update.ThreadHeadID
		}
	}
}

func (s *memStore) applyMinutes(meetingID string, minutes Minutes, replaceDraft bool) {
	rows := s.minutes[meetingID]
	if replaceDraft {
		for i, row := range rows {
			if !row.Finalized {
				stored := minutes
				rows[i] = &stored
				return
			}
		}
	}
	stored := minutes
	s.minutes[meetingID] = append(rows, &stored)
}

func (s *memStore) GetNotification(_ context.Context, notificationID string) (Notification, error) {
	for _, notification := range s.notifications {
		if notification.ID == notificationID {
			out := *notification
			return out, nil
		}
	}
	return Notification{}, ErrNotificationNotFound
}

func (s *memStore) ListNotificationsByMeeting(_ context.Context, meetingID string) ([]Notification, error) {
	var out []Notification
	for _, notification := range s.notifications {
		if notification.MeetingID == meetingID {
			out = append(out, *notification)
		}
	}
	return out, nil
}

func (s *memStore) MarkNotificationRead(_ context.Context, notificationID string, readAt time.Time) (Notification, error) {
	for _, notification := range s.notifications {
		if notification.ID == notificationID {
			if notification.ReadAt == nil {
				at := readAt
				notification.ReadAt = &at
			}
			return *notification, nil
		}
	}
	return Notification{}, ErrNotificationNotFound
}

func (s *memStore) MarkLetterOrdered(_ context.Context, notificationID string, orderedAt time.Time) (Notification, error) {
	for _, notification := range s.notifications {
		if notification.ID == notificationID {
			if notification.LetterOrderedAt == nil {
				at := orderedAt
				notification.LetterOrderedAt = &at
			}
			return *notification, nil
		}
	}
	return Notification{}, ErrNotificationNotFound
}

func (s *memStore) SetNotificationArtifact(_ context.Context, notificationID string, artifactRef string) (Notification, error) {
	for _, notification := range s.notifications {
		if notification.ID == notificationID {
			if notification.ArtifactRef == "" {
				notification.ArtifactRef = artifactRef
			}
			return *notification, nil
		}
	}
	return Notification{}, ErrNotificationNotFound
}

func (s *memStore) FindNotificationByThreadRefs(_ context.Context, conversationRef string, parentRef string) (Notification, error) {
	if parentRef != "" {
		for _, notification := range s.notifications {
			if notification.ID == parentRef && notification.ConversationRef == conversationRef {
				return *notification, nil
			}
		}
	}
	for _, notification := range s.notifications {
		if notification.ID == conversationRef && notification.ConversationRef == conversationRef {
			return *notification, nil
		}
	}
	return Notification{}, ErrNotificationNotFound
}

func (s *memStore) GetResponseByNotification(_ context.Context, notificationID string) (Response, error) {
	response, ok := s.responses[notificationID]
	if !ok {
		return Response{}, fmt.Errorf("response %w", ErrNotFound)
	}
	return response, nil
}

func (s *memStore) PutResponse(_ context.Context, response Response, thread *ThreadStateUpdate) error {
	if _, exists := s.responses[response.NotificationID]; exists {
		return fmt.Errorf("%w: response exists", ErrConflict)
	}
	s.responses[response.NotificationID] = response
	if thread != nil {
		s.applyThreadUpdate(*thread)
	}
	return nil
}

func (s *memStore) GetMinutes(_ context.Context, minutesID string) (Minutes, error) {
	for _, rows := range s.minutes {
		for _, row := range rows {
			if row.ID == minutesID {
				return *row, nil
			}
		}
	}
	return Minutes{}, ErrMinutesNotFound
}

func (s *memStore) GetDraftMinutes(_ context.Context, meetingID string) (Minutes, error) {
	for _, row := range s.minutes[meetingID] {
		if !row.Finalized {
			return *row, nil
		}
	}
	return Minutes{}, ErrMinutesNotFound
}

func (s *memStore) ListMinutesByMeeting(_ context.Context, meetingID string) ([]Minutes, error) {
	var out []Minutes
	for _, row := range s.minutes[meetingID] {
		out = append(out, *row)
	}
	return out, nil
}

func (s *memStore) UpsertDraftMinutes(_ context.Context, minutes Minutes) error {
	rows := s.minutes[minutes.MeetingID]
	for i, row := range rows {
		if !row.Finalized {
			stored := minutes
			rows[i] = &stored
			return nil
		}
	}
	stored := minutes
	s.minutes[minutes.MeetingID] = append(rows, &stored)
	return nil
}

func (s *memStore) ListAuditByMeeting(_ context.Context, meetingID string) ([]AuditEntry, error) {
	var out []AuditEntry
	for _, audit := range s.audits {
		if audit.MeetingID == meetingID {
			out = append(out, *audit)
		}
	}
	return out, nil
}

func (s *memStore) MarkAuditPublished(_ context.Context, auditID string) error {
	for _, audit := range s.audits {
		if audit.ID == auditID {
			audit.Published = true
			return nil
		}
	}
	return ErrAuditNotFound
}
