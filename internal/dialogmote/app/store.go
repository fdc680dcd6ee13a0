// Package app wires the dialogue-meeting domain service to its
// persistence and delivery collaborators.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/navikt/isdialogmote/internal/dialogmote/domain"
	"github.com/navikt/isdialogmote/internal/dialogmote/storage"
)

// StoreAdapter implements the domain persistence boundary on top of a
// storage.Store, translating between domain values and storage records
// and mapping storage sentinels onto domain error kinds.
type StoreAdapter struct {
	store storage.Store
}

// NewStoreAdapter wraps a storage.Store for domain use.
func NewStoreAdapter(store storage.Store) *StoreAdapter {
	return &StoreAdapter{store: store}
}

func (a *StoreAdapter) GetMeeting(ctx context.Context, meetingID string) (domain.Meeting, error) {
	record, err := a.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return domain.Meeting{}, mapStorageError(err, domain.ErrMeetingNotFound)
	}
	return meetingFromRecord(record)
}

func (a *StoreAdapter) FindUnfinishedMeetingByEmployee(ctx context.Context, employeeIdent string) (domain.Meeting, error) {
	record, err := a.store.FindUnfinishedMeetingByEmployee(ctx, employeeIdent)
	if err != nil {
		return domain.Meeting{}, mapStorageError(err, domain.ErrMeetingNotFound)
	}
	return meetingFromRecord(record)
}

func (a *StoreAdapter) CommitTransition(ctx context.Context, change domain.TransitionChange) error {
	write, err := transitionWriteFromChange(change)
	if err != nil {
		return err
	}
	if err := a.store.CommitTransition(ctx, write); err != nil {
		return mapStorageError(err, domain.ErrMeetingNotFound)
	}
	return nil
}

func (a *StoreAdapter) GetNotification(ctx context.Context, notificationID string) (domain.Notification, error) {
	record, err := a.store.GetNotification(ctx, notificationID)
	if err != nil {
		return domain.Notification{}, mapStorageError(err, domain.ErrNotificationNotFound)
	}
	return notificationFromRecord(record)
}

func (a *StoreAdapter) ListNotificationsByMeeting(ctx context.Context, meetingID string) ([]domain.Notification, error) {
	records, err := a.store.ListNotificationsByMeeting(ctx, meetingID)
	if err != nil {
		return nil, mapStorageError(err, domain.ErrNotificationNotFound)
	}
	notifications := make([]domain.Notification, 0, len(records))
	for _, record := range records {
		notification, convertErr := notificationFromRecord(record)
		if convertErr != nil {
			return nil, convertErr
		}
		notifications = append(notifications, notification)
	}
	return notifications, nil
}

func (a *StoreAdapter) MarkNotificationRead(ctx context.Context, notificationID string, readAt time.Time) (domain.Notification, error) {
	record, err := a.store.MarkNotificationRead(ctx, notificationID, readAt)
	if err != nil {
		return domain.Notification{}, mapStorageError(err, domain.ErrNotificationNotFound)
	}
	return notificationFromRecord(record)
}

func (a *StoreAdapter) MarkLetterOrdered(ctx context.Context, notificationID string, orderedAt time.Time) (domain.Notification, error) {
	record, err := a.store.MarkLetterOrdered(ctx, notificationID, orderedAt)
	if err != nil {
		return domain.Notification{}, mapStorageError(err, domain.ErrNotificationNotFound)
	}
	return notificationFromRecord(record)
}

func (a *StoreAdapter) SetNotificationArtifact(ctx context.Context, notificationID string, artifactRef string) (domain.Notification, error) {
	record, err := a.store.SetNotificationArtifact(ctx, notificationID, artifactRef)
	if err != nil {
		return domain.Notification{}, mapStorageError(err, domain.ErrNotificationNotFound)
	}
	return notificationFromRecord(record)
}

func (a *StoreAdapter) FindNotificationByThreadRefs(ctx context.Context, conversationRef string, parentRef string) (domain.Notification, error) {
	record, err := a.store.FindNotificationByThreadRefs(ctx, conversationRef, parentRef)
	if err != nil {
		return domain.Notification{}, mapStorageError(err, domain.ErrNotificationNotFound)
	}
	return notificationFromRecord(record)
}

func (a *StoreAdapter) GetResponseByNotification(ctx context.Context, notificationID string) (domain.Response, error) {
	record, err := a.store.GetResponseByNotification(ctx, notificationID)
	if err != nil {
		return domain.Response{}, mapStorageError(err, fmt.Errorf("response %w", domain.ErrNotFound))
	}
	return domain.Response{
		ID:             record.ID,
		NotificationID: record.NotificationID,
		Kind:           domain.ResponseKind(record.Kind),
		FreeText:       record.FreeText,
		CreatedAt:      record.CreatedAt,
	}, nil
}

func (a *StoreAdapter) PutResponse(ctx context.Context, response domain.Response, thread *domain.ThreadStateUpdate) error {
	record := storage.ResponseRecord{
		ID:             response.ID,
		NotificationID: response.NotificationID,
		Kind:           string(response.Kind),
		FreeText:       response.FreeText,
		CreatedAt:      response.CreatedAt,
	}
	if err := a.store.PutResponse(ctx, record, threadRecordFromUpdate(thread)); err != nil {
		return mapStorageError(err, domain.ErrNotificationNotFound)
	}
	return nil
}

func (a *StoreAdapter) GetMinutes(ctx context.Context, minutesID string) (domain.Minutes, error) {
	record, err := a.store.GetMinutes(ctx, minutesID)
	if err != nil {
		return domain.Minutes{}, mapStorageError(err, domain.ErrMinutesNotFound)
	}
	return minutesFromRecord(record)
}

func (a *StoreAdapter) GetDraftMinutes(ctx context.Context, meetingID string) (domain.Minutes, error) {
	record, err := a.store.GetDraftMinutes(ctx, meetingID)
	if err != nil {
		return domain.Minutes{}, mapStorageError(err, domain.ErrMinutesNotFound)
	}
	return minutesFromRecord(record)
}

func (a *StoreAdapter) ListMinutesByMeeting(ctx context.Context, meetingID string) ([]domain.Minutes, error) {
	records, err := a.store.ListMinutesByMeeting(ctx, meetingID)
	if err != nil {
		return nil, mapStorageError(err, domain.ErrMinutesNotFound)
	}
	versions := make([]domain.Minutes, 0, len(records))
	for _, record := range records {
		minutes, convertErr := minutesFromRecord(record)
		if convertErr != nil {
			return nil, convertErr
		}
		versions = append(versions, minutes)
	}
	return versions, nil
}

func (a *StoreAdapter) UpsertDraftMinutes(ctx context.Context, minutes domain.Minutes) error {
	record, err := minutesToRecord(minutes)
	if err != nil {
		return err
	}
	if err := a.store.UpsertDraftMinutes(ctx, record); err != nil {
		return mapStorageError(err, domain.ErrMinutesNotFound)
	}
	return nil
}

func (a *StoreAdapter) ListAuditByMeeting(ctx context.Context, meetingID string) ([]domain.AuditEntry, error) {
	records, err := a.store.ListAuditByMeeting(ctx, meetingID)
	if err != nil {
		return nil, mapStorageError(err, domain.ErrAuditNotFound)
	}
	entries := make([]domain.AuditEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, domain.AuditEntry{
			ID:                record.ID,
			MeetingID:         record.MeetingID,
			Status:            domain.MeetingStatus(record.Status),
			ActorIdent:        record.ActorIdent,
			FollowUpStartDate: record.FollowUpStartDate,
			Published:         record.Published,
			CreatedAt:         record.CreatedAt,
		})
	}
	return entries, nil
}

func (a *StoreAdapter) MarkAuditPublished(ctx context.Context, auditID string) error {
	if err := a.store.MarkAuditPublished(ctx, auditID); err != nil {
		return mapStorageError(err, domain.ErrAuditNotFound)
	}
	return nil
}

// mapStorageError translates storage sentinels into domain error kinds.
// notFound is the domain error reported for storage.ErrNotFound, since
// the adapter knows which record the call addressed.
func mapStorageError(err error, notFound error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return notFound
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	default:
		return err
	}
}

func meetingFromRecord(record storage.MeetingRecord) (domain.Meeting, error) {
	status, err := domain.ParseStatus(record.Status)
	if err != nil {
		return domain.Meeting{}, fmt.Errorf("meeting %s: %w", record.ID, err)
	}
	meeting := domain.Meeting{
		ID:               record.ID,
		Status:           status,
		CaseworkerIdent:  record.CaseworkerIdent,
		OrgUnit:          record.OrgUnit,
		CreatedBy:        record.CreatedBy,
		ScheduledAt:      record.ScheduledAt,
		Place:            record.Place,
		VideoLink:        record.VideoLink,
		CreatedAt:        record.CreatedAt,
		Employee:         participantFromRecord(record.Employee),
		Employer:         participantFromRecord(record.Employer),
		CurrentMinutesID: record.CurrentMinutesID,
	}
	if record.Practitioner != nil {
		practitioner := participantFromRecord(*record.Practitioner)
		meeting.Practitioner = &practitioner
	}
	return meeting, nil
}

func participantFromRecord(record storage.ParticipantRecord) domain.Participant {
	return domain.Participant{
		ID:              record.ID,
		MeetingID:       record.MeetingID,
		Kind:            domain.ParticipantKind(record.Kind),
		Ident:           record.Ident,
		Attends:         record.Attends,
		ReceivesMinutes: record.ReceivesMinutes,
		ConversationRef: record.ConversationRef,
		ThreadHeadID:    record.ThreadHeadID,
	}
}

func participantToRecord(participant domain.Participant) storage.ParticipantRecord {
	return storage.ParticipantRecord{
		ID:              participant.ID,
		MeetingID:       participant.MeetingID,
		Kind:            string(participant.Kind),
		Ident:           participant.Ident,
		Attends:         participant.Attends,
		ReceivesMinutes: participant.ReceivesMinutes,
		ConversationRef: participant.ConversationRef,
		ThreadHeadID:    participant.ThreadHeadID,
	}
}

func meetingToRecord(meeting domain.Meeting) storage.MeetingRecord {
	record := storage.MeetingRecord{
		ID:               meeting.ID,
		Status:           string(meeting.Status),
		CaseworkerIdent:  meeting.CaseworkerIdent,
		OrgUnit:          meeting.OrgUnit,
		CreatedBy:        meeting.CreatedBy,
		ScheduledAt:      meeting.ScheduledAt,
		Place:            meeting.Place,
		VideoLink:        meeting.VideoLink,
		CreatedAt:        meeting.CreatedAt,
		CurrentMinutesID: meeting.CurrentMinutesID,
		Employee:         participantToRecord(meeting.Employee),
		Employer:         participantToRecord(meeting.Employer),
	}
	if meeting.Practitioner != nil {
		practitioner := participantToRecord(*meeting.Practitioner)
		record.Practitioner = &practitioner
	}
	return record
}

func transitionWriteFromChange(change domain.TransitionChange) (storage.TransitionWrite, error) {
	write := storage.TransitionWrite{
		Create:         change.Create,
		ExpectedStatus: string(change.ExpectedStatus),
		Meeting:        meetingToRecord(change.Meeting),
		Audit: storage.AuditRecord{
			ID:                change.Audit.ID,
			MeetingID:         change.Audit.MeetingID,
			Status:            string(change.Audit.Status),
			ActorIdent:        change.Audit.ActorIdent,
			FollowUpStartDate: change.Audit.FollowUpStartDate,
			Published:         change.Audit.Published,
			CreatedAt:         change.Audit.CreatedAt,
		},
		MinutesReplaceDraft: change.MinutesReplaceDraft,
	}
	for _, notification := range change.Notifications {
		record, err := notificationToRecord(notification)
		if err != nil {
			return storage.TransitionWrite{}, err
		}
		write.Notifications = append(write.Notifications, record)
	}
	write.ThreadUpdate = threadRecordFromUpdate(change.ThreadUpdate)
	if change.Minutes != nil {
		record, err := minutesToRecord(*change.Minutes)
		if err != nil {
			return storage.TransitionWrite{}, err
		}
		write.Minutes = &record
	}
	return write, nil
}

func threadRecordFromUpdate(update *domain.ThreadStateUpdate) *storage.ThreadStateRecord {
	if update == nil {
		return nil
	}
	return &storage.ThreadStateRecord{
		ParticipantID:   update.ParticipantID,
		ConversationRef: update.ConversationRef,
		ThreadHeadID:    update.ThreadHeadID,
	}
}

func notificationToRecord(notification domain.Notification) (storage.NotificationRecord, error) {
	documentJSON, err := marshalDocument(notification.Document)
	if err != nil {
		return storage.NotificationRecord{}, fmt.Errorf("encode notification %s document: %w", notification.ID, err)
	}
	return storage.NotificationRecord{
		ID:              notification.ID,
		ParticipantID:   notification.ParticipantID,
		MeetingID:       notification.MeetingID,
		Kind:            string(notification.Kind),
		Type:            string(notification.Type),
		Channel:         string(notification.Channel),
		DocumentJSON:    documentJSON,
		FreeText:        notification.FreeText,
		CreatedAt:       notification.CreatedAt,
		ReadAt:          notification.ReadAt,
		LetterOrderedAt: notification.LetterOrderedAt,
		ConversationRef: notification.ConversationRef,
		ParentRef:       notification.ParentRef,
		ArtifactRef:     notification.ArtifactRef,
	}, nil
}

func notificationFromRecord(record storage.NotificationRecord) (domain.Notification, error) {
	document, err := unmarshalDocument(record.DocumentJSON)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("decode notification %s document: %w", record.ID, err)
	}
	return domain.Notification{
		ID:              record.ID,
		ParticipantID:   record.ParticipantID,
		MeetingID:       record.MeetingID,
		Kind:            domain.ParticipantKind(record.Kind),
		Type:            domain.NotificationType(record.Type),
		Channel:         domain.Channel(record.Channel),
		Document:        document,
		FreeText:        record.FreeText,
		CreatedAt:       record.CreatedAt,
		ReadAt:          record.ReadAt,
		LetterOrderedAt: record.LetterOrderedAt,
		ConversationRef: record.ConversationRef,
		ParentRef:       record.ParentRef,
		ArtifactRef:     record.ArtifactRef,
	}, nil
}

func minutesToRecord(minutes domain.Minutes) (storage.MinutesRecord, error) {
	documentJSON, err := marshalDocument(minutes.Document)
	if err != nil {
		return storage.MinutesRecord{}, fmt.Errorf("encode minutes %s document: %w", minutes.ID, err)
	}
	attendanceJSON, err := json.Marshal(minutes.Attendance)
	if err != nil {
		return storage.MinutesRecord{}, fmt.Errorf("encode minutes %s attendance: %w", minutes.ID, err)
	}
	return storage.MinutesRecord{
		ID:               minutes.ID,
		MeetingID:        minutes.MeetingID,
		Version:          minutes.Version,
		Finalized:        minutes.Finalized,
		DocumentJSON:     documentJSON,
		PractitionerTask: minutes.PractitionerTask,
		AmendmentReason:  minutes.AmendmentReason,
		AttendanceJSON:   string(attendanceJSON),
		CreatedAt:        minutes.CreatedAt,
	}, nil
}

func minutesFromRecord(record storage.MinutesRecord) (domain.Minutes, error) {
	document, err := unmarshalDocument(record.DocumentJSON)
	if err != nil {
		return domain.Minutes{}, fmt.Errorf("decode minutes %s document: %w", record.ID, err)
	}
	var attendance []domain.Attendance
	if record.AttendanceJSON != "" {
		if err := json.Unmarshal([]byte(record.AttendanceJSON), &attendance); err != nil {
			return domain.Minutes{}, fmt.Errorf("decode minutes %s attendance: %w", record.ID, err)
		}
	}
	return domain.Minutes{
		ID:               record.ID,
		MeetingID:        record.MeetingID,
		Version:          record.Version,
		Finalized:        record.Finalized,
		Document:         document,
		PractitionerTask: record.PractitionerTask,
		AmendmentReason:  record.AmendmentReason,
		Attendance:       attendance,
		CreatedAt:        record.CreatedAt,
	}, nil
}

func marshalDocument(document []domain.DocumentBlock) (string, error) {
	if len(document) == 0 {
		return "[]", nil
	}
	encoded, err := json.Marshal(document)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func unmarshalDocument(documentJSON string) ([]domain.DocumentBlock, error) {
	if documentJSON == "" || documentJSON == "[]" {
		return nil, nil
	}
	var document []domain.DocumentBlock
	if err := json.Unmarshal([]byte(documentJSON), &document); err != nil {
		return nil, err
	}
	return document, nil
}
