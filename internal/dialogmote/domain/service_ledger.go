package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MarkNotificationRead records when the owning participant first read
// the notification. Re-marking is a no-op: the first timestamp wins.
// Access control is the caller's concern.
func (s *Service) MarkNotificationRead(ctx context.Context, notificationID string) (Notification, error) {
	if s == nil || s.store == nil {
		return Notification{}, ErrStoreNotConfigured
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return Notification{}, validationf("notification id is required")
	}
	return s.store.MarkNotificationRead(ctx, notificationID, s.nowUTC())
}

// MarkLetterOrdered records postal dispatch confirmation for a
// physical-letter notification. Idempotent: a second confirmation does
// not move the timestamp.
func (s *Service) MarkLetterOrdered(ctx context.Context, notificationID string) (Notification, error) {
	if s == nil || s.store == nil {
		return Notification{}, ErrStoreNotConfigured
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return Notification{}, validationf("notification id is required")
	}
	notification, err := s.store.GetNotification(ctx, notificationID)
	if err != nil {
		return Notification{}, err
	}
	if notification.Channel != ChannelPhysicalLetter {
		return Notification{}, validationf("notification is not a physical letter")
	}
	return s.store.MarkLetterOrdered(ctx, notificationID, s.nowUTC())
}

// RecordResponseInput attaches a participant answer to a notification.
type RecordResponseInput struct {
	NotificationID string
	Kind           ResponseKind
	FreeText       string
}

// RecordResponse stores the single accepted response for a
// notification. A second submission is rejected with a conflict and
// the first response is left unchanged. Responses on practitioner
// notifications advance the thread head so later outbound messages
// branch from the reply.
func (s *Service) RecordResponse(ctx context.Context, input RecordResponseInput) (Response, error) {
	if s == nil || s.store == nil {
		return Response{}, ErrStoreNotConfigured
	}
	input.NotificationID = strings.TrimSpace(input.NotificationID)
	if input.NotificationID == "" {
		return Response{}, validationf("notification id is required")
	}
	if !input.Kind.Valid() {
		return Response{}, validationf("unknown response kind %q", input.Kind)
	}

	notification, err := s.store.GetNotification(ctx, input.NotificationID)
	if err != nil {
		return Response{}, err
	}
	if _, err := s.store.GetResponseByNotification(ctx, notification.ID); err == nil {
		return Response{}, ErrResponseAlreadyStored
	} else if !errors.Is(err, ErrNotFound) {
		return Response{}, err
	}

	responseID, err := s.newID()
	if err != nil {
		return Response{}, fmt.Errorf("generate response id: %w", err)
	}
	response := Response{
		ID:             responseID,
		NotificationID: notification.ID,
		Kind:           input.Kind,
		FreeText:       strings.TrimSpace(input.FreeText),
		CreatedAt:      s.nowUTC(),
	}

	var threadUpdate *ThreadStateUpdate
	if notification.Kind == KindPractitioner {
		threadUpdate = &ThreadStateUpdate{
			ParticipantID:   notification.ParticipantID,
			ConversationRef: notification.ConversationRef,
			ThreadHeadID:    response.ID,
		}
	}

	if err := s.store.PutResponse(ctx, response, threadUpdate); err != nil {
		if errors.Is(err, ErrConflict) {
			return Response{}, ErrResponseAlreadyStored
		}
		return Response{}, err
	}
	return response, nil
}

// InboundReplyInput is one practitioner reply delivered by the inbound
// messaging adapter, tagged with the thread references the sender
// declared.
type InboundReplyInput struct {
	ConversationRef string
	ParentRef       string
	Kind            ResponseKind
	FreeText        string
}

// RecordInboundReply maps an inbound practitioner message onto the
// notification its references point at and records it as that
// notification's response. When no notification matches, the reply is
// rejected with ErrNotificationNotFound so the adapter can drop and
// log it; a notification is never fabricated.
func (s *Service) RecordInboundReply(ctx context.Context, input InboundReplyInput) (Response, error) {
	if s == nil || s.store == nil {
		return Response{}, ErrStoreNotConfigured
	}
	input.ConversationRef = strings.TrimSpace(input.ConversationRef)
	input.ParentRef = strings.TrimSpace(input.ParentRef)
	if input.ConversationRef == "" {
		return Response{}, validationf("conversation ref is required")
	}

	notification, err := s.store.FindNotificationByThreadRefs(ctx, input.ConversationRef, input.ParentRef)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Response{}, ErrNotificationNotFound
		}
		return Response{}, err
	}

	return s.RecordResponse(ctx, RecordResponseInput{
		NotificationID: notification.ID,
		Kind:           input.Kind,
		FreeText:       input.FreeText,
	})
}

// RenderedDocument returns the rendered artifact reference for a
// notification's document, invoking the renderer collaborator at most
// once. Later requests return the stored reference.
func (s *Service) RenderedDocument(ctx context.Context, notificationID string, renderer DocumentRenderer) (string, error) {
	if s == nil || s.store == nil {
		return "", ErrStoreNotConfigured
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return "", validationf("notification id is required")
	}
	if renderer == nil {
		return "", validationf("document renderer is required")
	}

	notification, err := s.store.GetNotification(ctx, notificationID)
	if err != nil {
		return "", err
	}
	if notification.ArtifactRef != "" {
		return notification.ArtifactRef, nil
	}

	artifactRef, err := renderer.Render(ctx, notification)
	if err != nil {
		return "", DeliveryError("render document", err)
	}
	if _, err := s.store.SetNotificationArtifact(ctx, notification.ID, artifactRef); err != nil {
		return "", err
	}
	return artifactRef, nil
}

// ListNotifications returns every notification of a meeting in
// creation order.
func (s *Service) ListNotifications(ctx context.Context, meetingID string) ([]Notification, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return nil, validationf("meeting id is required")
	}
	return s.store.ListNotificationsByMeeting(ctx, meetingID)
}

// ListAudit returns the meeting's status-change log in creation order.
func (s *Service) ListAudit(ctx context.Context, meetingID string) ([]AuditEntry, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return nil, validationf("meeting id is required")
	}
	return s.store.ListAuditByMeeting(ctx, meetingID)
}

// MarkAuditPublished flags one audit entry as consumed by the
// downstream case-timeline reporter. Idempotent.
func (s *Service) MarkAuditPublished(ctx context.Context, auditID string) error {
	if s == nil || s.store == nil {
		return ErrStoreNotConfigured
	}
	auditID = strings.TrimSpace(auditID)
	if auditID == "" {
		return validationf("audit id is required")
	}
	return s.store.MarkAuditPublished(ctx, auditID)
}
