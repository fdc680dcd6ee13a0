package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/navikt/isdialogmote/internal/platform/id"
)

// Service orchestrates the meeting lifecycle: it validates transitions,
// creates the per-participant notification records, computes
// practitioner thread references and hands the whole change to the
// store as one atomic commit.
type Service struct {
	store Store
	clock func() time.Time
	newID func() (string, error)
}

// NewService constructs the meeting lifecycle use-cases.
func NewService(store Store, clock func() time.Time, newID func() (string, error)) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Service{
		store: store,
		clock: clock,
		newID: newID,
	}
}

// Reachability carries the external reachability lookup's verdict for
// the digital notification channel, per participant. Practitioners are
// always addressed through the structured messaging protocol.
type Reachability struct {
	EmployeeDigital bool
	EmployerDigital bool
}

// PractitionerInput describes the optional practitioner participant.
type PractitionerInput struct {
	Ident           string
	Attends         bool
	ReceivesMinutes bool
}

// ConveneInput describes a new meeting invitation.
type ConveneInput struct {
	CaseworkerIdent string
	OrgUnit         string
	CreatedBy       string

	ScheduledAt time.Time
	Place       string
	VideoLink   string

	EmployeeIdent string
	EmployerIdent string
	Practitioner  *PractitionerInput
	Reachability  Reachability

	EmployeeText     string
	EmployerText     string
	PractitionerText string

	FollowUpStartDate *time.Time
}

// RescheduleInput proposes a new time or place for an unfinished meeting.
type RescheduleInput struct {
	MeetingID       string
	CaseworkerIdent string

	ScheduledAt time.Time
	Place       string
	VideoLink   string
	Reachability Reachability

	EmployeeText     string
	EmployerText     string
	PractitionerText string

	FollowUpStartDate *time.Time
}

// CancelInput calls off an unfinished meeting.
type CancelInput struct {
	MeetingID       string
	CaseworkerIdent string
	Reachability    Reachability

	EmployeeText     string
	EmployerText     string
	PractitionerText string

	FollowUpStartDate *time.Time
}

// TransitionResult is the committed outcome of one lifecycle
// transition, returned so the caller can hand the created
// notifications to external dispatch.
type TransitionResult struct {
	Meeting       Meeting
	Notifications []Notification
	Audit         AuditEntry
	Minutes       *Minutes
}

// Convene creates a meeting in the invited state and notifies every
// participant. At most one unfinished meeting may exist per employee.
func (s *Service) Convene(ctx context.Context, input ConveneInput) (TransitionResult, error) {
	if s == nil || s.store == nil {
		return TransitionResult{}, ErrStoreNotConfigured
	}
	input, err := normalizeConveneInput(input)
	if err != nil {
		return TransitionResult{}, err
	}

	_, err = s.store.FindUnfinishedMeetingByEmployee(ctx, input.EmployeeIdent)
	if err == nil {
		return TransitionResult{}, ErrMeetingAlreadyActive
	}
	if !errors.Is(err, ErrNotFound) {
		return TransitionResult{}, err
	}

	now := s.nowUTC()
	meetingID, err := s.newID()
	if err != nil {
		return TransitionResult{}, fmt.Errorf("generate meeting id: %w", err)
	}

	meeting := Meeting{
		ID:              meetingID,
		Status:          StatusInvited,
		CaseworkerIdent: input.CaseworkerIdent,
		OrgUnit:         input.OrgUnit,
		CreatedBy:       input.CreatedBy,
		ScheduledAt:     input.ScheduledAt,
		Place:           input.Place,
		VideoLink:       input.VideoLink,
		CreatedAt:       now,
	}

	employeeID, err := s.newID()
	if err != nil {
		return TransitionResult{}, fmt.Errorf("generate participant id: %w", err)
	}
	meeting.Employee = Participant{ID: employeeID, MeetingID: meetingID, Kind: KindEmployee, Ident: input.EmployeeIdent}

	employerID, err := s.newID()
	if err != nil {
		return TransitionResult{}, fmt.Errorf("generate participant id: %w", err)
	}
	meeting.Employer = Participant{ID: employerID, MeetingID: meetingID, Kind: KindEmployer, Ident: input.EmployerIdent}

	if input.Practitioner != nil {
		practitionerID, idErr := s.newID()
		if idErr != nil {
			return TransitionResult{}, fmt.Errorf("generate participant id: %w", idErr)
		}
		meeting.Practitioner = &Participant{
			ID:              practitionerID,
			MeetingID:       meetingID,
			Kind:            KindPractitioner,
			Ident:           input.Practitioner.Ident,
			Attends:         input.Practitioner.Attends,
			ReceivesMinutes: input.Practitioner.ReceivesMinutes,
		}
	}

	notifications, threadUpdate, err := s.buildTransitionNotifications(transitionNotificationSpec{
		meeting:             &meeting,
		notificationType:    TypeInvited,
		reachability:        input.Reachability,
		employeeDoc:         conveneDocument(KindEmployee, input.ScheduledAt, input.Place, input.VideoLink, input.EmployeeText),
		employerDoc:         conveneDocument(KindEmployer, input.ScheduledAt, input.Place, input.VideoLink, input.EmployerText),
		practitionerDoc:     conveneDocument(KindPractitioner, input.ScheduledAt, input.Place, input.VideoLink, input.PractitionerText),
		employeeText:        input.EmployeeText,
		employerText:        input.EmployerText,
		practitionerText:    input.PractitionerText,
		includePractitioner: meeting.HasPractitioner(),
		now:                 now,
	})
	if err != nil {
		return TransitionResult{}, err
	}

	audit, err := s.buildAudit(meetingID, StatusInvited, input.CaseworkerIdent, input.FollowUpStartDate, now)
	if err != nil {
		return TransitionResult{}, err
	}

	change := TransitionChange{
		Operation:     OperationConvene,
		Create:        true,
		Meeting:       meeting,
		Notifications: notifications,
		ThreadUpdate:  threadUpdate,
		Audit:         audit,
	}
	if err := s.store.CommitTransition(ctx, change); err != nil {
		return TransitionResult{}, err
	}
	return TransitionResult{Meeting: meeting, Notifications: notifications, Audit: audit}, nil
}

// Reschedule proposes a new time or place. A practitioner
// justification is required whenever a practitioner is attached.
func (s *Service) Reschedule(ctx context.Context, input RescheduleInput) (TransitionResult, error) {
	if s == nil || s.store == nil {
		return TransitionResult{}, ErrStoreNotConfigured
	}
	input.MeetingID = strings.TrimSpace(input.MeetingID)
	input.CaseworkerIdent = strings.TrimSpace(input.CaseworkerIdent)
	if input.MeetingID == "" {
		return TransitionResult{}, validationf("meeting id is required")
	}
	if input.CaseworkerIdent == "" {
		return TransitionResult{}, validationf("caseworker ident is required")
	}
	if input.ScheduledAt.IsZero() {
		return TransitionResult{}, validationf("scheduled time is required")
	}

	meeting, err := s.store.GetMeeting(ctx, input.MeetingID)
	if err != nil {
		return TransitionResult{}, err
	}
	if err := CheckTransition(OperationReschedule, meeting.Status); err != nil {
		return TransitionResult{}, err
	}
	if meeting.HasPractitioner() && strings.TrimSpace(input.PractitionerText) == "" {
		return TransitionResult{}, ErrMissingPractitionerDetails
	}

	now := s.nowUTC()
	expected := meeting.Status
	meeting.Status = StatusRescheduled
	meeting.ScheduledAt = input.ScheduledAt
	meeting.Place = input.Place
	meeting.VideoLink = input.VideoLink

	notifications, threadUpdate, err := s.buildTransitionNotifications(transitionNotificationSpec{
		meeting:             &meeting,
		notificationType:    TypeRescheduled,
		reachability:        input.Reachability,
		employeeDoc:         rescheduleDocument(input.ScheduledAt, input.Place, input.VideoLink, input.EmployeeText),
		employerDoc:         rescheduleDocument(input.ScheduledAt, input.Place, input.VideoLink, input.EmployerText),
		practitionerDoc:     rescheduleDocument(input.ScheduledAt, input.Place, input.VideoLink, input.PractitionerText),
		employeeText:        input.EmployeeText,
		employerText:        input.EmployerText,
		practitionerText:    input.PractitionerText,
		includePractitioner: meeting.HasPractitioner(),
		now:                 now,
	})
	if err != nil {
		return TransitionResult{}, err
	}

	audit, err := s.buildAudit(meeting.ID, StatusRescheduled, input.CaseworkerIdent, input.FollowUpStartDate, now)
	if err != nil {
		return TransitionResult{}, err
	}

	change := TransitionChange{
		Operation:      OperationReschedule,
		ExpectedStatus: expected,
		Meeting:        meeting,
		Notifications:  notifications,
		ThreadUpdate:   threadUpdate,
		Audit:          audit,
	}
	if err := s.store.CommitTransition(ctx, change); err != nil {
		return TransitionResult{}, err
	}
	return TransitionResult{Meeting: meeting, Notifications: notifications, Audit: audit}, nil
}

// Cancel calls off an unfinished meeting. A practitioner justification
// is required whenever a practitioner is attached.
func (s *Service) Cancel(ctx context.Context, input CancelInput) (TransitionResult, error) {
	if s == nil || s.store == nil {
		return TransitionResult{}, ErrStoreNotConfigured
	}
	input.MeetingID = strings.TrimSpace(input.MeetingID)
	input.CaseworkerIdent = strings.TrimSpace(input.CaseworkerIdent)
	if input.MeetingID == "" {
		return TransitionResult{}, validationf("meeting id is required")
	}
	if input.CaseworkerIdent == "" {
		return TransitionResult{}, validationf("caseworker ident is required")
	}

	meeting, err := s.store.GetMeeting(ctx, input.MeetingID)
	if err != nil {
		return TransitionResult{}, err
	}
	if err := CheckTransition(OperationCancel, meeting.Status); err != nil {
		return TransitionResult{}, err
	}
	if meeting.HasPractitioner() && strings.TrimSpace(input.PractitionerText) == "" {
		return TransitionResult{}, ErrMissingPractitionerDetails
	}

	now := s.nowUTC()
	expected := meeting.Status
	meeting.Status = StatusCancelled

	notifications, threadUpdate, err := s.buildTransitionNotifications(transitionNotificationSpec{
		meeting:             &meeting,
		notificationType:    TypeCancelled,
		reachability:        input.Reachability,
		employeeDoc:         cancelDocument(meeting.ScheduledAt, input.EmployeeText),
		employerDoc:         cancelDocument(meeting.ScheduledAt, input.EmployerText),
		practitionerDoc:     cancelDocument(meeting.ScheduledAt, input.PractitionerText),
		employeeText:        input.EmployeeText,
		employerText:        input.EmployerText,
		practitionerText:    input.PractitionerText,
		includePractitioner: meeting.HasPractitioner(),
		now:                 now,
	})
	if err != nil {
		return TransitionResult{}, err
	}

	audit, err := s.buildAudit(meeting.ID, StatusCancelled, input.CaseworkerIdent, input.FollowUpStartDate, now)
	if err != nil {
		return TransitionResult{}, err
	}

	change := TransitionChange{
		Operation:      OperationCancel,
		ExpectedStatus: expected,
		Meeting:        meeting,
		Notifications:  notifications,
		ThreadUpdate:   threadUpdate,
		Audit:          audit,
	}
	if err := s.store.CommitTransition(ctx, change); err != nil {
		return TransitionResult{}, err
	}
	return TransitionResult{Meeting: meeting, Notifications: notifications, Audit: audit}, nil
}

// CloseInput administratively supersedes a meeting. Reserved for the
// system actor; no participant notifications are produced.
type CloseInput struct {
	MeetingID         string
	ActorIdent        string
	FollowUpStartDate *time.Time
}

// Close marks a meeting administratively superseded.
func (s *Service) Close(ctx context.Context, input CloseInput) (TransitionResult, error) {
	if s == nil || s.store == nil {
		return TransitionResult{}, ErrStoreNotConfigured
	}
	input.MeetingID = strings.TrimSpace(input.MeetingID)
	if input.MeetingID == "" {
		return TransitionResult{}, validationf("meeting id is required")
	}
	actor := strings.TrimSpace(input.ActorIdent)
	if actor == "" {
		actor = "system"
	}

	meeting, err := s.store.GetMeeting(ctx, input.MeetingID)
	if err != nil {
		return TransitionResult{}, err
	}
	if err := CheckTransition(OperationClose, meeting.Status); err != nil {
		return TransitionResult{}, err
	}

	now := s.nowUTC()
	expected := meeting.Status
	meeting.Status = StatusClosed

	audit, err := s.buildAudit(meeting.ID, StatusClosed, actor, input.FollowUpStartDate, now)
	if err != nil {
		return TransitionResult{}, err
	}

	change := TransitionChange{
		Operation:      OperationClose,
		ExpectedStatus: expected,
		Meeting:        meeting,
		Audit:          audit,
	}
	if err := s.store.CommitTransition(ctx, change); err != nil {
		return TransitionResult{}, err
	}
	return TransitionResult{Meeting: meeting, Audit: audit}, nil
}

// GetMeeting loads one meeting with its participants.
func (s *Service) GetMeeting(ctx context.Context, meetingID string) (Meeting, error) {
	if s == nil || s.store == nil {
		return Meeting{}, ErrStoreNotConfigured
	}
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return Meeting{}, validationf("meeting id is required")
	}
	return s.store.GetMeeting(ctx, meetingID)
}

// transitionNotificationSpec collects what buildTransitionNotifications
// needs to create the per-participant records for one transition.
type transitionNotificationSpec struct {
	meeting             *Meeting
	notificationType    NotificationType
	reachability        Reachability
	employeeDoc         []DocumentBlock
	employerDoc         []DocumentBlock
	practitionerDoc     []DocumentBlock
	employeeText        string
	employerText        string
	practitionerText    string
	includePractitioner bool
	now                 time.Time
}

// buildTransitionNotifications creates the employee and employer
// notifications and, when requested, the practitioner notification with
// its thread references. Validation has already happened: thread
// building never runs for a transition that will be rejected.
func (s *Service) buildTransitionNotifications(spec transitionNotificationSpec) ([]Notification, *ThreadStateUpdate, error) {
	notifications := make([]Notification, 0, 3)

	employeeChannel := ChannelPhysicalLetter
	if spec.reachability.EmployeeDigital {
		employeeChannel = ChannelDigital
	}
	employeeNotification, err := s.newNotification(spec.meeting.Employee, spec.notificationType, employeeChannel, spec.employeeDoc, spec.employeeText, spec.now)
	if err != nil {
		return nil, nil, err
	}
	notifications = append(notifications, employeeNotification)

	employerChannel := ChannelPhysicalLetter
	if spec.reachability.EmployerDigital {
		employerChannel = ChannelDigital
	}
	employerNotification, err := s.newNotification(spec.meeting.Employer, spec.notificationType, employerChannel, spec.employerDoc, spec.employerText, spec.now)
	if err != nil {
		return nil, nil, err
	}
	notifications = append(notifications, employerNotification)

	if !spec.includePractitioner || spec.meeting.Practitioner == nil {
		return notifications, nil, nil
	}

	practitionerNotification, err := s.newNotification(*spec.meeting.Practitioner, spec.notificationType, ChannelDigital, spec.practitionerDoc, spec.practitionerText, spec.now)
	if err != nil {
		return nil, nil, err
	}
	refs := NextThreadRefs(*spec.meeting.Practitioner, practitionerNotification.ID)
	practitionerNotification.ConversationRef = refs.ConversationRef
	practitionerNotification.ParentRef = refs.ParentRef
	advanceThread(spec.meeting.Practitioner, refs, practitionerNotification.ID)
	notifications = append(notifications, practitionerNotification)

	return notifications, &ThreadStateUpdate{
		ParticipantID:   spec.meeting.Practitioner.ID,
		ConversationRef: spec.meeting.Practitioner.ConversationRef,
		ThreadHeadID:    spec.meeting.Practitioner.ThreadHeadID,
	}, nil
}

func (s *Service) newNotification(participant Participant, notificationType NotificationType, channel Channel, document []DocumentBlock, freeText string, now time.Time) (Notification, error) {
	notificationID, err := s.newID()
	if err != nil {
		return Notification{}, fmt.Errorf("generate notification id: %w", err)
	}
	return Notification{
		ID:            notificationID,
		ParticipantID: participant.ID,
		MeetingID:     participant.MeetingID,
		Kind:          participant.Kind,
		Type:          notificationType,
		Channel:       channel,
		Document:      document,
		FreeText:      strings.TrimSpace(freeText),
		CreatedAt:     now,
	}, nil
}

func (s *Service) buildAudit(meetingID string, status MeetingStatus, actorIdent string, followUpStartDate *time.Time, now time.Time) (AuditEntry, error) {
	auditID, err := s.newID()
	if err != nil {
		return AuditEntry{}, fmt.Errorf("generate audit id: %w", err)
	}
	return AuditEntry{
		ID:                auditID,
		MeetingID:         meetingID,
		Status:            status,
		ActorIdent:        actorIdent,
		FollowUpStartDate: followUpStartDate,
		CreatedAt:         now,
	}, nil
}

func normalizeConveneInput(input ConveneInput) (ConveneInput, error) {
	input.CaseworkerIdent = strings.TrimSpace(input.CaseworkerIdent)
	input.OrgUnit = strings.TrimSpace(input.OrgUnit)
	input.CreatedBy = strings.TrimSpace(input.CreatedBy)
	input.EmployeeIdent = strings.TrimSpace(input.EmployeeIdent)
	input.EmployerIdent = strings.TrimSpace(input.EmployerIdent)

	if input.CaseworkerIdent == "" {
		return ConveneInput{}, validationf("caseworker ident is required")
	}
	if input.OrgUnit == "" {
		return ConveneInput{}, validationf("organizational unit is required")
	}
	if input.EmployeeIdent == "" {
		return ConveneInput{}, validationf("employee ident is required")
	}
	if input.EmployerIdent == "" {
		return ConveneInput{}, validationf("employer ident is required")
	}
	if input.ScheduledAt.IsZero() {
		return ConveneInput{}, validationf("scheduled time is required")
	}
	if input.CreatedBy == "" {
		input.CreatedBy = input.CaseworkerIdent
	}
	if input.Practitioner != nil {
		practitioner := *input.Practitioner
		practitioner.Ident = strings.TrimSpace(practitioner.Ident)
		if practitioner.Ident == "" {
			return ConveneInput{}, ErrMissingPractitionerDetails
		}
		input.Practitioner = &practitioner
	}
	return input, nil
}

func (s *Service) nowUTC() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}
