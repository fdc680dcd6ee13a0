package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DraftInput stores or replaces the single unfinalized minutes draft.
type DraftInput struct {
	MeetingID string
	Content   MinutesContent
}

// FinalizeInput concludes a meeting. Content, when supplied, replaces
// the draft before it is promoted; otherwise a stored draft must exist.
type FinalizeInput struct {
	MeetingID         string
	CaseworkerIdent   string
	Content           *MinutesContent
	Reachability      Reachability
	FollowUpStartDate *time.Time
}

// AmendInput appends a corrected minutes version to a finalized meeting.
type AmendInput struct {
	MeetingID         string
	CaseworkerIdent   string
	Content           MinutesContent
	AmendmentReason   string
	Reachability      Reachability
	FollowUpStartDate *time.Time
}

// StoreDraft creates or overwrites the meeting's minutes draft. At
// most one draft exists per meeting; storing again replaces it. This
// is not a lifecycle transition: no notifications or audit rows are
// written.
func (s *Service) StoreDraft(ctx context.Context, input DraftInput) (Minutes, error) {
	if s == nil || s.store == nil {
		return Minutes{}, ErrStoreNotConfigured
	}
	input.MeetingID = strings.TrimSpace(input.MeetingID)
	if input.MeetingID == "" {
		return Minutes{}, validationf("meeting id is required")
	}
	if len(input.Content.Document) == 0 {
		return Minutes{}, validationf("minutes document is required")
	}

	meeting, err := s.store.GetMeeting(ctx, input.MeetingID)
	if err != nil {
		return Minutes{}, err
	}
	if !meeting.Status.Unfinished() {
		return Minutes{}, conflictf("cannot store minutes draft: already %s", meeting.Status)
	}

	draft, err := s.draftFor(ctx, meeting, input.Content)
	if err != nil {
		return Minutes{}, err
	}
	if err := s.store.UpsertDraftMinutes(ctx, draft); err != nil {
		return Minutes{}, err
	}
	return draft, nil
}

// Finalize concludes the meeting: the draft becomes the authoritative
// finalized minutes, the meeting transitions to finalized, and minutes
// notifications go out to the participants. The practitioner receives
// them only when flagged to.
func (s *Service) Finalize(ctx context.Context, input FinalizeInput) (TransitionResult, error) {
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
	if err := CheckTransition(OperationFinalize, meeting.Status); err != nil {
		return TransitionResult{}, err
	}

	var minutes Minutes
	if input.Content != nil {
		minutes, err = s.draftFor(ctx, meeting, *input.Content)
		if err != nil {
			return TransitionResult{}, err
		}
	} else {
		minutes, err = s.store.GetDraftMinutes(ctx, meeting.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return TransitionResult{}, validationf("no minutes draft to finalize")
			}
			return TransitionResult{}, err
		}
	}

	now := s.nowUTC()
	minutes.Finalized = true
	minutes.CreatedAt = now

	expected := meeting.Status
	meeting.Status = StatusFinalized
	meeting.CurrentMinutesID = minutes.ID

	notifications, threadUpdate, err := s.buildMinutesNotifications(&meeting, minutes, input.Reachability, now)
	if err != nil {
		return TransitionResult{}, err
	}

	audit, err := s.buildAudit(meeting.ID, StatusFinalized, input.CaseworkerIdent, input.FollowUpStartDate, now)
	if err != nil {
		return TransitionResult{}, err
	}

	change := TransitionChange{
		Operation:           OperationFinalize,
		ExpectedStatus:      expected,
		Meeting:             meeting,
		Notifications:       notifications,
		ThreadUpdate:        threadUpdate,
		Audit:               audit,
		Minutes:             &minutes,
		MinutesReplaceDraft: true,
	}
	if err := s.store.CommitTransition(ctx, change); err != nil {
		return TransitionResult{}, err
	}
	return TransitionResult{Meeting: meeting, Notifications: notifications, Audit: audit, Minutes: &minutes}, nil
}

// AmendMinutes appends a corrected minutes version. Prior versions are
// never mutated; the new version becomes authoritative.
func (s *Service) AmendMinutes(ctx context.Context, input AmendInput) (TransitionResult, error) {
	if s == nil || s.store == nil {
		return TransitionResult{}, ErrStoreNotConfigured
	}
	input.MeetingID = strings.TrimSpace(input.MeetingID)
	input.CaseworkerIdent = strings.TrimSpace(input.CaseworkerIdent)
	input.AmendmentReason = strings.TrimSpace(input.AmendmentReason)
	if input.MeetingID == "" {
		return TransitionResult{}, validationf("meeting id is required")
	}
	if input.CaseworkerIdent == "" {
		return TransitionResult{}, validationf("caseworker ident is required")
	}
	if input.AmendmentReason == "" {
		return TransitionResult{}, validationf("amendment reason is required")
	}
	if len(input.Content.Document) == 0 {
		return TransitionResult{}, validationf("minutes document is required")
	}

	meeting, err := s.store.GetMeeting(ctx, input.MeetingID)
	if err != nil {
		return TransitionResult{}, err
	}
	if err := CheckTransition(OperationAmendMinutes, meeting.Status); err != nil {
		return TransitionResult{}, err
	}

	version, err := s.nextMinutesVersion(ctx, meeting.ID)
	if err != nil {
		return TransitionResult{}, err
	}
	minutesID, err := s.newID()
	if err != nil {
		return TransitionResult{}, fmt.Errorf("generate minutes id: %w", err)
	}

	now := s.nowUTC()
	minutes := Minutes{
		ID:               minutesID,
		MeetingID:        meeting.ID,
		Version:          version,
		Finalized:        true,
		Document:         input.Content.Document,
		PractitionerTask: input.Content.PractitionerTask,
		AmendmentReason:  input.AmendmentReason,
		Attendance:       input.Content.Attendance,
		CreatedAt:        now,
	}

	expected := meeting.Status
	meeting.CurrentMinutesID = minutes.ID

	notifications, threadUpdate, err := s.buildMinutesNotifications(&meeting, minutes, input.Reachability, now)
	if err != nil {
		return TransitionResult{}, err
	}

	audit, err := s.buildAudit(meeting.ID, StatusFinalized, input.CaseworkerIdent, input.FollowUpStartDate, now)
	if err != nil {
		return TransitionResult{}, err
	}

	change := TransitionChange{
		Operation:      OperationAmendMinutes,
		ExpectedStatus: expected,
		Meeting:        meeting,
		Notifications:  notifications,
		ThreadUpdate:   threadUpdate,
		Audit:          audit,
		Minutes:        &minutes,
	}
	if err := s.store.CommitTransition(ctx, change); err != nil {
		return TransitionResult{}, err
	}
	return TransitionResult{Meeting: meeting, Notifications: notifications, Audit: audit, Minutes: &minutes}, nil
}

// ListMinutes returns all minutes versions for a meeting, oldest first.
func (s *Service) ListMinutes(ctx context.Context, meetingID string) ([]Minutes, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return nil, validationf("meeting id is required")
	}
	return s.store.ListMinutesByMeeting(ctx, meetingID)
}

// CurrentMinutes returns the authoritative minutes version for display.
func (s *Service) CurrentMinutes(ctx context.Context, meetingID string) (Minutes, error) {
	if s == nil || s.store == nil {
		return Minutes{}, ErrStoreNotConfigured
	}
	meeting, err := s.GetMeeting(ctx, meetingID)
	if err != nil {
		return Minutes{}, err
	}
	if meeting.CurrentMinutesID == "" {
		return Minutes{}, ErrMinutesNotFound
	}
	return s.store.GetMinutes(ctx, meeting.CurrentMinutesID)
}

// buildMinutesNotifications creates the minutes notifications for one
// finalize or amend transition. Channel selection follows the supplied
// reachability verdict, same as every other transition; the
// practitioner receives minutes only when flagged to.
func (s *Service) buildMinutesNotifications(meeting *Meeting, minutes Minutes, reachability Reachability, now time.Time) ([]Notification, *ThreadStateUpdate, error) {
	includePractitioner := meeting.HasPractitioner() && meeting.Practitioner.ReceivesMinutes
	document := minutesNotificationDocument(minutes)
	return s.buildTransitionNotifications(transitionNotificationSpec{
		meeting:             meeting,
		notificationType:    TypeMinutes,
		reachability:        reachability,
		employeeDoc:         document,
		employerDoc:         document,
		practitionerDoc:     document,
		includePractitioner: includePractitioner,
		now:                 now,
	})
}

// draftFor shapes caseworker content into the meeting's draft row,
// reusing the existing draft id when one exists.
func (s *Service) draftFor(ctx context.Context, meeting Meeting, content MinutesContent) (Minutes, error) {
	draft, err := s.store.GetDraftMinutes(ctx, meeting.ID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return Minutes{}, err
		}
		draftID, idErr := s.newID()
		if idErr != nil {
			return Minutes{}, fmt.Errorf("generate minutes id: %w", idErr)
		}
		version, versionErr := s.nextMinutesVersion(ctx, meeting.ID)
		if versionErr != nil {
			return Minutes{}, versionErr
		}
		draft = Minutes{ID: draftID, MeetingID: meeting.ID, Version: version}
	}
	draft.Document = content.Document
	draft.PractitionerTask = content.PractitionerTask
	draft.Attendance = content.Attendance
	draft.Finalized = false
	draft.CreatedAt = s.nowUTC()
	return draft, nil
}

func (s *Service) nextMinutesVersion(ctx context.Context, meetingID string) (int, error) {
	versions, err := s.store.ListMinutesByMeeting(ctx, meetingID)
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, m := range versions {
		if m.Finalized && m.Version > highest {
			highest = m.Version
		}
	}
	return highest + 1, nil
}
