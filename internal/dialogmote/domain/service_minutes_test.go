package domain

import (
	"context"
	"errors"
	"testing"
)

func minutesContent(text string) MinutesContent {
	return MinutesContent{
		Document:         []DocumentBlock{{Kind: BlockParagraph, Texts: []string{text}}},
		PractitionerTask: "Assess gradual return to work.",
		Attendance: []Attendance{
			{Kind: KindEmployee, Ident: "12345678901", Attended: true},
			{Kind: KindEmployer, Ident: "974574861", Attended: true},
		},
	}
}

func TestStoreDraftOverwritesExistingDraft(t *testing.T) {
	t.Parallel()

	service, store := newTestService()
	convened, err := service.Convene(context.Background(), conveneInput("12345678901", nil))
	if err != nil {
		t.Fatalf("convene: %v", err)
	}

	first, err := service.StoreDraft(context.Background(), DraftInput{
		MeetingID: convened.Meeting.ID,
		Content:   minutesContent("First draft."),
	})
	if err != nil {
		t.Fatalf("first draft: %v", err)
	}
	second, err := service.StoreDraft(context.Background(), DraftInput{
		MeetingID: convened.Meeting.ID,
		Content:   minutesContent("Second draft."),
	})
	if err != nil {
		t.Fatalf("second draft: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("expected draft id to be reused, got %q and %q", first.ID, second.ID)
	}
	rows, err := store.ListMinutesByMeeting(context.Background(), convened.Meeting.ID)
	if err != nil {
		t.Fatalf("list minutes: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected a single draft row, got %d", len(rows))
	}
	if rows[0].Finalized {
		t.Fatal("expected draft to stay unfinalized")
	}
	if rows[0].Document[0].Texts[0] != "Second draft." {
		t.Fatalf("expected overwritten draft content, got %q", rows[0].Document[0].Texts[0])
	}
}

func TestStoreDraftRejectedAfterFinalize(t *testing.T) {
	t.Parallel()

	service, _ := newTestService()
	convened, err := service.Convene(context.Background(), conveneInput("12345678901", nil))
	if err != nil {
		t.Fatalf("convene: %v", err)
	}
	content := minutesContent("Held as planned.")
	if _, err := service.Finalize(context.Background(), FinalizeInput{
		MeetingID:       convened.Meeting.ID,
		CaseworkerIdent: "Z999999",
		Content:         &content,
	}); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	_, err = service.StoreDraft(context.Background(), DraftInput{
		MeetingID: convened.Meeting.ID,
		Content:   minutesContent("Late draft."),
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict storing draft after finalize, got %v", err)
	}
}

func TestFinalizePromotesStoredDraft(t *testing.T) {
	t.Parallel()

	service, store := newTestService()
	convened, err := service.Convene(context.Background(), conveneInput("12345678901", &PractitionerInput{
		Ident:           "behandler-1",
		ReceivesMinutes: true,
	}))
	if err != nil {
		t.Fatalf("convene: %v", err)
	}

	draft, err := service.StoreDraft(context.Background(), DraftInput{
		MeetingID: convened.Meeting.ID,
		Content:   minutesContent("Held as planned."),
	})
	if err != nil {
		t.Fatalf("store draft: %v", err)
	}

	result, err := service.Finalize(context.Background(), FinalizeInput{
		MeetingID:       convened.Meeting.ID,
		CaseworkerIdent: "Z999999",
		Reachability:    Reachability{EmployeeDigital: true, EmployerDigital: true},
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if result.Minutes == nil || !result.Minutes.Finalized {
		t.Fatal("expected finalized minutes in result")
	}
	if result.Minutes.ID != draft.ID {
		t.Fatalf("expected draft %q promoted, got %q", draft.ID, result.Minutes.ID)
	}
	if result.Meeting.CurrentMinutesID != draft.ID {
		t.Fatalf("expected current minutes pointer %q, got %q", draft.ID, result.Meeting.CurrentMinutesID)
	}

	rows, err := store.ListMinutesByMeeting(context.Background(), convened.Meeting.ID)
	if err != nil {
		t.Fatalf("list minutes: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one minutes row after finalize, got %d", len(rows))
	}

	if len(result.Notifications) != 3 {
		t.Fatalf("expected minutes notifications for all participants, got %d", len(result.Notifications))
	}
	practitionerNotification := result.Notifications[2]
	if practitionerNotification.Type != TypeMinutes {
		t.Fatalf("expected minutes notification, got %s", practitionerNotification.Type)
	}
	if practitionerNotification.ParentRef != convened.Notifications[2].ID {
		t.Fatalf("expected minutes chained to invitation, got parent %q", practitionerNotification.ParentRef)
	}
}

func TestFinalizeWithoutDraftIsValidationError(t *testing.T) {
	t.Parallel()

	service, _ := newTestService()
	convened, err := service.Convene(context.Background(), conveneInput("12345678901", nil))
	if err != nil {
		t.Fatalf("convene: %v", err)
	}

	_, err = service.Finalize(context.Background(), FinalizeInput{
		MeetingID:       convened.Meeting.ID,
		CaseworkerIdent: "Z999999",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error without draft, got %v", err)
	}
}

func TestFinalizeSkipsPractitionerNotFlaggedForMinutes(t *testing.T) {
	t.Parallel()

	service, _ := newTestService()
	convened, err := service.Convene(context.Background(), conveneInput("12345678901", &PractitionerInput{
		Ident:           "behandler-1",
		ReceivesMinutes: false,
	}))
	if err != nil {
		t.Fatalf("convene: %v", err)
	}

	content := minutesContent("Held as planned.")
	result, err := service.Finalize(context.Background(), FinalizeInput{
		MeetingID:       convened.Meeting.ID,
		CaseworkerIdent: "Z999999",
		Content:         &content,
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(result.Notifications) != 2 {
		t.Fatalf("expected employee and employer notifications only, got %d", len(result.Notifications))
	}
}

func TestAmendAppendsNewVersion(t *testing.T) {
	t.Parallel()

	service, store := newTestService()
	convened, err := service.Convene(context.Background(), conveneInput("12345678901", &PractitionerInput{
		Ident:           "behandler-1",
		ReceivesMinutes: true,
	}))
	if err != nil {
		t.Fatalf("convene: %v", err)
	}
	content := minutesContent("Held as planned.")
	finalized, err := service.Finalize(context.Background(), FinalizeInput{
		MeetingID:       convened.Meeting.ID,
		CaseworkerIdent: "Z999999",
		Content:         &content,
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	amended, err := service.AmendMinutes(context.Background(), AmendInput{
		MeetingID:       convened.Meeting.ID,
		CaseworkerIdent: "Z999999",
		Content:         minutesContent("Corrected attendance."),
		AmendmentReason: "Employer representative was recorded incorrectly.",
		Reachability:    Reachability{EmployeeDigital: true, EmployerDigital: true},
	})
	if err != nil {
		t.Fatalf("amend: %v", err)
	}

	if amended.Meeting.Status != StatusFinalized {
		t.Fatalf("expected status to stay finalized, got %s", amended.Meeting.Status)
	}
	rows, err := store.ListMinutesByMeeting(context.Background(), convened.Meeting.ID)
	if err != nil {
		t.Fatalf("list minutes: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected two minutes rows after amend, got %d", len(rows))
	}
	if rows[0].ID != finalized.Minutes.ID || rows[0].AmendmentReason != "" {
		t.Fatal("expected first version unchanged")
	}
	if rows[1].Version != 2 {
		t.Fatalf("expected amended version 2, got %d", rows[1].Version)
	}
	if rows[1].AmendmentReason == "" {
		t.Fatal("expected amendment reason on new version")
	}
	if amended.Meeting.CurrentMinutesID != rows[1].ID {
		t.Fatalf("expected current minutes pointer at amended version, got %q", amended.Meeting.CurrentMinutesID)
	}

	practitionerNotification := amended.Notifications[2]
	if practitionerNotification.ParentRef != finalized.Notifications[2].ID {
		t.Fatalf("expected amendment chained to minutes notification, got parent %q", practitionerNotification.ParentRef)
	}
}

func TestAmendRequiresReason(t *testing.T) {
	t.Parallel()

	service, _ := newTestService()
	convened, err := service.Convene(context.Background(), conveneInput("12345678901", nil))
	if err != nil {
		t.Fatalf("convene: %v", err)
	}
	content := minutesContent("Held as planned.")
	if _, err := service.Finalize(context.Background(), FinalizeInput{
		MeetingID:       convened.Meeting.ID,
		CaseworkerIdent: "Z999999",
		Content:         &content,
	}); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	_, err = service.AmendMinutes(context.Background(), AmendInput{
		MeetingID:       convened.Meeting.ID,
		CaseworkerIdent: "Z999999",
		Content:         minutesContent("Corrected."),
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error without reason, got %v", err)
	}
}

func TestAmendRejectedBeforeFinalize(t *testing.T) {
	t.Parallel()

	service, _ := newTestService()
	convened, err := service.Convene(context.Background(), conveneInput("12345678901", nil))
	if err != nil {
		t.Fatalf("convene: %v", err)
	}

	_, err = service.AmendMinutes(context.Background(), AmendInput{
		MeetingID:       convened.Meeting.ID,
		CaseworkerIdent: "Z999999",
		Content:         minutesContent("Corrected."),
		AmendmentReason: "Wrong attendance.",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict amending before finalize, got %v", err)
	}
}

func TestMinutesNotificationsFollowReachability(t *testing.T) {
	t.Parallel()

	service, _ := newTestService()
	input := conveneInput("12345678901", &PractitionerInput{
		Ident:           "behandler-1",
		ReceivesMinutes: true,
	})
	input.Reachability = Reachability{EmployeeDigital: false, EmployerDigital: true}
	convened, err := service.Convene(context.Background(), input)
	if err != nil {
		t.Fatalf("convene: %v", err)
	}
	if convened.Notifications[0].Channel != ChannelPhysicalLetter {
		t.Fatalf("expected letter invitation for unreachable employee, got %s", convened.Notifications[0].Channel)
	}

	content := minutesContent("Held as planned.")
	finalized, err := service.Finalize(context.Background(), FinalizeInput{
		MeetingID:       convened.Meeting.ID,
		CaseworkerIdent: "Z999999",
		Content:         &content,
		Reachability:    Reachability{EmployeeDigital: false, EmployerDigital: true},
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if finalized.Notifications[0].Channel != ChannelPhysicalLetter {
		t.Fatalf("expected letter minutes for unreachable employee, got %s", finalized.Notifications[0].Channel)
	}
	if finalized.Notifications[1].Channel != ChannelDigital {
		t.Fatalf("expected digital minutes for reachable employer, got %s", finalized.Notifications[1].Channel)
	}
	if finalized.Notifications[2].Channel != ChannelDigital {
		t.Fatalf("expected practitioner minutes over messaging channel, got %s", finalized.Notifications[2].Channel)
	}

	amended, err := service.AmendMinutes(context.Background(), AmendInput{
		MeetingID:       convened.Meeting.ID,
		CaseworkerIdent: "Z999999",
		Content:         minutesContent("Corrected."),
		AmendmentReason: "Attendance was recorded incorrectly.",
		Reachability:    Reachability{EmployeeDigital: false, EmployerDigital: false},
	})
	if err != nil {
		t.Fatalf("amend: %v", err)
	}
	if amended.Notifications[0].Channel != ChannelPhysicalLetter || amended.Notifications[1].Channel != ChannelPhysicalLetter {
		t.Fatalf("expected letter amendment notifications, got %s and %s",
			amended.Notifications[0].Channel, amended.Notifications[1].Channel)
	}
}

func TestCurrentMinutesReturnsAuthoritativeVersion(t *testing.T) {
	t.Parallel()

	service, _ := newTestService()
	convened, err := service.Convene(context.Background(), conveneInput("12345678901", nil))
	if err != nil {
		t.Fatalf("convene: %v", err)
	}

	if _, err := service.CurrentMinutes(context.Background(), convened.Meeting.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found before any minutes, got %v", err)
	}

	content := minutesContent("Held as planned.")
	if _, err := service.Finalize(context.Background(), FinalizeInput{
		MeetingID:       convened.Meeting.ID,
		CaseworkerIdent: "Z999999",
		Content:         &content,
	}); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	amended, err := service.AmendMinutes(context.Background(), AmendInput{
		MeetingID:       convened.Meeting.ID,
		CaseworkerIdent: "Z999999",
		Content:         minutesContent("Corrected."),
		AmendmentReason: "Typo in the agreed plan.",
	})
	if err != nil {
		t.Fatalf("amend: %v", err)
	}

	current, err := service.CurrentMinutes(context.Background(), convened.Meeting.ID)
	if err != nil {
		t.Fatalf("current minutes: %v", err)
	}
	if current.ID != amended.Minutes.ID {
		t.Fatalf("expected amended version to be authoritative, got %q", current.ID)
	}
}
