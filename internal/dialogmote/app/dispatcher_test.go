package app

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/navikt/isdialogmote/internal/dialogmote/domain"
)

type sinkCall struct {
	notificationID string
	channel        domain.Channel
}

type stubSinks struct {
	digital    []sinkCall
	letters    []sinkCall
	messages   []sinkCall
	digitalErr error
}

func (s *stubSinks) SendDigital(_ context.Context, notification domain.Notification) error {
	if s.digitalErr != nil {
		return s.digitalErr
	}
	s.digital = append(s.digital, sinkCall{notification.ID, notification.Channel})
	return nil
}

func (s *stubSinks) OrderLetter(_ context.Context, notification domain.Notification) error {
	s.letters = append(s.letters, sinkCall{notification.ID, notification.Channel})
	return nil
}

func (s *stubSinks) SendPractitionerMessage(_ context.Context, notification domain.Notification) error {
	s.messages = append(s.messages, sinkCall{notification.ID, notification.Channel})
	return nil
}

func testDispatcher(sinks *stubSinks, suppressPast bool) *Dispatcher {
	return NewDispatcher(DispatcherConfig{
		Digital:   sinks,
		Letters:   sinks,
		Messaging: sinks,
		Logger:    slog.New(slog.DiscardHandler),
		Clock: func() time.Time {
			return time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
		},
		SuppressPastMeetingDispatch: suppressPast,
	})
}

func futureMeeting() domain.Meeting {
	return domain.Meeting{
		ID:          "meeting-1",
		ScheduledAt: time.Date(2026, 4, 2, 13, 0, 0, 0, time.UTC),
	}
}

func transitionNotifications() []domain.Notification {
	return []domain.Notification{
		{ID: "notif-1", MeetingID: "meeting-1", Kind: domain.KindEmployee, Channel: domain.ChannelDigital},
		{ID: "notif-2", MeetingID: "meeting-1", Kind: domain.KindEmployer, Channel: domain.ChannelPhysicalLetter},
		{ID: "notif-3", MeetingID: "meeting-1", Kind: domain.KindPractitioner, Channel: domain.ChannelDigital, ConversationRef: "notif-3"},
	}
}

func TestDispatchRoutesByKindAndChannel(t *testing.T) {
	t.Parallel()

	sinks := &stubSinks{}
	dispatcher := testDispatcher(sinks, true)

	if err := dispatcher.Dispatch(context.Background(), futureMeeting(), transitionNotifications()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if len(sinks.digital) != 1 || sinks.digital[0].notificationID != "notif-1" {
		t.Fatalf("expected employee digital delivery, got %+v", sinks.digital)
	}
	if len(sinks.letters) != 1 || sinks.letters[0].notificationID != "notif-2" {
		t.Fatalf("expected employer letter order, got %+v", sinks.letters)
	}
	if len(sinks.messages) != 1 || sinks.messages[0].notificationID != "notif-3" {
		t.Fatalf("expected practitioner message, got %+v", sinks.messages)
	}
}

func TestDispatchSuppressedForPastMeeting(t *testing.T) {
	t.Parallel()

	sinks := &stubSinks{}
	dispatcher := testDispatcher(sinks, true)

	past := futureMeeting()
	past.ScheduledAt = time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)

	if err := dispatcher.Dispatch(context.Background(), past, transitionNotifications()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(sinks.digital)+len(sinks.letters)+len(sinks.messages) != 0 {
		t.Fatal("expected no deliveries for past meeting")
	}
}

func TestDispatchPastMeetingWhenSuppressionDisabled(t *testing.T) {
	t.Parallel()

	sinks := &stubSinks{}
	dispatcher := testDispatcher(sinks, false)

	past := futureMeeting()
	past.ScheduledAt = time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)

	if err := dispatcher.Dispatch(context.Background(), past, transitionNotifications()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(sinks.digital) != 1 || len(sinks.letters) != 1 || len(sinks.messages) != 1 {
		t.Fatal("expected all deliveries when suppression is disabled")
	}
}

func TestDispatchReportsDeliveryFailuresAndContinues(t *testing.T) {
	t.Parallel()

	sinks := &stubSinks{digitalErr: errors.New("surface unavailable")}
	dispatcher := testDispatcher(sinks, true)

	err := dispatcher.Dispatch(context.Background(), futureMeeting(), transitionNotifications())
	if !errors.Is(err, domain.ErrDelivery) {
		t.Fatalf("expected delivery error, got %v", err)
	}
	// The failing digital delivery does not stop the remaining sinks.
	if len(sinks.letters) != 1 || len(sinks.messages) != 1 {
		t.Fatalf("expected remaining deliveries to proceed, got letters %d messages %d",
			len(sinks.letters), len(sinks.messages))
	}
}

func TestDispatchMissingSinkIsDeliveryError(t *testing.T) {
	t.Parallel()

	dispatcher := NewDispatcher(DispatcherConfig{
		Logger: slog.New(slog.DiscardHandler),
	})

	err := dispatcher.Dispatch(context.Background(), futureMeeting(), transitionNotifications()[:1])
	if !errors.Is(err, domain.ErrDelivery) {
		t.Fatalf("expected delivery error for missing sink, got %v", err)
	}
}
