package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/navikt/isdialogmote/internal/dialogmote/domain"
)

// DigitalSink delivers one digital notification to the employee or
// employer surface.
type DigitalSink interface {
	SendDigital(ctx context.Context, notification domain.Notification) error
}

// LetterSink orders postal delivery of one physical-letter
// notification.
type LetterSink interface {
	OrderLetter(ctx context.Context, notification domain.Notification) error
}

// MessagingProducer sends one practitioner notification over the
// structured messaging protocol, carrying its thread references.
type MessagingProducer interface {
	SendPractitionerMessage(ctx context.Context, notification domain.Notification) error
}

// DispatcherConfig carries the dispatcher's collaborators and policy.
type DispatcherConfig struct {
	Digital   DigitalSink
	Letters   LetterSink
	Messaging MessagingProducer
	Logger    *slog.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
	// SuppressPastMeetingDispatch skips outbound delivery, but never
	// record creation, for meetings whose scheduled time has passed.
	SuppressPastMeetingDispatch bool
}

// Dispatcher routes committed notifications to their delivery sinks.
// Dispatch runs after the lifecycle commit: failures are reported as
// delivery errors for retry and never unwind the committed state.
type Dispatcher struct {
	digital      DigitalSink
	letters      LetterSink
	messaging    MessagingProducer
	logger       *slog.Logger
	clock        func() time.Time
	suppressPast bool
	tracer       trace.Tracer
}

// NewDispatcher builds a dispatcher from its configuration.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Dispatcher{
		digital:      cfg.Digital,
		letters:      cfg.Letters,
		messaging:    cfg.Messaging,
		logger:       logger,
		clock:        clock,
		suppressPast: cfg.SuppressPastMeetingDispatch,
		tracer:       otel.Tracer("dialogmote/dispatcher"),
	}
}

// Dispatch delivers the notifications of one committed transition.
// Each notification is attempted independently; the returned error
// joins the per-notification delivery failures.
func (d *Dispatcher) Dispatch(ctx context.Context, meeting domain.Meeting, notifications []domain.Notification) error {
	if d == nil || len(notifications) == 0 {
		return nil
	}

	ctx, span := d.tracer.Start(ctx, "dispatch",
		trace.WithAttributes(
			attribute.String("meeting.id", meeting.ID),
			attribute.Int("notification.count", len(notifications)),
		))
	defer span.End()

	if d.suppressPast && meeting.ScheduledAt.Before(d.clock()) {
		d.logger.InfoContext(ctx, "suppressing dispatch for past meeting",
			slog.String("meeting_id", meeting.ID),
			slog.Time("scheduled_at", meeting.ScheduledAt),
			slog.Int("notifications", len(notifications)),
		)
		span.SetAttributes(attribute.Bool("dispatch.suppressed", true))
		return nil
	}

	var failures []error
	for _, notification := range notifications {
		if err := d.dispatchOne(ctx, notification); err != nil {
			d.logger.ErrorContext(ctx, "notification dispatch failed",
				slog.String("meeting_id", meeting.ID),
				slog.String("notification_id", notification.ID),
				slog.String("kind", string(notification.Kind)),
				slog.String("channel", string(notification.Channel)),
				slog.Any("error", err),
			)
			failures = append(failures, err)
			continue
		}
		d.logger.InfoContext(ctx, "notification dispatched",
			slog.String("meeting_id", meeting.ID),
			slog.String("notification_id", notification.ID),
			slog.String("kind", string(notification.Kind)),
			slog.String("channel", string(notification.Channel)),
		)
	}
	return errors.Join(failures...)
}

func (d *Dispatcher) dispatchOne(ctx context.Context, notification domain.Notification) error {
	if notification.Kind == domain.KindPractitioner {
		if d.messaging == nil {
			return domain.DeliveryError("send practitioner message", errors.New("messaging producer is not configured"))
		}
		if err := d.messaging.SendPractitionerMessage(ctx, notification); err != nil {
			return domain.DeliveryError("send practitioner message", err)
		}
		return nil
	}

	switch notification.Channel {
	case domain.ChannelPhysicalLetter:
		if d.letters == nil {
			return domain.DeliveryError("order letter", errors.New("letter sink is not configured"))
		}
		if err := d.letters.OrderLetter(ctx, notification); err != nil {
			return domain.DeliveryError("order letter", err)
		}
		return nil
	default:
		if d.digital == nil {
			return domain.DeliveryError("send digital notification", errors.New("digital sink is not configured"))
		}
		if err := d.digital.SendDigital(ctx, notification); err != nil {
			return domain.DeliveryError("send digital notification", err)
		}
		return nil
	}
}
