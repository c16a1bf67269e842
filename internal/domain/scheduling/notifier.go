package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/medappt/medappt/internal/platform/notify"
)

type EventKind string

const (
	EventCreated       EventKind = "created"
	EventStatusChanged EventKind = "statusChanged"
	EventDeleted       EventKind = "deleted"
)

// Event describes one committed mutation. Appointment is a copy of the record
// after the change (before removal, for deletes).
type Event struct {
	Kind        EventKind
	Appointment Appointment
	OccurredAt  time.Time
}

// Notifier is invoked after a mutation has been applied. Its failure never
// undoes the mutation.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }

// LogNotifier writes each event to a zerolog logger.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, ev Event) error {
	n.logger.Info().
		Str("event", string(ev.Kind)).
		Str("appointment_id", ev.Appointment.ID).
		Str("doctor", ev.Appointment.DoctorName).
		Str("date", ev.Appointment.Date).
		Str("time", ev.Appointment.Time).
		Str("status", string(ev.Appointment.Status)).
		Msg("appointment changed")
	return nil
}

// Notifiers fans an event out to every member. All members are called even
// if some fail; the failures are joined.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishingNotifier adapts a notify.Publisher (webhook, Redis) to Notifier by
// wrapping each event in a notify.Envelope.
type PublishingNotifier struct {
	pub notify.Publisher
}

func NewPublishingNotifier(pub notify.Publisher) *PublishingNotifier {
	return &PublishingNotifier{pub: pub}
}

func (n *PublishingNotifier) Notify(ctx context.Context, ev Event) error {
	env, err := EnvelopeOf(ev)
	if err != nil {
		return err
	}
	return n.pub.Publish(ctx, env)
}

// EnvelopeOf converts an event to its published form.
func EnvelopeOf(ev Event) (notify.Envelope, error) {
	data, err := json.Marshal(ev.Appointment)
	if err != nil {
		return notify.Envelope{}, fmt.Errorf("marshal appointment %s: %w", ev.Appointment.ID, err)
	}
	return notify.Envelope{
		Event:        string(ev.Kind),
		ResourceType: "Appointment",
		ResourceID:   ev.Appointment.ID,
		OccurredAt:   ev.OccurredAt.UTC(),
		Data:         data,
	}, nil
}
