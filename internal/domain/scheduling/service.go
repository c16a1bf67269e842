package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Recorder receives scheduling metrics. Implemented by platform/metrics.
type Recorder interface {
	RecordEvent(event, status string)
	RecordRejection(reason string)
}

type nopRecorder struct{}

func (nopRecorder) RecordEvent(string, string) {}
func (nopRecorder) RecordRejection(string) {}

// NewAppointmentID returns "apt-" followed by the 32 hex digits of a random UUID.
func NewAppointmentID() string {
	return "apt-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

type Service struct {
	appointments AppointmentRepository
	notifier     Notifier
	recorder     Recorder
	newID        func() string
	now          func() time.Time
	logger       zerolog.Logger
}

func NewService(appt AppointmentRepository) *Service {
	return &Service{
		appointments: appt,
		notifier:     NopNotifier{},
		recorder:     nopRecorder{},
		newID:        NewAppointmentID,
		now:          time.Now,
		logger:       zerolog.Nop(),
	}
}

func (s *Service) SetNotifier(n Notifier) { s.notifier = n }
func (s *Service) SetRecorder(r Recorder) { s.recorder = r }
func (s *Service) SetLogger(l zerolog.Logger) { s.logger = l }
func (s *Service) SetIDGenerator(f func() string) { s.newID = f }
func (s *Service) SetClock(f func() time.Time) { s.now = f }

// Now returns the service clock's current time.
func (s *Service) Now() time.Time { return s.now() }

// List returns the appointments matching f ordered by (date, time), ties in
// creation order.
func (s *Service) List(ctx context.Context, f ListFilter) ([]*Appointment, error) {
	return s.appointments.List(ctx, f)
}

// Create validates in, assigns a fresh id and stores the appointment if the
// doctor is free for its interval.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Appointment, error) {
	a, err := in.Validate()
	if err != nil {
		s.reject(err)
		return nil, err
	}
	a.ID = s.newID()

	if err := s.appointments.Create(ctx, a); err != nil {
		if errors.Is(err, ErrConflict) {
			s.logger.Info().
				Str("doctor", a.DoctorName).
				Str("date", a.Date).
				Str("time", a.Time).
				Int("duration", a.Duration).
				Msg("appointment rejected: slot taken")
		}
		s.reject(err)
		return nil, err
	}

	s.publish(ctx, EventCreated, a)
	return a, nil
}

// UpdateStatus moves an appointment to status. The occupied interval is not
// re-checked, so un-cancelling may restore an overlap.
func (s *Service) UpdateStatus(ctx context.Context, id string, status string) (*Appointment, error) {
	st, err := ParseStatus(status)
	if err != nil {
		s.reject(err)
		return nil, err
	}
	a, err := s.appointments.UpdateStatus(ctx, id, st)
	if err != nil {
		s.reject(err)
		return nil, err
	}
	s.publish(ctx, EventStatusChanged, a)
	return a, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	a, err := s.appointments.Delete(ctx, id)
	if err != nil {
		s.reject(err)
		return err
	}
	s.publish(ctx, EventDeleted, a)
	return nil
}

// CheckAvailability reports whether q's interval is free for the doctor.
func (s *Service) CheckAvailability(ctx context.Context, q AvailabilityQuery) (bool, error) {
	slot, err := q.slot()
	if err != nil {
		return false, err
	}
	conflict, err := s.appointments.HasConflict(ctx, slot, strings.TrimSpace(q.ExcludeID))
	if err != nil {
		return false, err
	}
	return !conflict, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.appointments.Count(ctx)
}

// publish runs after the store has released its lock.
func (s *Service) publish(ctx context.Context, kind EventKind, a *Appointment) {
	s.recorder.RecordEvent(string(kind), string(a.Status))
	ev := Event{Kind: kind, Appointment: *a, OccurredAt: s.now()}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.logger.Warn().Err(err).
			Str("event", string(kind)).
			Str("appointment_id", a.ID).
			Msg("change notification failed")
	}
}

func (s *Service) reject(err error) {
	if reason := rejectionReason(err); reason != "" {
		s.recorder.RecordRejection(reason)
	}
}
