package scheduling

import "context"

// AppointmentRepository owns the authoritative appointment collection.
// Create, UpdateStatus and Delete are atomic with respect to each other, and
// Create evaluates the conflict check against a state that cannot change
// before the insert commits.
type AppointmentRepository interface {
	// Create inserts a with its id already assigned, or returns ErrConflict
	// when a blocking appointment overlaps it.
	Create(ctx context.Context, a *Appointment) error
	UpdateStatus(ctx context.Context, id string, status Status) (*Appointment, error)
	// Delete removes the appointment and returns it as it was stored.
	Delete(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context, f ListFilter) ([]*Appointment, error)
	HasConflict(ctx context.Context, s Slot, excludeID string) (bool, error)
	Count(ctx context.Context) (int, error)
}
