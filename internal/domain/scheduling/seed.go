package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type seedRow struct {
	id, patient string
	dayOffset   int
	clock       string
	duration    int
	doctor      string
	status      Status
	mode        Mode
}

var seedRows = []seedRow{
	{"apt-001", "John Smith", 0, "09:00", 30, "Dr. Sarah Johnson", StatusConfirmed, ModeInPerson},
	{"apt-002", "Emily Davis", 0, "09:30", 45, "Dr. Michael Chen", StatusScheduled, ModeVideo},
	{"apt-003", "Robert Wilson", 0, "10:30", 30, "Dr. Sarah Johnson", StatusConfirmed, ModeInPerson},
	{"apt-004", "Maria Garcia", 0, "11:00", 60, "Dr. James Williams", StatusScheduled, ModePhone},
	{"apt-005", "David Brown", 1, "08:00", 30, "Dr. Sarah Johnson", StatusScheduled, ModeInPerson},
	{"apt-006", "Jennifer Lee", 1, "10:00", 45, "Dr. Michael Chen", StatusConfirmed, ModeVideo},
	{"apt-007", "William Taylor", 1, "14:00", 30, "Dr. James Williams", StatusScheduled, ModeInPerson},
	{"apt-008", "Lisa Anderson", -1, "09:00", 30, "Dr. Sarah Johnson", StatusConfirmed, ModeInPerson},
	{"apt-009", "James Martinez", -1, "11:00", 45, "Dr. Michael Chen", StatusCancelled, ModeVideo},
	{"apt-010", "Patricia Thompson", -1, "15:00", 30, "Dr. James Williams", StatusConfirmed, ModePhone},
	{"apt-011", "Michael White", 0, "14:00", 30, "Dr. Michael Chen", StatusScheduled, ModeInPerson},
	{"apt-012", "Susan Harris", 0, "15:30", 45, "Dr. Sarah Johnson", StatusConfirmed, ModeVideo},
}

// MockAppointments returns the demo data set spread over yesterday, today and
// tomorrow relative to today.
func MockAppointments(today time.Time) []*Appointment {
	out := make([]*Appointment, 0, len(seedRows))
	for _, r := range seedRows {
		out = append(out, &Appointment{
			ID:          r.id,
			PatientName: r.patient,
			Date:        today.AddDate(0, 0, r.dayOffset).Format(DateLayout),
			Time:        r.clock,
			Duration:    r.duration,
			DoctorName:  r.doctor,
			Status:      r.status,
			Mode:        r.mode,
		})
	}
	return out
}

// SeedMockData stores MockAppointments through repo. Records whose id is
// already present are skipped, so seeding twice is harmless. No change
// notifications are sent.
func SeedMockData(ctx context.Context, repo AppointmentRepository, today time.Time) (int, error) {
	inserted := 0
	for _, a := range MockAppointments(today) {
		err := repo.Create(ctx, a)
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, ErrDuplicateID):
		default:
			return inserted, fmt.Errorf("seed %s: %w", a.ID, err)
		}
	}
	return inserted, nil
}
