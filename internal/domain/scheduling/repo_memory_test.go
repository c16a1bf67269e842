package scheduling

import (
	"context"
	"testing"
)

func TestMemoryRepo(t *testing.T) {
	testRepositoryContract(t, func(t *testing.T) AppointmentRepository {
		return NewMemoryRepo()
	})
}

func TestMemoryRepo_DeleteDropsEmptyDay(t *testing.T) {
	r := NewMemoryRepo().(*memoryRepo)
	mustCreate(t, r, appt("m1", "Dr. A", "2026-03-02", "09:00", 30))
	if _, err := r.Delete(context.Background(), "m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(r.byDay) != 0 {
		t.Errorf("expected day index to be empty, got %d days", len(r.byDay))
	}
}

func TestMemoryRepo_IndexesByDoctorDay(t *testing.T) {
	r := NewMemoryRepo().(*memoryRepo)
	mustCreate(t, r, appt("m1", "Dr. A", "2026-03-02", "09:00", 30))
	mustCreate(t, r, appt("m2", "Dr. A", "2026-03-02", "10:00", 30))
	mustCreate(t, r, appt("m3", "Dr. B", "2026-03-02", "09:00", 30))

	if got := len(r.byDay[dayKey{doctor: "Dr. A", date: "2026-03-02"}]); got != 2 {
		t.Errorf("expected 2 records for Dr. A, got %d", got)
	}
	if got := len(r.byDay); got != 2 {
		t.Errorf("expected 2 doctor days, got %d", got)
	}
}
