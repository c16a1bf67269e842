package scheduling

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
)

// repoFactory returns an empty repository.
type repoFactory func(t *testing.T) AppointmentRepository

func appt(id, doctor, date, clock string, duration int) *Appointment {
	return &Appointment{
		ID:          id,
		PatientName: "Patient " + id,
		Date:        date,
		Time:        clock,
		Duration:    duration,
		DoctorName:  doctor,
		Status:      StatusScheduled,
		Mode:        ModeInPerson,
	}
}

func mustCreate(t *testing.T, r AppointmentRepository, a *Appointment) {
	t.Helper()
	if err := r.Create(context.Background(), a); err != nil {
		t.Fatalf("create %s: %v", a.ID, err)
	}
}

// testRepositoryContract runs the behaviour every AppointmentRepository must
// share.
func testRepositoryContract(t *testing.T, newRepo repoFactory) {
	t.Run("ConflictScenario", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		const doc, day = "Dr. A", "2026-03-02"

		mustCreate(t, r, appt("a1", doc, day, "09:00", 30))
		if err := r.Create(ctx, appt("a2", doc, day, "09:15", 30)); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict for 09:15, got %v", err)
		}
		mustCreate(t, r, appt("a3", doc, day, "09:30", 30))

		if _, err := r.UpdateStatus(ctx, "a1", StatusCancelled); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		mustCreate(t, r, appt("a4", doc, day, "09:00", 15))
	})

	t.Run("OtherDoctorOrDateDoesNotConflict", func(t *testing.T) {
		r := newRepo(t)
		mustCreate(t, r, appt("b1", "Dr. A", "2026-03-02", "09:00", 60))
		mustCreate(t, r, appt("b2", "Dr. B", "2026-03-02", "09:00", 60))
		mustCreate(t, r, appt("b3", "Dr. A", "2026-03-03", "09:00", 60))
	})

	t.Run("CancelledCreateDoesNotBlock", func(t *testing.T) {
		r := newRepo(t)
		c := appt("c1", "Dr. A", "2026-03-02", "10:00", 60)
		c.Status = StatusCancelled
		mustCreate(t, r, c)
		mustCreate(t, r, appt("c2", "Dr. A", "2026-03-02", "10:00", 60))
	})

	t.Run("OutOfRangeDurationRejected", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		for i, d := range []int{0, MaxDuration + 1, 3_000_000_000, math.MaxInt - 100} {
			err := r.Create(ctx, appt(fmt.Sprintf("r%d", i), "Dr. A", "2026-03-02", "09:00", d))
			if !errors.Is(err, ErrInvalidFormat) {
				t.Fatalf("duration %d: expected ErrInvalidFormat, got %v", d, err)
			}
		}
		if n, _ := r.Count(ctx); n != 0 {
			t.Fatalf("expected nothing stored, got %d", n)
		}
		mustCreate(t, r, appt("r-ok", "Dr. A", "2026-03-02", "10:00", 30))
	})

	t.Run("DuplicateID", func(t *testing.T) {
		r := newRepo(t)
		mustCreate(t, r, appt("d1", "Dr. A", "2026-03-02", "08:00", 15))
		err := r.Create(context.Background(), appt("d1", "Dr. B", "2026-03-04", "08:00", 15))
		if !errors.Is(err, ErrDuplicateID) {
			t.Fatalf("expected ErrDuplicateID, got %v", err)
		}
	})

	t.Run("UpdateStatusReturnsCopy", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		mustCreate(t, r, appt("e1", "Dr. A", "2026-03-02", "08:00", 15))

		got, err := r.UpdateStatus(ctx, "e1", StatusConfirmed)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if got.Status != StatusConfirmed || got.Time != "08:00" || got.Duration != 15 {
			t.Errorf("unexpected record %+v", got)
		}
		got.Status = StatusCancelled

		list, _ := r.List(ctx, ListFilter{})
		if len(list) != 1 || list[0].Status != StatusConfirmed {
			t.Errorf("expected stored record untouched by caller, got %+v", list)
		}
	})

	t.Run("UnknownIDIsNotFound", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		if _, err := r.UpdateStatus(ctx, "missing", StatusConfirmed); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound from update, got %v", err)
		}
		if _, err := r.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound from delete, got %v", err)
		}
	})

	t.Run("DeleteFreesSlotAndForgetsID", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		mustCreate(t, r, appt("f1", "Dr. A", "2026-03-02", "11:00", 30))

		deleted, err := r.Delete(ctx, "f1")
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if deleted.ID != "f1" {
			t.Errorf("expected deleted record f1, got %s", deleted.ID)
		}
		if _, err := r.UpdateStatus(ctx, "f1", StatusConfirmed); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if _, err := r.Delete(ctx, "f1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected second delete to be ErrNotFound, got %v", err)
		}
		mustCreate(t, r, appt("f2", "Dr. A", "2026-03-02", "11:00", 30))
		if n, _ := r.Count(ctx); n != 1 {
			t.Errorf("expected count 1, got %d", n)
		}
	})

	t.Run("ListOrderAndFilters", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		mustCreate(t, r, appt("g1", "Dr. B", "2026-03-03", "08:00", 30))
		mustCreate(t, r, appt("g2", "Dr. A", "2026-03-02", "14:00", 30))
		mustCreate(t, r, appt("g3", "Dr. B", "2026-03-02", "09:00", 30))
		mustCreate(t, r, appt("g4", "Dr. A", "2026-03-02", "09:00", 30))
		if _, err := r.UpdateStatus(ctx, "g2", StatusConfirmed); err != nil {
			t.Fatalf("update: %v", err)
		}

		list, err := r.List(ctx, ListFilter{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		want := []string{"g3", "g4", "g2", "g1"}
		if got := ids(list); fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("expected order %v, got %v", want, got)
		}
		again, _ := r.List(ctx, ListFilter{})
		if fmt.Sprint(ids(again)) != fmt.Sprint(want) {
			t.Errorf("expected list to be repeatable, got %v", ids(again))
		}

		byDoctor, _ := r.List(ctx, ListFilter{DoctorName: "dr. a"})
		if fmt.Sprint(ids(byDoctor)) != fmt.Sprint([]string{"g4", "g2"}) {
			t.Errorf("unexpected doctor filter result %v", ids(byDoctor))
		}
		combined, _ := r.List(ctx, ListFilter{Date: "2026-03-02", Status: "CONFIRMED"})
		if fmt.Sprint(ids(combined)) != fmt.Sprint([]string{"g2"}) {
			t.Errorf("unexpected combined filter result %v", ids(combined))
		}
		none, _ := r.List(ctx, ListFilter{Date: "2030-01-01"})
		if none == nil || len(none) != 0 {
			t.Errorf("expected empty non-nil list, got %v", none)
		}
	})

	t.Run("HasConflictExcludesID", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		mustCreate(t, r, appt("h1", "Dr. A", "2026-03-02", "09:00", 30))
		slot := Slot{DoctorName: "Dr. A", Date: "2026-03-02", Range: TimeRange{540, 570}}

		if busy, _ := r.HasConflict(ctx, slot, ""); !busy {
			t.Error("expected slot to be busy")
		}
		if busy, _ := r.HasConflict(ctx, slot, "h1"); busy {
			t.Error("expected slot to be free when excluding its occupant")
		}
	})

	t.Run("ConcurrentOverlappingCreates", func(t *testing.T) {
		r := newRepo(t)
		const workers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				clock := fmt.Sprintf("10:%02d", i)
				err := r.Create(context.Background(), appt(fmt.Sprintf("k%d", i), "Dr. A", "2026-03-02", clock, 30))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, ErrConflict):
					conflicts++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()

		if successes != 1 || conflicts != workers-1 {
			t.Fatalf("expected 1 success and %d conflicts, got %d and %d", workers-1, successes, conflicts)
		}
		assertNoOverlaps(t, r)
	})
}

func ids(list []*Appointment) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}

// assertNoOverlaps checks that no two blocking appointments of one doctor on
// one date share a minute.
func assertNoOverlaps(t *testing.T, r AppointmentRepository) {
	t.Helper()
	list, err := r.List(context.Background(), ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i, a := range list {
		if !a.Status.Blocks() {
			continue
		}
		sa, _ := a.Slot()
		for _, b := range list[i+1:] {
			if !b.Status.Blocks() || a.DoctorName != b.DoctorName || a.Date != b.Date {
				continue
			}
			sb, _ := b.Slot()
			if sa.Range.Overlaps(sb.Range) {
				t.Errorf("%s and %s overlap", a.ID, b.ID)
			}
		}
	}
}
