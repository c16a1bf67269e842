package scheduling

import (
	"context"
	"testing"
	"time"
)

func TestMockAppointments(t *testing.T) {
	today := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	list := MockAppointments(today)
	if len(list) != 12 {
		t.Fatalf("expected 12 mock appointments, got %d", len(list))
	}

	days := map[string]int{}
	for _, a := range list {
		days[a.Date]++
		if _, err := a.Slot(); err != nil {
			t.Errorf("%s: invalid slot: %v", a.ID, err)
		}
	}
	for _, d := range []string{"2026-03-01", "2026-03-02", "2026-03-03"} {
		if days[d] == 0 {
			t.Errorf("expected appointments on %s", d)
		}
	}
}

func TestSeedMockData_Idempotent(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	today := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	n, err := SeedMockData(ctx, r, today)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != 12 {
		t.Errorf("expected 12 inserted, got %d", n)
	}
	n, err = SeedMockData(ctx, r, today)
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected reseed to insert nothing, got %d", n)
	}
	if count, _ := r.Count(ctx); count != 12 {
		t.Errorf("expected 12 stored, got %d", count)
	}
	assertNoOverlaps(t, r)
}
