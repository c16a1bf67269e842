package scheduling

import (
	"context"
	"fmt"
	"sync"
)

type memRecord struct {
	appt  Appointment
	start int
	seq   uint64
}

// memoryRepo keeps appointments in process memory behind a single RWMutex.
// Records are indexed by id and by (doctor, date) so the conflict scan only
// touches one doctor's day.
type memoryRepo struct {
	mu    sync.RWMutex
	seq   uint64
	byID  map[string]*memRecord
	byDay map[dayKey][]*memRecord
}

// NewMemoryRepo returns an empty in-memory AppointmentRepository.
func NewMemoryRepo() AppointmentRepository {
	return &memoryRepo{
		byID:  make(map[string]*memRecord),
		byDay: make(map[dayKey][]*memRecord),
	}
}

func (r *memoryRepo) Create(_ context.Context, a *Appointment) error {
	slot, err := a.Slot()
	if err != nil {
		return err
	}
	key := keyOf(slot)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[a.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, a.ID)
	}
	if HasConflict(occupantsOf(r.byDay[key]), slot.Range, "") {
		return fmt.Errorf("%w: %s already has an appointment at this time", ErrConflict, a.DoctorName)
	}

	r.seq++
	rec := &memRecord{appt: *a, start: slot.Range.Start, seq: r.seq}
	r.byID[a.ID] = rec
	r.byDay[key] = append(r.byDay[key], rec)
	return nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, id string, status Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec.appt.Status = status
	out := rec.appt
	return &out, nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(r.byID, id)

	key := dayKey{doctor: rec.appt.DoctorName, date: rec.appt.Date}
	day := r.byDay[key]
	for i, other := range day {
		if other == rec {
			day = append(day[:i:i], day[i+1:]...)
			break
		}
	}
	if len(day) == 0 {
		delete(r.byDay, key)
	} else {
		r.byDay[key] = day
	}

	out := rec.appt
	return &out, nil
}

func (r *memoryRepo) List(_ context.Context, f ListFilter) ([]*Appointment, error) {
	r.mu.RLock()
	seqs := make(map[*Appointment]uint64, len(r.byID))
	items := make([]*Appointment, 0, len(r.byID))
	for _, rec := range r.byID {
		if !f.Matches(&rec.appt) {
			continue
		}
		a := rec.appt
		seqs[&a] = rec.seq
		items = append(items, &a)
	}
	r.mu.RUnlock()

	sortByStart(items, func(a *Appointment) uint64 { return seqs[a] })
	return items, nil
}

func (r *memoryRepo) HasConflict(_ context.Context, s Slot, excludeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return HasConflict(occupantsOf(r.byDay[keyOf(s)]), s.Range, excludeID), nil
}

func (r *memoryRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}

func occupantsOf(day []*memRecord) []Occupant {
	out := make([]Occupant, len(day))
	for i, rec := range day {
		out[i] = Occupant{
			ID:     rec.appt.ID,
			Status: rec.appt.Status,
			Range:  NewTimeRange(rec.start, rec.appt.Duration),
		}
	}
	return out
}
