package scheduling

// Occupant is an existing appointment as seen by the conflict check: one
// entry of a single doctor's day.
type Occupant struct {
	ID     string
	Status Status
	Range  TimeRange
}

// HasConflict reports whether candidate overlaps any occupant that still
// blocks its slot. The occupant with id excludeID is ignored so an existing
// appointment can be re-validated in place. The scan stops at the first hit.
func HasConflict(occupants []Occupant, candidate TimeRange, excludeID string) bool {
	for _, o := range occupants {
		if !o.Status.Blocks() {
			continue
		}
		if excludeID != "" && o.ID == excludeID {
			continue
		}
		if candidate.Overlaps(o.Range) {
			return true
		}
	}
	return false
}

// dayKey scopes conflict detection to one doctor on one date.
type dayKey struct {
	doctor string
	date   string
}

func keyOf(s Slot) dayKey { return dayKey{doctor: s.DoctorName, date: s.Date} }
