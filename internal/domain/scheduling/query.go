package scheduling

import (
	"sort"
	"strings"
)

// ListFilter narrows List results. Empty fields match everything; set fields
// are combined with AND.
type ListFilter struct {
	Date       string
	Status     string
	DoctorName string
}

// Matches applies the filter to a single appointment. Status and doctor are
// compared case-insensitively, date exactly.
func (f ListFilter) Matches(a *Appointment) bool {
	if f.Date != "" && a.Date != f.Date {
		return false
	}
	if f.Status != "" && !strings.EqualFold(string(a.Status), f.Status) {
		return false
	}
	if f.DoctorName != "" && !strings.EqualFold(a.DoctorName, f.DoctorName) {
		return false
	}
	return true
}

// sortByStart orders appointments by (date, time). seqOf supplies creation
// order for ties.
func sortByStart(appts []*Appointment, seqOf func(*Appointment) uint64) {
	sort.SliceStable(appts, func(i, j int) bool {
		a, b := appts[i], appts[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return seqOf(a) < seqOf(b)
	})
}
