package scheduling

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeRange is a half-open [Start, End) interval in minutes since midnight.
type TimeRange struct {
	Start int
	End   int
}

// NewTimeRange builds the range occupied by an appointment starting at start
// and lasting duration minutes.
func NewTimeRange(start, duration int) TimeRange {
	return TimeRange{Start: start, End: start + duration}
}

// Overlaps reports whether r and o share at least one minute.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return Overlaps(r.Start, r.End, o.Start, o.End)
}

// Overlaps compares two half-open intervals. A range ending exactly when the
// other starts does not overlap it.
func Overlaps(startA, endA, startB, endB int) bool {
	return startA < endB && endA > startB
}

// ParseClock converts an "HH:MM" time of day into minutes since midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidFormat, s)
	}
	hours, err := clockPart(hh)
	if err != nil || hours > 23 {
		return 0, fmt.Errorf("%w: time %q has invalid hours", ErrInvalidFormat, s)
	}
	if len(mm) != 2 {
		return 0, fmt.Errorf("%w: time %q has invalid minutes", ErrInvalidFormat, s)
	}
	minutes, err := clockPart(mm)
	if err != nil || minutes > 59 {
		return 0, fmt.Errorf("%w: time %q has invalid minutes", ErrInvalidFormat, s)
	}
	return hours*60 + minutes, nil
}

// FormatClock renders minutes since midnight as zero-padded "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func clockPart(s string) (int, error) {
	if s == "" || len(s) > 2 {
		return 0, fmt.Errorf("bad clock component %q", s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("bad clock component %q", s)
		}
	}
	return strconv.Atoi(s)
}
