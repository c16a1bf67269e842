package scheduling

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage layout of appointment dates.
const DateLayout = "2006-01-02"

// MaxDuration caps an appointment at one day, in minutes.
const MaxDuration = 24 * 60

func checkDuration(d int) error {
	if d <= 0 || d > MaxDuration {
		return fmt.Errorf("%w: duration must be between 1 and %d minutes", ErrInvalidFormat, MaxDuration)
	}
	return nil
}

type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusConfirmed Status = "Confirmed"
	StatusCancelled Status = "Cancelled"
)

var validStatuses = map[Status]bool{
	StatusScheduled: true, StatusConfirmed: true, StatusCancelled: true,
}

// ParseStatus checks membership in the allowed status set. Matching is exact.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !validStatuses[st] {
		return "", fmt.Errorf("%w: %q, must be one of Scheduled, Confirmed, Cancelled", ErrInvalidStatus, s)
	}
	return st, nil
}

// Blocks reports whether an appointment in this status occupies its slot.
func (s Status) Blocks() bool { return s != StatusCancelled }

type Mode string

const (
	ModeInPerson Mode = "In-Person"
	ModeVideo    Mode = "Video"
	ModePhone    Mode = "Phone"
)

var validModes = map[Mode]bool{
	ModeInPerson: true, ModeVideo: true, ModePhone: true,
}

func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !validModes[m] {
		return "", fmt.Errorf("%w: mode %q, must be one of In-Person, Video, Phone", ErrInvalidFormat, s)
	}
	return m, nil
}

// Appointment is the stored record. JSON field names are part of the wire
// contract and must not change.
type Appointment struct {
	ID          string `db:"id" json:"id"`
	PatientName string `db:"patient_name" json:"patientName"`
	Date        string `db:"appt_date" json:"date"`
	Time        string `db:"-" json:"time"`
	Duration    int    `db:"duration" json:"duration"`
	DoctorName  string `db:"doctor_name" json:"doctorName"`
	Status      Status `db:"status" json:"status"`
	Mode        Mode   `db:"mode" json:"mode"`
}

// Slot returns the doctor/date/interval the appointment occupies. Stores call
// it before touching their state, so an out-of-range duration is rejected the
// same way by every backend.
func (a *Appointment) Slot() (Slot, error) {
	if err := checkDuration(a.Duration); err != nil {
		return Slot{}, err
	}
	start, err := ParseClock(a.Time)
	if err != nil {
		return Slot{}, err
	}
	return Slot{DoctorName: a.DoctorName, Date: a.Date, Range: NewTimeRange(start, a.Duration)}, nil
}

// Slot is an occupied (or candidate) interval scoped to one doctor and date.
type Slot struct {
	DoctorName string
	Date       string
	Range      TimeRange
}

// CreateInput is the creation command as received from callers. Duration is a
// pointer so that an absent value can be told apart from zero.
type CreateInput struct {
	PatientName string `json:"patientName"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Duration    *int   `json:"duration"`
	DoctorName  string `json:"doctorName"`
	Mode        string `json:"mode"`
	Status      string `json:"status,omitempty"`
}

// Validate checks the command and returns the normalized appointment it
// describes, without an id.
func (in CreateInput) Validate() (*Appointment, error) {
	patient := strings.TrimSpace(in.PatientName)
	doctor := strings.TrimSpace(in.DoctorName)
	date := strings.TrimSpace(in.Date)
	clock := strings.TrimSpace(in.Time)
	mode := strings.TrimSpace(in.Mode)

	var missing []string
	for _, f := range []struct{ name, val string }{
		{"patientName", patient}, {"date", date}, {"time", clock},
		{"doctorName", doctor}, {"mode", mode},
	} {
		if f.val == "" {
			missing = append(missing, f.name)
		}
	}
	if in.Duration == nil {
		missing = append(missing, "duration")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}

	if err := checkDuration(*in.Duration); err != nil {
		return nil, err
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date %q, use YYYY-MM-DD", ErrInvalidFormat, in.Date)
	}
	start, err := ParseClock(clock)
	if err != nil {
		return nil, err
	}

	status := StatusScheduled
	if s := strings.TrimSpace(in.Status); s != "" {
		if status, err = ParseStatus(s); err != nil {
			return nil, err
		}
	}
	m, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}

	return &Appointment{
		PatientName: patient,
		Date:        date,
		Time:        FormatClock(start),
		Duration:    *in.Duration,
		DoctorName:  doctor,
		Status:      status,
		Mode:        m,
	}, nil
}

// AvailabilityQuery asks whether a doctor is free for a candidate interval.
// ExcludeID lets an existing appointment be re-validated in place.
type AvailabilityQuery struct {
	DoctorName string
	Date       string
	Time       string
	Duration   *int
	ExcludeID  string
}

func (q AvailabilityQuery) slot() (Slot, error) {
	doctor := strings.TrimSpace(q.DoctorName)
	var missing []string
	if doctor == "" {
		missing = append(missing, "doctorName")
	}
	if strings.TrimSpace(q.Date) == "" {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(q.Time) == "" {
		missing = append(missing, "time")
	}
	if q.Duration == nil {
		missing = append(missing, "duration")
	}
	if len(missing) > 0 {
		return Slot{}, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	if err := checkDuration(*q.Duration); err != nil {
		return Slot{}, err
	}
	date := strings.TrimSpace(q.Date)
	if _, err := time.Parse(DateLayout, date); err != nil {
		return Slot{}, fmt.Errorf("%w: date %q, use YYYY-MM-DD", ErrInvalidFormat, q.Date)
	}
	start, err := ParseClock(q.Time)
	if err != nil {
		return Slot{}, err
	}
	return Slot{DoctorName: doctor, Date: date, Range: NewTimeRange(start, *q.Duration)}, nil
}
