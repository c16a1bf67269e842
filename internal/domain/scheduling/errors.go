package scheduling

import "errors"

var (
	ErrMissingField  = errors.New("missing required fields")
	ErrInvalidFormat = errors.New("invalid format")
	ErrInvalidStatus = errors.New("invalid status")
	ErrConflict      = errors.New("time conflict")
	ErrNotFound      = errors.New("appointment not found")

	// ErrDuplicateID is returned by a store asked to insert an id it already holds.
	ErrDuplicateID = errors.New("duplicate appointment id")
)

// rejectionReason names the error kind for metrics labels.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(err, ErrInvalidStatus):
		return "invalid_status"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return ""
	}
}
