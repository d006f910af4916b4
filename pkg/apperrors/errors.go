package apperrors

import "errors"

var (
	ErrNotFound                  = errors.New("not found")
	ErrConflict                  = errors.New("conflict")
	ErrUnsupportedConnectionType = errors.New("unsupported connection type")
	ErrRequiredVariable          = errors.New("required variable has no value")
	ErrInvalidSchedule           = errors.New("invalid schedule configuration")
	ErrCredentialsKeyMismatch    = errors.New("connection credentials were encrypted with a different key")
)
