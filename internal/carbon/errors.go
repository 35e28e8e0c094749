package carbon

import "errors"

var (
	// ErrDataUnavailable is returned when reference data is missing or has no
	// qualifying rows for a requested key. Callers supply a fallback or abort.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrUnknownSector is returned for a sector outside the supported set.
	ErrUnknownSector = errors.New("unknown sector")

	// ErrDataIntegrity is returned when cleaned data fails validation. No
	// partial output of the failing run is trustworthy.
	ErrDataIntegrity = errors.New("data integrity violation")

	// ErrMalformedRecord is returned when a row cannot be turned into the
	// required fields.
	ErrMalformedRecord = errors.New("malformed record")
)
