package domain

import "errors"

// ErrNotFound is returned by repo and store functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails business rule validation
// (e.g. missing activity title, end time not after start time).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when a write would break a uniqueness rule, such as
// two days of the same itinerary sharing a calendar date.
// Handlers should map this to HTTP 409.
var ErrConflict = errors.New("conflict")
