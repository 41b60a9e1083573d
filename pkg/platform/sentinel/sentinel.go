package sentinel

import "errors"

// Store-level facts. Stores return these, possibly wrapped; services decide
// what they mean for the caller and translate them into domain errors.
//
// Validation problems never use these; they go straight to pkg/domain-errors.
var (
	// ErrNotFound: no row matches within the tenant.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a uniqueness rule rejected the write (one active revocation per document).
	ErrConflict = errors.New("conflict")
	// ErrExpired: the record is past its expiry instant.
	ErrExpired = errors.New("expired")
	// ErrAlreadyUsed: a generated value collided with an existing one (share tokens).
	ErrAlreadyUsed = errors.New("already used")
	// ErrInvalidState: the record is not in a state that allows the operation.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable: the backing store or cache could not be reached.
	ErrUnavailable = errors.New("unavailable")
)
