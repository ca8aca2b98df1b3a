package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInfra        = errors.New("infrastructure unavailable")

	// ErrNoImage is recorded verbatim onto failed jobs; its text is part of
	// the status API contract.
	ErrNoImage = errors.New("No image returned from AI")
)
