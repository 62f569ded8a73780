package booking

import "errors"

var (
	ErrNoService     = errors.New("choose a service first")
	ErrNoProvider    = errors.New("choose a provider first")
	ErrInvalidSlot   = errors.New("invalid time slot")
	ErrInvalidStep   = errors.New("invalid booking step")
	ErrIncomplete    = errors.New("booking selection is incomplete")
	ErrAlreadyBooked = errors.New("booking already confirmed")
)
