package domain

import "errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrForbidden            = errors.New("forbidden")
	ErrDuplicateOffer       = errors.New("duplicate active offer")
	ErrInvalidTransition    = errors.New("negotiation already settled")
)
