package entities

import "errors"

var ErrStoreEntityNotFound = errors.New("store resource not found")

var (
	ErrInvalidRange        = errors.New("invalid block range")
	ErrInvalidWatchedEvent = errors.New("invalid watched event")
	ErrMissingHandler      = errors.New("watched event has no handler")
	ErrDuplicateHandler    = errors.New("handler already registered")
	ErrUnwatchedHandler    = errors.New("handler registered for unwatched event")
)
