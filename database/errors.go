package database

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("duplicate key")
	// ErrUnknownUser is returned when a write names a user the store does not hold.
	ErrUnknownUser  = errors.New("unknown user")
	ErrNotConnected = errors.New("store is not connected")
)
