package interfaces

import "errors"

var (
	// ErrNotRegistered is returned when no label exists for an address
	ErrNotRegistered = errors.New("label not registered")

	// ErrDuplicateKey is returned when creating a label whose address already exists
	ErrDuplicateKey = errors.New("label already exists")
)
