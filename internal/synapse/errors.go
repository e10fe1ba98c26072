package synapse

import "errors"

// Domain errors for the synapse package.
var (
	// ErrInvalidName is returned when a synapse name is empty.
	ErrInvalidName = errors.New("synapse: invalid name")

	// ErrInvalidParam is returned when a parameter name is empty or
	// appears twice within one signal.
	ErrInvalidParam = errors.New("synapse: invalid parameter")
)
