package owntracks

import "errors"

var (
	// ErrNotConnected is returned by Initialize when the broker is not
	// reachable.
	ErrNotConnected = errors.New("owntracks: not connected to broker")

	// ErrInvalidEvent is returned for a payload that is not an OwnTracks
	// transition message.
	ErrInvalidEvent = errors.New("owntracks: invalid event")
)
