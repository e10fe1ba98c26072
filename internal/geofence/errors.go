package geofence

import "errors"

var (
	// ErrInitFailed wraps the error of a failed platform initialisation.
	ErrInitFailed = errors.New("geofence: platform initialisation failed")

	// ErrInvalidFence is returned for a fence with an empty ID, coordinates
	// out of range or a non-positive radius.
	ErrInvalidFence = errors.New("geofence: invalid fence")

	// ErrFenceNotFound is returned when a fence ID does not exist.
	ErrFenceNotFound = errors.New("geofence: fence not found")

	// ErrNotInitialized is returned by SQLiteStore before Initialize succeeds.
	ErrNotInitialized = errors.New("geofence: platform not initialised")
)
