package geofence

import (
	"context"
	"time"
)

// Transition is the region event a fence fires on.
type Transition string

const (
	TransitionEnter Transition = "enter"
	TransitionExit  Transition = "exit"
)

// Fence is a circular region registered on a Platform.
type Fence struct {
	// ID is the name of the synapse the fence triggers.
	ID string `json:"id"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Radius in metres.
	Radius float64 `json:"radius"`

	Transition Transition `json:"transition"`
}

// Platform registers fences with whatever evaluates them.
type Platform interface {
	// Initialize prepares the platform. It is called once per Bridge
	// before the first AddOrUpdate, and again only after a failure.
	Initialize(ctx context.Context) error

	// AddOrUpdate registers f, replacing any fence with the same ID.
	AddOrUpdate(ctx context.Context, f Fence) error
}

// State is the initialisation state of a Bridge.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateInitialized
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateInitialized:
		return "initialized"
	default:
		return "unknown"
	}
}

// Failure is a fence that could not be registered.
type Failure struct {
	ID  string
	Err error
}

// Result reports what one SetGeofence call did.
type Result struct {
	// Registered lists fence IDs accepted by the platform, in input order.
	Registered []string

	// Failed lists fences the platform rejected.
	Failed []Failure
}

// StoredFence is a fence as kept by SQLiteStore.
type StoredFence struct {
	Fence

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// LastEvent is the most recent transition reported for the fence,
	// empty if none has been seen.
	LastEvent   Transition `json:"last_event,omitempty"`
	LastEventAt *time.Time `json:"last_event_at,omitempty"`
}
