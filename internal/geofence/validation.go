package geofence

import (
	"fmt"
	"math"

	"github.com/msgpo/kalliope-app/internal/synapse"
)

// Validate checks that f can be registered.
func (f Fence) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidFence)
	}
	if math.IsNaN(f.Latitude) || math.Abs(f.Latitude) > 90 {
		return fmt.Errorf("%w: %s: latitude %v out of range", ErrInvalidFence, f.ID, f.Latitude)
	}
	if math.IsNaN(f.Longitude) || math.Abs(f.Longitude) > 180 {
		return fmt.Errorf("%w: %s: longitude %v out of range", ErrInvalidFence, f.ID, f.Longitude)
	}
	if !(f.Radius > 0) || math.IsInf(f.Radius, 0) {
		return fmt.Errorf("%w: %s: radius %v must be positive", ErrInvalidFence, f.ID, f.Radius)
	}
	switch f.Transition {
	case TransitionEnter, TransitionExit:
	default:
		return fmt.Errorf("%w: %s: unknown transition %q", ErrInvalidFence, f.ID, f.Transition)
	}
	return nil
}

// Fences returns one entry fence per geolocation synapse, in input order.
// Synapses with any other signal, or none, are skipped.
func Fences(synapses []synapse.Synapse) []Fence {
	var fences []Fence
	for _, s := range synapses {
		switch sig := s.Signal.(type) {
		case synapse.Geolocation:
			fences = append(fences, Fence{
				ID:         s.Name,
				Latitude:   sig.Latitude,
				Longitude:  sig.Longitude,
				Radius:     sig.Radius,
				Transition: TransitionEnter,
			})
		case synapse.OrderSignal, synapse.GenericSignal, nil:
		}
	}
	return fences
}
