// Package synapse holds the data model of a Kalliope server as seen by a
// client: synapses (named routines), the signal that can fire each one, and
// the order response returned when a synapse is started.
//
// It also owns the serialization adapter between the server's JSON and these
// records. Decoding is tolerant: entries the server sends in a shape this
// package does not understand are dropped, never reported as errors.
//
// # Signals
//
// A Synapse carries at most one Signal. Signal is a sealed interface with
// three variants:
//
//   - OrderSignal: a spoken order ("turn on the lights")
//   - GenericSignal: any other named signal with a flat parameter list
//   - Geolocation: a circular region (latitude, longitude, radius in metres)
//
// Consumers switch on the concrete type:
//
//	switch sig := s.Signal.(type) {
//	case synapse.Geolocation:
//	    arm(s.Name, sig)
//	case synapse.OrderSignal, synapse.GenericSignal, nil:
//	    // not location based
//	}
//
// # Usage
//
//	synapses := synapse.ParseSynapses(body)
//	payload := synapse.BuildStartPayload(settings, synapses[0].Signal)
package synapse
