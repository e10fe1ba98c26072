// Package geofence arms location triggers for geolocation synapses.
//
// A Bridge takes a synapse list, keeps the synapses whose signal is a
// synapse.Geolocation, and registers one circular fence per synapse on a
// Platform. The fence ID is the synapse name, so a later entry transition
// can start the synapse by name.
//
// # Platforms
//
//   - SQLiteStore keeps fences in the local database (geofence list)
//   - owntracks.Platform sends them to a phone as OwnTracks waypoints
//
// # Initialisation
//
// The platform is initialised lazily on the first SetGeofence call and at
// most once per Bridge:
//
//	Uninitialized → Initializing → Initialized
//	                     ↓ (failure)
//	               Uninitialized
//
// A failed initialisation is logged and leaves the bridge uninitialised,
// so the next SetGeofence tries again. Callers arriving while an attempt
// is in flight wait for it instead of starting their own.
//
// # Errors
//
// A registration failure for one fence is logged and reported in Result;
// the remaining fences are still registered.
package geofence
