// Package owntracks arms geofences on an OwnTracks device and turns the
// device's region transitions back into synapse runs.
//
// Platform implements geofence.Platform by publishing a setWaypoints remote
// command to {prefix}/{user}/{device}/cmd. Each fence becomes a waypoint
// whose description is the synapse name.
//
// Watcher consumes transition events, either from MQTT
// ({prefix}/+/+/event) or from OwnTracks HTTP mode through the relay API.
// An "enter" transition for a waypoint starts the synapse of the same name
// and the outcome is published on kalliope-app/synapse/{name}/run.
//
//	platform := owntracks.NewPlatform(mqttClient, cfg.Geofence.OwnTracks, mqttClient.QoS())
//	bridge := geofence.NewBridge(platform)
//	result, err := bridge.SetGeofence(ctx, synapses)
//
// Remote commands must be enabled in the OwnTracks app settings
// (cmd = true) for the device to accept waypoints.
package owntracks
