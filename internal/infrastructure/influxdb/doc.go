// Package influxdb records kalliope-app telemetry in InfluxDB v2.
//
// Every synapse started through the Kalliope client becomes a synapse_runs
// point, and every OwnTracks region transition a geofence_transitions
// point, so run latency, failure rates and presence can be charted.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	...
//	kc := kalliope.New(kalliope.WithRecorder(client))
//
// Writes are batched and never block; batch failures go to the SetOnError
// callback.
package influxdb
