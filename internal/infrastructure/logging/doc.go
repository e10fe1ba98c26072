// Package logging builds the slog logger shared by the Kalliope client,
// the geofence bridge and the relay API. Every entry carries service and
// version fields; components add their own with With.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # text, json
//	  output: "stderr"   # stderr, stdout
//
// Logs go to stderr by default so CLI output on stdout stays clean. Never
// log the Kalliope password or MQTT credentials.
package logging
