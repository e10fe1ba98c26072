// Package api implements the relay HTTP server for kalliope-app.
//
// The relay lets clients that cannot hold Kalliope credentials (home
// dashboards, OwnTracks in HTTP mode) list and start synapses. Every
// request is forwarded to the configured Kalliope server with the
// relay's own settings.
//
// # Endpoints
//
//	GET  /api/v1/health                  per-component status, 503 when degraded
//	GET  /api/v1/synapses
//	POST /api/v1/synapses/{name}/start   {"parameters": {...}, "mute": true}
//	POST /api/v1/orders                  {"order": "...", "mute": true}
//	GET  /api/v1/geofences
//	POST /api/v1/geofences/arm
//	POST /api/v1/owntracks               OwnTracks HTTP mode payload
//	GET  /api/v1/history?synapse=&action=&limit=&offset=
//
// The geofence, owntracks and history routes are only mounted when the matching
// dependency is set in Deps.
//
// # Errors
//
// Errors are JSON objects {"status", "code", "message"}. Failures reported
// by the Kalliope server map to 502, except an unknown synapse which maps
// to 404.
package api
