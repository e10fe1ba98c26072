// Package mqtt connects kalliope-app to the broker its OwnTracks devices
// use. Waypoints go out on a device command topic and region transitions
// come back on its event topic:
//
//	kalliope-app → owntracks/{user}/{device}/cmd   (setWaypoints)
//	kalliope-app ← owntracks/{user}/{device}/event (transition)
//
// The client reconnects on its own, replays subscriptions, and keeps a
// retained online/offline status on kalliope-app/status with a will for
// crashes. Enable cfg.Broker.TLS for any broker reachable from the
// internet; payloads carry location data.
package mqtt
