// Package config loads kalliope-app configuration from YAML, applies
// KALLIOPE_* environment overrides, fills defaults and validates the
// result. Settings() gives the Kalliope client the server URL, credentials
// and mute flag used on every call.
//
// Keep secrets such as KALLIOPE_PASSWORD and KALLIOPE_MQTT_PASSWORD in the
// environment and the config file at mode 0600.
package config
