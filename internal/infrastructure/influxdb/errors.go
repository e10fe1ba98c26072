package influxdb

import "errors"

var (
	// ErrNotConnected is returned by HealthCheck on a closed or zero Client.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed wraps the failure of the initial ping.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
