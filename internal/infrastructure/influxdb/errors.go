package influxdb

import "errors"

// Sentinel errors for the history sink. Callers match with errors.Is.
var (
	// ErrNotConnected indicates an operation on a client with no
	// established InfluxDB session.
	ErrNotConnected = errors.New("influxdb: no server connection")

	// ErrConnectionFailed indicates the initial ping or health check
	// did not succeed.
	ErrConnectionFailed = errors.New("influxdb: server connection failed")

	// ErrWriteFailed indicates a point write was rejected. Async write
	// errors surface through the error callback instead.
	ErrWriteFailed = errors.New("influxdb: write rejected")

	// ErrDisabled indicates the integration is switched off in
	// configuration.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
