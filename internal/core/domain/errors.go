package domain

import "errors"

var (
	// ErrTransport is a failed register read. The cycle is skipped.
	ErrTransport = errors.New("transport error")
	// ErrPublish is a failed MQTT or InfluxDB write. The data point is lost.
	ErrPublish = errors.New("publish error")
	// ErrPersistence is a failed read or write of the energy totals.
	ErrPersistence = errors.New("persistence error")
)
