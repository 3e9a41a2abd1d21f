package ingest

import "errors"

var (
	// ErrInvalidInput is returned when a reading lacks a mandatory field or carries a malformed value.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMachineNotFound is returned when no machine carries the reading's GPS device.
	ErrMachineNotFound = errors.New("machine not found")
)
