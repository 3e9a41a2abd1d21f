package ingest

import (
	"fmt"
	"strings"
	"time"

	"farmtrack-backend/internal/parse"
)

// RawReading is a device payload as it arrives over HTTP or MQTT.
// Numeric fields may be JSON numbers or numeric strings.
type RawReading struct {
	GPSDeviceID    string `json:"gps_device_id"`
	Latitude       any    `json:"latitude"`
	Longitude      any    `json:"longitude"`
	Speed          any    `json:"speed,omitempty"`
	Heading        any    `json:"heading,omitempty"`
	IgnitionStatus any    `json:"ignition_status"`
	VibrationLevel any    `json:"vibration_level,omitempty"`
	RPM            any    `json:"rpm,omitempty"`
	Timestamp      any    `json:"timestamp,omitempty"`
}

// Reading is a validated telemetry reading.
type Reading struct {
	GPSDeviceID    string
	Latitude       float64
	Longitude      float64
	Speed          *float64
	Heading        *float64
	IgnitionStatus bool
	VibrationLevel *float64
	RPM            *int
	// Timestamp is nil when the device did not send one.
	Timestamp *time.Time
}

// Normalize validates the mandatory fields and coerces the optional ones.
// Every failure wraps ErrInvalidInput.
func (r RawReading) Normalize() (Reading, error) {
	out := Reading{GPSDeviceID: strings.TrimSpace(r.GPSDeviceID)}
	if out.GPSDeviceID == "" {
		return out, missing("gps_device_id")
	}

	lat, err := parse.Float(r.Latitude)
	if err != nil {
		return out, invalid("latitude", err)
	}
	lng, err := parse.Float(r.Longitude)
	if err != nil {
		return out, invalid("longitude", err)
	}
	ignition, err := parse.Bool(r.IgnitionStatus)
	if err != nil {
		return out, invalid("ignition_status", err)
	}
	switch {
	case lat == nil:
		return out, missing("latitude")
	case lng == nil:
		return out, missing("longitude")
	case ignition == nil:
		return out, missing("ignition_status")
	}
	out.Latitude, out.Longitude, out.IgnitionStatus = *lat, *lng, *ignition

	if out.Speed, err = parse.Float(r.Speed); err != nil {
		return out, invalid("speed", err)
	}
	if out.Heading, err = parse.Float(r.Heading); err != nil {
		return out, invalid("heading", err)
	}
	if out.VibrationLevel, err = parse.Float(r.VibrationLevel); err != nil {
		return out, invalid("vibration_level", err)
	}
	if out.RPM, err = parse.Int(r.RPM); err != nil {
		return out, invalid("rpm", err)
	}
	if out.Timestamp, err = parse.Timestamp(r.Timestamp); err != nil {
		return out, invalid("timestamp", err)
	}
	return out, nil
}

func missing(field string) error {
	return fmt.Errorf("%w: missing required field %s", ErrInvalidInput, field)
}

func invalid(field string, err error) error {
	return fmt.Errorf("%w: field %s: %v", ErrInvalidInput, field, err)
}
