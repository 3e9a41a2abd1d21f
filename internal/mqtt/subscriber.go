package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"farmtrack-backend/internal/ingest"
)

// Ingestor accepts raw readings.
type Ingestor interface {
	Ingest(ctx context.Context, raw ingest.RawReading) (*ingest.Result, error)
}

// Subscriber feeds readings published on the telemetry topic into the ingestion service.
// Devices publish to <prefix>/<gps_device_id>; the payload may omit gps_device_id.
type Subscriber struct {
	ingestor Ingestor
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSubscriber creates a subscriber. Each message is ingested under its own timeout.
func NewSubscriber(ingestor Ingestor, logger *zap.Logger) *Subscriber {
	return &Subscriber{ingestor: ingestor, timeout: 10 * time.Second, logger: logger}
}

// Start subscribes the client to topic.
func (s *Subscriber) Start(c *Client, topic string, qos byte) error {
	return c.Subscribe(topic, qos, s.HandleMessage, func(topic string, err error) {
		s.logger.Warn("Dropped MQTT telemetry", zap.String("topic", topic), zap.Error(err))
	})
}

// HandleMessage decodes and ingests one message.
func (s *Subscriber) HandleMessage(topic string, payload []byte) error {
	var raw ingest.RawReading
	if err := json.Unmarshal(payload, &raw); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", ingest.ErrInvalidInput, err)
	}
	if raw.GPSDeviceID == "" {
		raw.GPSDeviceID = deviceFromTopic(topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := s.ingestor.Ingest(ctx, raw)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidInput) || errors.Is(err, ingest.ErrMachineNotFound) {
			s.logger.Warn("Rejected MQTT telemetry",
				zap.String("topic", topic),
				zap.String("gps_device_id", raw.GPSDeviceID),
				zap.Error(err))
			return err
		}
		s.logger.Error("MQTT telemetry ingestion failed", zap.String("topic", topic), zap.Error(err))
		return err
	}
	s.logger.Debug("MQTT telemetry ingested",
		zap.String("gps_device_id", raw.GPSDeviceID),
		zap.String("status", string(res.Status)))
	return nil
}

func deviceFromTopic(topic string) string {
	i := strings.LastIndex(topic, "/")
	if i < 0 {
		return ""
	}
	return topic[i+1:]
}
