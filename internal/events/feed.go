// Package events publishes session and alert activity for the live admin ticker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"farmtrack-backend/internal/model"
)

// Event types.
const (
	TypeSessionStarted = "session_started"
	TypeSessionEnded   = "session_ended"
	TypeAlert          = "alert"
)

// Event is one entry of the live feed.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// FromAlert builds the ticker event of a newly created alert. now stamps alerts the database
// has not timestamped yet.
func FromAlert(a model.Alert, now time.Time) Event {
	ts := a.CreatedAt
	if ts.IsZero() {
		ts = now
	}
	return Event{
		ID:        a.ID,
		Type:      TypeAlert,
		Message:   a.Message,
		Severity:  a.Severity,
		Timestamp: ts,
	}
}

// Feed stores recent events.
type Feed interface {
	Publish(ctx context.Context, e Event) error
	Recent(ctx context.Context, n int64) ([]Event, error)
}

// NopFeed drops events. Used when Redis is not configured.
type NopFeed struct{}

func (NopFeed) Publish(context.Context, Event) error { return nil }

func (NopFeed) Recent(context.Context, int64) ([]Event, error) { return []Event{}, nil }

// RedisFeed keeps events in a capped Redis stream.
type RedisFeed struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisFeed creates a feed writing to stream, trimmed to roughly maxLen entries.
func NewRedisFeed(client *redis.Client, stream string, maxLen int64) *RedisFeed {
	return &RedisFeed{client: client, stream: stream, maxLen: maxLen}
}

// Publish appends e to the stream.
func (f *RedisFeed) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = f.client.XAdd(ctx, &redis.XAddArgs{
		Stream: f.stream,
		MaxLen: f.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":      string(data),
			"timestamp": e.Timestamp.Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish to stream %s: %w", f.stream, err)
	}
	return nil
}

// Recent returns up to n events, newest first. Entries that fail to decode are skipped.
func (f *RedisFeed) Recent(ctx context.Context, n int64) ([]Event, error) {
	msgs, err := f.client.XRevRangeN(ctx, f.stream, "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("read stream %s: %w", f.stream, err)
	}

	out := make([]Event, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
