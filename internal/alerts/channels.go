package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// LogChannel is a stand-in for an external notification provider: it logs
// the alert instead of delivering it. Real email/SMS/chat integrations
// replace these behind the same interface.
type LogChannel struct {
	name   string
	logger *slog.Logger
}

// NewEmailChannel returns the log-backed email channel
func NewEmailChannel(logger *slog.Logger) *LogChannel {
	return &LogChannel{name: "email", logger: logger}
}

// NewSlackChannel returns the log-backed slack channel
func NewSlackChannel(logger *slog.Logger) *LogChannel {
	return &LogChannel{name: "slack", logger: logger}
}

// NewSMSChannel returns the log-backed sms channel
func NewSMSChannel(logger *slog.Logger) *LogChannel {
	return &LogChannel{name: "sms", logger: logger}
}

// Name implements Channel
func (c *LogChannel) Name() string { return c.name }

// Deliver implements Channel
func (c *LogChannel) Deliver(_ context.Context, message string, data map[string]any) error {
	c.logger.Info(fmt.Sprintf("[%s alert] %s", c.name, message),
		slog.Any("data", data),
	)
	return nil
}

// Publisher publishes raw alert payloads to a message bus. Satisfied by
// the shared rabbitmq client.
type Publisher interface {
	Publish(ctx context.Context, body []byte, contentType string) error
}

// BusChannel publishes alert events to a message exchange for downstream
// notification consumers.
type BusChannel struct {
	publisher Publisher
}

// NewBusChannel creates a bus-backed alert channel
func NewBusChannel(publisher Publisher) *BusChannel {
	return &BusChannel{publisher: publisher}
}

// Name implements Channel
func (c *BusChannel) Name() string { return "bus" }

// Deliver implements Channel
func (c *BusChannel) Deliver(ctx context.Context, message string, data map[string]any) error {
	payload, err := json.Marshal(map[string]any{
		"message": message,
		"data":    data,
		"at":      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	if err := c.publisher.Publish(ctx, payload, "application/json"); err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}
	return nil
}
