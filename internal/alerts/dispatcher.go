package alerts

import (
	"context"
	"log/slog"
	"sync"
)

// Channel delivers an alert over one transport. Implementations are
// external collaborators (email, chat, SMS providers, message buses).
type Channel interface {
	Name() string
	Deliver(ctx context.Context, message string, data map[string]any) error
}

// Dispatcher fans alerts out to every enabled channel. Delivery is
// best-effort: a channel failure is logged and never surfaces to the
// caller or blocks the other channels.
type Dispatcher struct {
	mu       sync.RWMutex
	cfg      Config
	channels []Channel
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given channels
func NewDispatcher(cfg Config, logger *slog.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		channels: channels,
		logger:   logger,
	}
}

// Send delivers the alert to all enabled channels concurrently. A no-op
// when alerting is globally disabled.
func (d *Dispatcher) Send(ctx context.Context, message string, data map[string]any) {
	d.mu.RLock()
	cfg := d.cfg
	d.mu.RUnlock()

	if !cfg.Enabled {
		d.logger.Debug("Alert suppressed (alerts disabled)",
			slog.String("message", message),
		)
		return
	}

	d.logger.Warn("ALERT",
		slog.String("message", message),
		slog.Any("data", data),
	)

	var wg sync.WaitGroup
	for _, ch := range d.channels {
		if !cfg.channelEnabled(ch.Name()) {
			continue
		}

		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()

			if err := ch.Deliver(ctx, message, data); err != nil {
				d.logger.Error("Alert delivery failed",
					slog.String("channel", ch.Name()),
					slog.String("message", message),
					slog.Any("error", err),
				)
				return
			}

			d.logger.Info("Alert delivered",
				slog.String("channel", ch.Name()),
			)
		}(ch)
	}
	wg.Wait()
}

// UpdateConfig deep-merges the partial update into the current config
func (d *Dispatcher) UpdateConfig(u ConfigUpdate) Config {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cfg = d.cfg.merge(u)
	d.logger.Info("Alert configuration updated",
		slog.Any("config", d.cfg),
	)

	return d.cfg
}

// Config returns a copy of the current alert configuration
func (d *Dispatcher) Config() Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}
