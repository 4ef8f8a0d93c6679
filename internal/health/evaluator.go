package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/finpoint/bankscrape/internal/metrics"
)

// Status is the overall system health
type Status string

// TargetStatus is the derived health of a single target
type TargetStatus string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"

	TargetUp       TargetStatus = "up"
	TargetDegraded TargetStatus = "degraded"
	TargetDown     TargetStatus = "down"
)

// TargetHealth is the per-target slice of a health evaluation
type TargetHealth struct {
	Status         TargetStatus `json:"status"`
	ResponseTimeMs float64      `json:"response_time_ms"`
	LastChecked    time.Time    `json:"last_checked"`
}

// State is one wholesale health evaluation; never partially updated
type State struct {
	Status                Status                  `json:"status"`
	ErrorRate             float64                 `json:"error_rate"`
	AverageResponseTimeMs float64                 `json:"average_response_time_ms"`
	ActiveTargets         int                     `json:"active_targets"`
	LastChecked           time.Time               `json:"last_checked"`
	Targets               map[string]TargetHealth `json:"targets"`
}

// MetricsSource provides the aggregate view the evaluator reduces
type MetricsSource interface {
	Snapshot() metrics.Snapshot
}

// AlertSink receives alerts on degraded/unhealthy transitions
type AlertSink interface {
	Send(ctx context.Context, message string, data map[string]any)
}

// Evaluator periodically reduces the metrics snapshot into a system health
// state. Evaluation failures never propagate; they force the state to
// unhealthy and trigger an alert.
type Evaluator struct {
	mu     sync.RWMutex
	state  State
	source MetricsSource
	alerts AlertSink

	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewEvaluator creates an evaluator; the initial state is healthy
func NewEvaluator(source MetricsSource, alerts AlertSink, interval time.Duration, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		state: State{
			Status:      StatusHealthy,
			LastChecked: time.Now(),
			Targets:     make(map[string]TargetHealth),
		},
		source:   source,
		alerts:   alerts,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run blocks until the context is canceled, evaluating on every tick
func (e *Evaluator) Run(ctx context.Context) {
	e.logger.Info("Health evaluator started",
		slog.Duration("interval", e.interval),
	)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Health evaluator stopping - context canceled")
			return
		case <-ticker.C:
			e.Evaluate(ctx)
		}
	}
}

// Evaluate recomputes system health from the current metrics snapshot
func (e *Evaluator) Evaluate(ctx context.Context) {
	state, err := e.compute()
	if err != nil {
		e.logger.Error("Health check failed",
			slog.Any("error", err),
		)

		e.mu.Lock()
		e.state.Status = StatusUnhealthy
		e.state.LastChecked = e.now()
		e.mu.Unlock()

		e.alerts.Send(ctx, "Health check failed", map[string]any{
			"error":   err.Error(),
			"details": "Failed to complete system health check",
		})
		return
	}

	e.mu.Lock()
	previous := e.state.Status
	e.state = state
	e.mu.Unlock()

	if state.Status != previous && state.Status != StatusHealthy {
		message := "System is degraded"
		details := "System performance is degraded"
		if state.Status == StatusUnhealthy {
			message = "System is unhealthy"
			details = "High error rate detected in the system"
		}

		e.alerts.Send(ctx, message, map[string]any{
			"errorRate":           state.ErrorRate,
			"averageResponseTime": state.AverageResponseTimeMs,
			"details":             details,
		})
	}

	e.logger.Info("Health check completed",
		slog.String("status", string(state.Status)),
		slog.Float64("error_rate", state.ErrorRate),
	)
}

// compute derives a full health state; panics in the reduction are
// converted to errors so the periodic scheduler keeps running.
func (e *Evaluator) compute() (state State, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("health evaluation panic: %v", r)
		}
	}()

	snap := e.source.Snapshot()
	now := e.now()

	totalRequests := snap.Scraping.TotalSuccess + snap.Scraping.TotalFailure

	var errorRate float64
	if totalRequests > 0 {
		errorRate = float64(snap.Scraping.TotalFailure) / float64(totalRequests)
	}

	var totalDuration float64
	var durationCount int
	for _, duration := range snap.Scraping.MeanDurations {
		if duration > 0 {
			totalDuration += duration
			durationCount++
		}
	}

	var averageResponseTime float64
	if durationCount > 0 {
		averageResponseTime = totalDuration / float64(durationCount)
	}

	targets := make(map[string]TargetHealth, len(snap.Scraping.SuccessRates))
	for targetID, successRate := range snap.Scraping.SuccessRates {
		status := TargetUp
		if successRate < 50 {
			status = TargetDown
		} else if successRate < 90 {
			status = TargetDegraded
		}

		targets[targetID] = TargetHealth{
			Status:         status,
			ResponseTimeMs: snap.Scraping.MeanDurations[targetID],
			LastChecked:    now,
		}
	}

	status := StatusHealthy
	if errorRate > 0.2 {
		status = StatusUnhealthy
	} else if errorRate > 0.05 {
		status = StatusDegraded
	}

	return State{
		Status:                status,
		ErrorRate:             errorRate,
		AverageResponseTimeMs: averageResponseTime,
		ActiveTargets:         len(targets),
		LastChecked:           now,
		Targets:               targets,
	}, nil
}

// Current returns a copy of the last computed health state
func (e *Evaluator) Current() State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	state := e.state
	state.Targets = make(map[string]TargetHealth, len(e.state.Targets))
	for targetID, th := range e.state.Targets {
		state.Targets[targetID] = th
	}
	return state
}
