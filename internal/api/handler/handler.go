package handler

import (
	"log/slog"

	"github.com/finpoint/bankscrape/internal/alerts"
	"github.com/finpoint/bankscrape/internal/archive"
	"github.com/finpoint/bankscrape/internal/health"
	"github.com/finpoint/bankscrape/internal/metrics"
	"github.com/finpoint/bankscrape/internal/queue"
	"github.com/finpoint/bankscrape/internal/session"
	"github.com/finpoint/bankscrape/internal/strategy"
)

// Dependencies holds all dependencies needed by handlers. Outcomes is nil
// when the PostgreSQL archive is disabled.
type Dependencies struct {
	Logger       *slog.Logger
	Orchestrator *queue.Orchestrator
	Sessions     *session.Store
	Registry     *strategy.Registry
	Metrics      *metrics.Aggregator
	Health       *health.Evaluator
	Alerts       *alerts.Dispatcher
	Outcomes     *archive.Storage
}

// ScrapeHandler handles job submission and lifecycle requests
type ScrapeHandler struct {
	logger       *slog.Logger
	orchestrator *queue.Orchestrator
	outcomes     *archive.Storage
}

// NewScrapeHandler creates a new ScrapeHandler instance
func NewScrapeHandler(deps *Dependencies) *ScrapeHandler {
	return &ScrapeHandler{
		logger:       deps.Logger,
		orchestrator: deps.Orchestrator,
		outcomes:     deps.Outcomes,
	}
}

// SessionHandler handles session lifecycle requests
type SessionHandler struct {
	logger   *slog.Logger
	sessions *session.Store
}

// NewSessionHandler creates a new SessionHandler instance
func NewSessionHandler(deps *Dependencies) *SessionHandler {
	return &SessionHandler{
		logger:   deps.Logger,
		sessions: deps.Sessions,
	}
}

// OpsHandler serves the operational surface: health, metrics, alert
// configuration, and the registered target list.
type OpsHandler struct {
	logger   *slog.Logger
	registry *strategy.Registry
	metrics  *metrics.Aggregator
	health   *health.Evaluator
	alerts   *alerts.Dispatcher
}

// NewOpsHandler creates a new OpsHandler instance
func NewOpsHandler(deps *Dependencies) *OpsHandler {
	return &OpsHandler{
		logger:   deps.Logger,
		registry: deps.Registry,
		metrics:  deps.Metrics,
		health:   deps.Health,
		alerts:   deps.Alerts,
	}
}
