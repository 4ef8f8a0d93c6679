package strategy

import (
	"context"
	"time"
)

// Transaction is one row of fetched account history
type Transaction struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Type        string    `json:"type"` // credit or debit
	Balance     float64   `json:"balance"`
}

// Strategy is the per-target scraping adapter. A registered strategy is
// shared by every job for its target, so it must hold no per-run state:
// each job obtains its own Execution, and login/proxy state lives there.
type Strategy interface {
	NewExecution() Execution
}

// Execution drives one scraping run against a target site. An execution is
// owned by a single worker and never reused across jobs; the orchestrator
// only sequences the calls.
type Execution interface {
	// Authenticate logs in with the given credentials. Errors are treated
	// as transient by the orchestrator and retried per the job's policy.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// FetchSummary returns the current account balance
	FetchSummary(ctx context.Context) (float64, error)

	// FetchHistory returns transactions between startDate and endDate in
	// chronological order.
	FetchHistory(ctx context.Context, startDate, endDate time.Time) ([]Transaction, error)
}

// ProxyAware is an optional capability: executions that route traffic
// through a proxy receive the formatted connection string before the run.
type ProxyAware interface {
	UseProxy(url string)
}
