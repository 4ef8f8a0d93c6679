package strategy

import (
	"context"
	"fmt"
	"time"
)

// Mock is a scripted strategy used for wiring and tests. It returns
// deterministic data after configurable delays and fails authentication
// when the expected credentials do not match. The fields are read-only
// configuration; per-run state lives on the execution.
type Mock struct {
	TargetID     string
	Balance      float64
	Transactions []Transaction
	StepDelay    time.Duration
	RequireUser  string // when set, Authenticate checks credentials["username"]
}

var _ Strategy = (*Mock)(nil)

// NewMockBank returns a mock strategy with canned data for a target. The
// transaction dates trail the current time so they land inside the
// orchestrator's history window.
func NewMockBank(targetID string) *Mock {
	now := time.Now().UTC()
	return &Mock{
		TargetID: targetID,
		Balance:  1_234_567.89,
		Transactions: []Transaction{
			{Date: now.AddDate(0, 0, -20), Description: "SALARY", Amount: 3_000_000, Type: "credit", Balance: 4_000_000},
			{Date: now.AddDate(0, 0, -10), Description: "RENT", Amount: 1_200_000, Type: "debit", Balance: 2_800_000},
			{Date: now.AddDate(0, 0, -3), Description: "GROCERIES", Amount: 85_000, Type: "debit", Balance: 2_715_000},
		},
		StepDelay: 10 * time.Millisecond,
	}
}

// NewExecution implements Strategy
func (m *Mock) NewExecution() Execution {
	return &mockExecution{cfg: m}
}

// mockExecution is one scripted run. Login and proxy state are scoped to
// this execution, never to the shared Mock.
type mockExecution struct {
	cfg *Mock

	proxyURL      string
	authenticated bool
}

var _ Execution = (*mockExecution)(nil)
var _ ProxyAware = (*mockExecution)(nil)

// UseProxy records the proxy connection string for this execution
func (e *mockExecution) UseProxy(url string) {
	e.proxyURL = url
}

// Authenticate simulates a login step
func (e *mockExecution) Authenticate(ctx context.Context, credentials map[string]string) error {
	if err := e.wait(ctx); err != nil {
		return err
	}

	if e.cfg.RequireUser != "" && credentials["username"] != e.cfg.RequireUser {
		return fmt.Errorf("authentication failed for target %s", e.cfg.TargetID)
	}

	e.authenticated = true
	return nil
}

// FetchSummary returns the canned balance
func (e *mockExecution) FetchSummary(ctx context.Context) (float64, error) {
	if err := e.wait(ctx); err != nil {
		return 0, err
	}
	if !e.authenticated {
		return 0, fmt.Errorf("not authenticated with target %s", e.cfg.TargetID)
	}
	return e.cfg.Balance, nil
}

// FetchHistory returns canned transactions inside the requested window
func (e *mockExecution) FetchHistory(ctx context.Context, startDate, endDate time.Time) ([]Transaction, error) {
	if err := e.wait(ctx); err != nil {
		return nil, err
	}
	if !e.authenticated {
		return nil, fmt.Errorf("not authenticated with target %s", e.cfg.TargetID)
	}

	var out []Transaction
	for _, tx := range e.cfg.Transactions {
		if tx.Date.Before(startDate) || tx.Date.After(endDate) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (e *mockExecution) wait(ctx context.Context) error {
	if e.cfg.StepDelay <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.cfg.StepDelay):
		return nil
	}
}
