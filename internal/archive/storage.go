package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/finpoint/bankscrape/internal/queue/domain"
)

// Outcome is one archived terminal job record
type Outcome struct {
	JobID       string          `db:"job_id" json:"job_id"`
	TargetID    string          `db:"target_id" json:"target_id"`
	Priority    string          `db:"priority" json:"priority"`
	State       string          `db:"state" json:"state"`
	Attempts    int             `db:"attempts" json:"attempts"`
	FailReason  string          `db:"fail_reason" json:"fail_reason,omitempty"`
	Result      json.RawMessage `db:"result" json:"result,omitempty"`
	SubmittedAt time.Time       `db:"submitted_at" json:"submitted_at"`
	FinishedAt  time.Time       `db:"finished_at" json:"finished_at"`
}

// Storage persists terminal job outcomes to PostgreSQL
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// SaveOutcome inserts a terminal job record. Completed job results are
// stored as JSON; failed jobs keep their failure reason.
func (s *Storage) SaveOutcome(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO scrape_job_outcomes
			(job_id, target_id, priority, state, attempts, fail_reason, result, submitted_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (job_id) DO NOTHING
	`

	var resultJSON []byte
	if job.Result != nil {
		var err error
		resultJSON, err = json.Marshal(job.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal job result: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.TargetID,
		string(job.Priority),
		job.State,
		job.Attempts,
		job.FailReason,
		resultJSON,
		job.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to archive job outcome: %w", err)
	}

	s.logger.Debug("Archived job outcome",
		slog.String("job_id", job.ID),
		slog.String("state", job.State),
	)

	return nil
}

// ListRecent returns the most recently finished outcomes, newest first
func (s *Storage) ListRecent(ctx context.Context, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT job_id, target_id, priority, state, attempts, fail_reason, result, submitted_at, finished_at
		FROM scrape_job_outcomes
		ORDER BY finished_at DESC
		LIMIT $1
	`

	outcomes := []Outcome{}
	if err := s.db.SelectContext(ctx, &outcomes, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list job outcomes: %w", err)
	}

	return outcomes, nil
}

// ListFailed returns recently failed outcomes for a target, newest first.
// An empty target matches all targets.
func (s *Storage) ListFailed(ctx context.Context, targetID string, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT job_id, target_id, priority, state, attempts, fail_reason, result, submitted_at, finished_at
		FROM scrape_job_outcomes
		WHERE state = 'failed' AND ($1 = '' OR target_id = $1)
		ORDER BY finished_at DESC
		LIMIT $2
	`

	outcomes := []Outcome{}
	if err := s.db.SelectContext(ctx, &outcomes, query, targetID, limit); err != nil {
		return nil, fmt.Errorf("failed to list failed outcomes: %w", err)
	}

	return outcomes, nil
}
