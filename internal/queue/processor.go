package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/finpoint/bankscrape/internal/proxy"
	"github.com/finpoint/bankscrape/internal/queue/domain"
	"github.com/finpoint/bankscrape/internal/strategy"
)

// historyWindow is how far back fetched transaction history reaches
const historyWindow = 30 * 24 * time.Hour

// process executes one claimed job and records its outcome. Success and
// failure metrics are recorded before the job reaches a terminal state or
// is rescheduled.
func (o *Orchestrator) process(ctx context.Context, job *domain.Job) {
	start := time.Now()

	result, err := o.execute(ctx, job)

	durationMs := float64(time.Since(start).Microseconds()) / 1000
	o.metrics.RecordDuration(job.TargetID, durationMs)

	if err != nil {
		o.metrics.RecordFailure(job.TargetID)
		o.handleFailure(job, err)
		return
	}

	o.metrics.RecordSuccess(job.TargetID)
	o.handleSuccess(job, result)

	o.logger.Info("Scraping job completed",
		slog.String("job_id", job.ID),
		slog.String("target_id", job.TargetID),
		slog.Float64("duration_ms", durationMs),
	)
}

// execute resolves the strategy and drives the scraping sequence:
// authenticate, fetch the balance summary, fetch recent history.
func (o *Orchestrator) execute(ctx context.Context, job *domain.Job) (map[string]any, error) {
	strat, err := o.registry.Resolve(job.TargetID)
	if err != nil {
		// Unknown target: never retried.
		return nil, domain.NewTerminalError(err)
	}

	// Each job runs against its own execution; the registered strategy is
	// shared between concurrent jobs for the target and stays untouched.
	exec := strat.NewExecution()

	if limiter := o.limiterFor(job.TargetID); limiter != nil {
		reservation := limiter.Reserve()
		if delay := reservation.Delay(); delay > 0 {
			o.metrics.RecordRateLimitHit(job.TargetID)
			o.logger.Warn("Target rate limit hit, waiting",
				slog.String("job_id", job.ID),
				slog.String("target_id", job.TargetID),
				slog.Duration("delay", delay),
			)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				reservation.Cancel()
				return nil, ctx.Err()
			}
		}
	}

	endpoint, hasProxy := o.proxies.Next()
	if hasProxy {
		o.metrics.RecordProxyUsage(endpoint.ID())
		if aware, ok := exec.(strategy.ProxyAware); ok {
			aware.UseProxy(o.proxies.URL(endpoint))
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, o.cfg.JobTimeout)
	defer cancel()

	credentials := credentialFields(job.Payload)

	if err := exec.Authenticate(execCtx, credentials); err != nil {
		o.noteProxyFailure(hasProxy, endpoint)
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	o.setProgress(job, 30)

	balance, err := exec.FetchSummary(execCtx)
	if err != nil {
		o.noteProxyFailure(hasProxy, endpoint)
		return nil, fmt.Errorf("failed to fetch summary: %w", err)
	}
	o.setProgress(job, 60)

	end := time.Now()
	history, err := exec.FetchHistory(execCtx, end.Add(-historyWindow), end)
	if err != nil {
		o.noteProxyFailure(hasProxy, endpoint)
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	o.setProgress(job, 90)

	return map[string]any{
		"target_id":    job.TargetID,
		"balance":      balance,
		"transactions": history,
		"fetched_at":   end.UTC().Format(time.RFC3339),
	}, nil
}

// handleSuccess finalizes a successful job: the record is removed (the
// archive keeps the durable copy) and the completed counter advances.
func (o *Orchestrator) handleSuccess(job *domain.Job, result map[string]any) {
	o.mu.Lock()
	delete(o.cancels, job.ID)
	job.Attempts++
	job.State = domain.StateCompleted
	job.Progress = 100
	job.Result = result
	job.UpdatedAt = time.Now()
	o.completed++
	delete(o.jobs, job.ID)
	o.mu.Unlock()

	o.saveOutcome(job)
}

// handleFailure decides retry versus terminal failure. Terminally failed
// jobs are retained for inspection, never silently dropped.
func (o *Orchestrator) handleFailure(job *domain.Job, execErr error) {
	o.mu.Lock()
	delete(o.cancels, job.ID)

	job.Attempts++
	job.UpdatedAt = time.Now()

	canceled := errors.Is(execErr, context.Canceled)
	retryable := !domain.IsTerminal(execErr) && !canceled

	if retryable && job.Attempts < job.MaxAttempts {
		delay := job.Backoff.Next(job.Attempts)
		job.State = domain.StateDelayed
		o.timers[job.ID] = time.AfterFunc(delay, func() {
			o.promote(job.ID)
		})
		o.mu.Unlock()

		o.logger.Warn("Job execution failed, retrying",
			slog.String("job_id", job.ID),
			slog.String("target_id", job.TargetID),
			slog.Int("attempt", job.Attempts),
			slog.Int("max_attempts", job.MaxAttempts),
			slog.Duration("retry_in", delay),
			slog.Any("error", execErr),
		)
		return
	}

	job.State = domain.StateFailed
	if canceled {
		job.FailReason = domain.ErrJobCanceled.Error()
	} else {
		job.FailReason = execErr.Error()
	}
	o.mu.Unlock()

	o.logger.Error("Job failed terminally",
		slog.String("job_id", job.ID),
		slog.String("target_id", job.TargetID),
		slog.Int("attempts", job.Attempts),
		slog.String("reason", job.FailReason),
	)

	o.saveOutcome(job)
}

// saveOutcome forwards a terminal outcome to the archive when configured
func (o *Orchestrator) saveOutcome(job *domain.Job) {
	if o.archive == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := o.archive.SaveOutcome(ctx, job); err != nil {
		o.logger.Error("Failed to archive job outcome",
			slog.String("job_id", job.ID),
			slog.Any("error", err),
		)
	}
}

func (o *Orchestrator) setProgress(job *domain.Job, progress int) {
	o.mu.Lock()
	job.Progress = progress
	o.mu.Unlock()
}

func (o *Orchestrator) noteProxyFailure(hasProxy bool, endpoint proxy.Endpoint) {
	if !hasProxy {
		return
	}
	o.proxies.MarkFailed(endpoint)
	o.metrics.RecordProxyFailure(endpoint.ID())
}

// credentialFields extracts the string-valued payload entries used as
// strategy credentials.
func credentialFields(payload map[string]any) map[string]string {
	credentials := make(map[string]string, len(payload))
	for key, value := range payload {
		if s, ok := value.(string); ok {
			credentials[key] = s
		}
	}
	return credentials
}
