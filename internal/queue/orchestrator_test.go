package queue

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finpoint/bankscrape/internal/config"
	"github.com/finpoint/bankscrape/internal/metrics"
	"github.com/finpoint/bankscrape/internal/proxy"
	"github.com/finpoint/bankscrape/internal/queue/domain"
	"github.com/finpoint/bankscrape/internal/strategy"
)

const (
	waitTimeout = 3 * time.Second
	waitTick    = 5 * time.Millisecond
)

// recordingArchive captures terminal outcomes for assertions
type recordingArchive struct {
	mu   sync.Mutex
	jobs []domain.Job
}

func (a *recordingArchive) SaveOutcome(_ context.Context, job *domain.Job) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.jobs = append(a.jobs, *job)
	return nil
}

func (a *recordingArchive) byID(jobID string) (domain.Job, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, job := range a.jobs {
		if job.ID == jobID {
			return job, true
		}
	}
	return domain.Job{}, false
}

func testQueueConfig() config.QueueConfig {
	return config.QueueConfig{
		Concurrency:  2,
		MaxAttempts:  3,
		BackoffType:  domain.BackoffFixed,
		BackoffDelay: time.Millisecond,
		JobTimeout:   time.Second,
		TargetBurst:  1,
	}
}

func newTestOrchestrator(cfg config.QueueConfig, reg *strategy.Registry, arc Archive) *Orchestrator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrchestrator(
		cfg,
		reg,
		proxy.NewPool(nil, logger),
		metrics.NewAggregator(logger),
		arc,
		logger,
	)
}

func newTestRegistry(mocks ...*strategy.Mock) *strategy.Registry {
	reg := strategy.NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, m := range mocks {
		m.StepDelay = 0
		reg.Register(m.TargetID, m)
	}
	return reg
}

func TestSubmitAndComplete(t *testing.T) {
	arc := &recordingArchive{}
	orch := newTestOrchestrator(testQueueConfig(), newTestRegistry(strategy.NewMockBank("kb")), arc)

	orch.Start(context.Background())
	defer orch.Stop()

	jobID := orch.Submit("kb", map[string]any{"username": "alice"}, Options{})
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		return orch.QueueMetrics().Completed == 1
	}, waitTimeout, waitTick)

	// Completed jobs are removed from the live table.
	assert.Equal(t, domain.StateUnknown, orch.Status(jobID).State)

	saved, ok := arc.byID(jobID)
	require.True(t, ok)
	assert.Equal(t, domain.StateCompleted, saved.State)
	assert.Equal(t, 100, saved.Progress)
	require.NotNil(t, saved.Result)
	assert.Equal(t, "kb", saved.Result["target_id"])
	assert.InDelta(t, 1_234_567.89, saved.Result["balance"], 0.001)
}

func TestConcurrentJobsSameTarget(t *testing.T) {
	// Two workers execute jobs for the same target at the same time; each
	// run gets its own execution, so neither sees the other's login state.
	overlapping := strategy.NewMockBank("kb")
	overlapping.RequireUser = "alice"

	arc := &recordingArchive{}
	orch := newTestOrchestrator(testQueueConfig(), newTestRegistry(overlapping), arc)
	overlapping.StepDelay = 20 * time.Millisecond

	orch.Start(context.Background())
	defer orch.Stop()

	first := orch.Submit("kb", map[string]any{"username": "alice"}, Options{})
	second := orch.Submit("kb", map[string]any{"username": "alice"}, Options{})

	require.Eventually(t, func() bool {
		return orch.QueueMetrics().Completed == 2
	}, waitTimeout, waitTick)

	for _, jobID := range []string{first, second} {
		saved, ok := arc.byID(jobID)
		require.True(t, ok)
		assert.Equal(t, domain.StateCompleted, saved.State)
		assert.Equal(t, 1, saved.Attempts)
	}
}

func TestRetryUntilAttemptsExhausted(t *testing.T) {
	failing := strategy.NewMockBank("shinhan")
	failing.RequireUser = "admin"

	arc := &recordingArchive{}
	orch := newTestOrchestrator(testQueueConfig(), newTestRegistry(failing), arc)

	orch.Start(context.Background())
	defer orch.Stop()

	jobID := orch.Submit("shinhan", map[string]any{"username": "intruder"}, Options{})

	require.Eventually(t, func() bool {
		return orch.Status(jobID).State == domain.StateFailed
	}, waitTimeout, waitTick)

	view := orch.Status(jobID)
	assert.Contains(t, view.FailReason, "authentication failed")

	saved, ok := arc.byID(jobID)
	require.True(t, ok)
	assert.Equal(t, 3, saved.Attempts)
	assert.Equal(t, domain.StateFailed, saved.State)

	// Failed jobs are retained for inspection.
	counts := orch.QueueMetrics()
	assert.Equal(t, 1, counts.Failed)
	assert.Equal(t, int64(0), counts.Completed)
}

func TestUnknownTargetFailsWithoutRetry(t *testing.T) {
	arc := &recordingArchive{}
	orch := newTestOrchestrator(testQueueConfig(), newTestRegistry(), arc)

	orch.Start(context.Background())
	defer orch.Stop()

	jobID := orch.Submit("nonexistent-bank", nil, Options{})

	require.Eventually(t, func() bool {
		return orch.Status(jobID).State == domain.StateFailed
	}, waitTimeout, waitTick)

	assert.Contains(t, orch.Status(jobID).FailReason, "no scraping strategy found")

	saved, ok := arc.byID(jobID)
	require.True(t, ok)
	assert.Equal(t, 1, saved.Attempts)
}

func TestStatusUnknownJob(t *testing.T) {
	orch := newTestOrchestrator(testQueueConfig(), newTestRegistry(), nil)

	view := orch.Status("no-such-id")
	assert.Equal(t, domain.StateUnknown, view.State)
	assert.Zero(t, view.Progress)
}

func TestCancelWaitingJob(t *testing.T) {
	// No workers started, so the job stays waiting.
	orch := newTestOrchestrator(testQueueConfig(), newTestRegistry(strategy.NewMockBank("kb")), nil)

	jobID := orch.Submit("kb", nil, Options{})
	require.Equal(t, domain.StateWaiting, orch.Status(jobID).State)

	assert.True(t, orch.Cancel(jobID))
	assert.Equal(t, domain.StateUnknown, orch.Status(jobID).State)

	// Already removed.
	assert.False(t, orch.Cancel(jobID))
}

func TestCancelDelayedJob(t *testing.T) {
	orch := newTestOrchestrator(testQueueConfig(), newTestRegistry(strategy.NewMockBank("kb")), nil)

	jobID := orch.Submit("kb", nil, Options{InitialDelay: time.Hour})
	require.Equal(t, domain.StateDelayed, orch.Status(jobID).State)

	assert.True(t, orch.Cancel(jobID))
	assert.Equal(t, domain.StateUnknown, orch.Status(jobID).State)
}

func TestCancelActiveJob(t *testing.T) {
	slow := strategy.NewMockBank("kb")

	cfg := testQueueConfig()
	cfg.Concurrency = 1

	arc := &recordingArchive{}
	orch := newTestOrchestrator(cfg, newTestRegistry(slow), arc)
	slow.StepDelay = 200 * time.Millisecond

	orch.Start(context.Background())
	defer orch.Stop()

	jobID := orch.Submit("kb", nil, Options{})

	require.Eventually(t, func() bool {
		return orch.Status(jobID).State == domain.StateActive
	}, waitTimeout, waitTick)

	require.True(t, orch.Cancel(jobID))

	// Cooperative cancellation: the job fails once the in-flight step
	// observes the canceled context, and is never retried.
	require.Eventually(t, func() bool {
		return orch.Status(jobID).State == domain.StateFailed
	}, waitTimeout, waitTick)

	assert.Equal(t, domain.ErrJobCanceled.Error(), orch.Status(jobID).FailReason)

	saved, ok := arc.byID(jobID)
	require.True(t, ok)
	assert.Equal(t, 1, saved.Attempts)
}

func TestInitialDelayPromotesToWaiting(t *testing.T) {
	orch := newTestOrchestrator(testQueueConfig(), newTestRegistry(strategy.NewMockBank("kb")), nil)

	jobID := orch.Submit("kb", nil, Options{InitialDelay: 10 * time.Millisecond})
	require.Equal(t, domain.StateDelayed, orch.Status(jobID).State)

	require.Eventually(t, func() bool {
		return orch.Status(jobID).State == domain.StateWaiting
	}, waitTimeout, waitTick)
}

func TestPriorityOrdering(t *testing.T) {
	orch := newTestOrchestrator(testQueueConfig(), newTestRegistry(strategy.NewMockBank("kb")), nil)

	low := orch.Submit("kb", nil, Options{Priority: domain.PriorityLow})
	high1 := orch.Submit("kb", nil, Options{Priority: domain.PriorityHigh})
	medium := orch.Submit("kb", nil, Options{Priority: domain.PriorityMedium})
	high2 := orch.Submit("kb", nil, Options{Priority: domain.PriorityHigh})

	// Drain the ready heap directly: higher priority first, FIFO within
	// the same priority class.
	var order []string
	orch.mu.Lock()
	for {
		job := orch.popReadyLocked()
		if job == nil {
			break
		}
		job.State = domain.StateActive
		order = append(order, job.ID)
	}
	orch.mu.Unlock()

	assert.Equal(t, []string{high1, high2, medium, low}, order)
}

func TestCanceledJobSkippedByWorkers(t *testing.T) {
	orch := newTestOrchestrator(testQueueConfig(), newTestRegistry(strategy.NewMockBank("kb")), nil)

	canceled := orch.Submit("kb", nil, Options{Priority: domain.PriorityHigh})
	kept := orch.Submit("kb", nil, Options{Priority: domain.PriorityLow})
	require.True(t, orch.Cancel(canceled))

	orch.mu.Lock()
	job := orch.popReadyLocked()
	orch.mu.Unlock()

	// The stale heap entry for the canceled job is dropped.
	require.NotNil(t, job)
	assert.Equal(t, kept, job.ID)
}

func TestQueueMetricsCounts(t *testing.T) {
	orch := newTestOrchestrator(testQueueConfig(), newTestRegistry(strategy.NewMockBank("kb")), nil)

	orch.Submit("kb", nil, Options{})
	orch.Submit("kb", nil, Options{})
	orch.Submit("kb", nil, Options{InitialDelay: time.Hour})

	counts := orch.QueueMetrics()
	assert.Equal(t, 2, counts.Waiting)
	assert.Equal(t, 1, counts.Delayed)
	assert.Equal(t, 0, counts.Active)
	assert.Equal(t, 0, counts.Failed)
	assert.Equal(t, int64(0), counts.Completed)
}

func TestSubmitAppliesDefaults(t *testing.T) {
	orch := newTestOrchestrator(testQueueConfig(), newTestRegistry(strategy.NewMockBank("kb")), nil)

	jobID := orch.Submit("kb", nil, Options{Priority: domain.Priority("bogus")})

	orch.mu.Lock()
	job := orch.jobs[jobID]
	orch.mu.Unlock()

	require.NotNil(t, job)
	assert.Equal(t, domain.PriorityMedium, job.Priority)
	assert.Equal(t, 3, job.MaxAttempts)
	assert.Equal(t, domain.BackoffFixed, job.Backoff.Type)
	assert.Equal(t, time.Millisecond, job.Backoff.Delay)
}
