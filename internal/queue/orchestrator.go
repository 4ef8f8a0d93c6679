package queue

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/finpoint/bankscrape/internal/config"
	"github.com/finpoint/bankscrape/internal/metrics"
	"github.com/finpoint/bankscrape/internal/proxy"
	"github.com/finpoint/bankscrape/internal/queue/domain"
	"github.com/finpoint/bankscrape/internal/strategy"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Archive persists terminal job outcomes for operator inspection. May be
// backed by PostgreSQL or absent entirely.
type Archive interface {
	SaveOutcome(ctx context.Context, job *domain.Job) error
}

// Options control scheduling of a submitted job; zero values take the
// configured defaults.
type Options struct {
	Priority     domain.Priority
	MaxAttempts  int
	Backoff      *domain.Backoff
	InitialDelay time.Duration
}

// StatusView is the externally visible state of a job
type StatusView struct {
	State      string         `json:"state"`
	Progress   int            `json:"progress"`
	Result     map[string]any `json:"result,omitempty"`
	FailReason string         `json:"fail_reason,omitempty"`
}

// Counts holds the number of jobs per state
type Counts struct {
	Waiting   int   `json:"waiting"`
	Active    int   `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int   `json:"failed"`
	Delayed   int   `json:"delayed"`
}

// Orchestrator accepts scraping jobs, schedules them through a bounded
// worker pool with priority and retry semantics, and records outcomes
// into the metrics aggregator.
type Orchestrator struct {
	cfg      config.QueueConfig
	logger   *slog.Logger
	registry *strategy.Registry
	proxies  *proxy.Pool
	metrics  *metrics.Aggregator
	archive  Archive

	mu        sync.Mutex
	jobs      map[string]*domain.Job
	ready     readyHeap
	timers    map[string]*time.Timer
	cancels   map[string]context.CancelFunc
	seq       uint64
	completed int64

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter

	notify   chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewOrchestrator creates a job orchestrator. The archive may be nil.
func NewOrchestrator(
	cfg config.QueueConfig,
	registry *strategy.Registry,
	proxies *proxy.Pool,
	agg *metrics.Aggregator,
	archive Archive,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		proxies:  proxies,
		metrics:  agg,
		archive:  archive,
		jobs:     make(map[string]*domain.Job),
		timers:   make(map[string]*time.Timer),
		cancels:  make(map[string]context.CancelFunc),
		limiters: make(map[string]*rate.Limiter),
		notify:   make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}
}

// Submit enqueues a scraping job and returns its identifier
func (o *Orchestrator) Submit(targetID string, payload map[string]any, opts Options) string {
	job := &domain.Job{
		ID:          uuid.New().String(),
		TargetID:    targetID,
		Payload:     payload,
		Priority:    opts.Priority,
		MaxAttempts: opts.MaxAttempts,
		State:       domain.StateWaiting,
		SubmittedAt: time.Now(),
		UpdatedAt:   time.Now(),
	}

	if !job.Priority.Valid() {
		job.Priority = domain.PriorityMedium
	}
	if job.MaxAttempts < 1 {
		job.MaxAttempts = o.cfg.MaxAttempts
	}
	if opts.Backoff != nil && opts.Backoff.Delay > 0 {
		job.Backoff = *opts.Backoff
	} else {
		job.Backoff = domain.Backoff{Type: o.cfg.BackoffType, Delay: o.cfg.BackoffDelay}
	}

	o.mu.Lock()
	o.jobs[job.ID] = job

	if opts.InitialDelay > 0 {
		job.State = domain.StateDelayed
		o.timers[job.ID] = time.AfterFunc(opts.InitialDelay, func() {
			o.promote(job.ID)
		})
	} else {
		o.pushReadyLocked(job)
	}
	o.mu.Unlock()

	o.signal()

	o.logger.Info("Added scraping job",
		slog.String("job_id", job.ID),
		slog.String("target_id", targetID),
		slog.String("priority", string(job.Priority)),
		slog.Int("max_attempts", job.MaxAttempts),
	)

	return job.ID
}

// Status returns the externally visible state of a job. Completed jobs are
// removed on success, so they report unknown.
func (o *Orchestrator) Status(jobID string) StatusView {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, ok := o.jobs[jobID]
	if !ok {
		return StatusView{State: domain.StateUnknown}
	}

	view := StatusView{
		State:      job.State,
		Progress:   job.Progress,
		FailReason: job.FailReason,
	}
	if job.Result != nil {
		view.Result = job.Result
	}
	return view
}

// Cancel removes a waiting or delayed job before a worker claims it. An
// active job is canceled cooperatively: its context is canceled but the
// in-flight call is not forcibly interrupted. Returns false for unknown
// jobs.
func (o *Orchestrator) Cancel(jobID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, ok := o.jobs[jobID]
	if !ok {
		return false
	}

	switch job.State {
	case domain.StateActive:
		if cancel, ok := o.cancels[jobID]; ok {
			cancel()
		}
		o.logger.Info("Canceling active job cooperatively",
			slog.String("job_id", jobID),
		)
		return true
	case domain.StateDelayed:
		if timer, ok := o.timers[jobID]; ok {
			timer.Stop()
			delete(o.timers, jobID)
		}
	}

	// Waiting entries in the ready heap are invalidated lazily: the
	// dequeue path drops ids no longer present in the job table.
	delete(o.jobs, jobID)

	o.logger.Info("Removed job",
		slog.String("job_id", jobID),
	)
	return true
}

// QueueMetrics returns current job counts by state
func (o *Orchestrator) QueueMetrics() Counts {
	o.mu.Lock()
	defer o.mu.Unlock()

	counts := Counts{Completed: o.completed}
	for _, job := range o.jobs {
		switch job.State {
		case domain.StateWaiting:
			counts.Waiting++
		case domain.StateActive:
			counts.Active++
		case domain.StateFailed:
			counts.Failed++
		case domain.StateDelayed:
			counts.Delayed++
		}
	}
	return counts
}

// pushReadyLocked adds a job to the ready heap. Caller holds o.mu.
func (o *Orchestrator) pushReadyLocked(job *domain.Job) {
	o.seq++
	heap.Push(&o.ready, readyItem{
		jobID:  job.ID,
		weight: job.Priority.Weight(),
		seq:    o.seq,
	})
}

// promote moves a delayed job back into the waiting state when its delay
// or backoff interval elapses.
func (o *Orchestrator) promote(jobID string) {
	o.mu.Lock()
	job, ok := o.jobs[jobID]
	if !ok || job.State != domain.StateDelayed {
		o.mu.Unlock()
		return
	}

	delete(o.timers, jobID)
	job.State = domain.StateWaiting
	job.UpdatedAt = time.Now()
	o.pushReadyLocked(job)
	o.mu.Unlock()

	o.signal()
}

// signal wakes one idle worker. The buffered channel coalesces signals;
// workers re-signal while ready jobs remain.
func (o *Orchestrator) signal() {
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// popReady claims the highest-priority ready job for a worker. Returns nil
// when no valid entry is available. Caller holds o.mu.
func (o *Orchestrator) popReadyLocked() *domain.Job {
	for o.ready.Len() > 0 {
		item := heap.Pop(&o.ready).(readyItem)

		job, ok := o.jobs[item.jobID]
		if !ok || job.State != domain.StateWaiting {
			// Stale entry left behind by a cancel or requeue.
			continue
		}
		return job
	}
	return nil
}

// limiterFor returns the per-target rate limiter, or nil when rate
// limiting is disabled.
func (o *Orchestrator) limiterFor(targetID string) *rate.Limiter {
	if o.cfg.TargetRatePerSec <= 0 {
		return nil
	}

	o.limiterMu.Lock()
	defer o.limiterMu.Unlock()

	limiter, ok := o.limiters[targetID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(o.cfg.TargetRatePerSec), o.cfg.TargetBurst)
		o.limiters[targetID] = limiter
	}
	return limiter
}
