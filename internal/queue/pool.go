package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finpoint/bankscrape/internal/queue/domain"
)

// Start spawns the worker pool. Workers run until Stop is called or the
// context is canceled.
func (o *Orchestrator) Start(ctx context.Context) {
	o.logger.Info("Spawning worker pool",
		slog.Int("concurrency", o.cfg.Concurrency),
	)

	for i := 0; i < o.cfg.Concurrency; i++ {
		o.wg.Add(1)
		go o.workerLoop(ctx, i)
	}
}

// Stop gracefully stops the worker pool, waiting for in-flight jobs
func (o *Orchestrator) Stop() {
	o.logger.Info("Stopping worker pool...")
	close(o.stopChan)
	o.wg.Wait()
	o.logger.Info("Worker pool stopped")
}

// workerLoop is the main processing loop for each worker goroutine
func (o *Orchestrator) workerLoop(ctx context.Context, workerNum int) {
	defer o.wg.Done()

	workerName := fmt.Sprintf("worker-%d", workerNum)
	o.logger.Info("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		job, jobCtx, ok := o.dequeue(ctx)
		if !ok {
			o.logger.Info("Worker goroutine stopping",
				slog.String("worker_name", workerName),
			)
			return
		}

		o.logger.Info("Worker claimed job",
			slog.String("worker_name", workerName),
			slog.String("job_id", job.ID),
			slog.String("target_id", job.TargetID),
		)

		o.process(jobCtx, job)
	}
}

// dequeue blocks until a ready job can be claimed or shutdown begins. The
// claimed job is marked active and bound to a cancelable context; at most
// one worker ever owns a given job id.
func (o *Orchestrator) dequeue(ctx context.Context) (*domain.Job, context.Context, bool) {
	for {
		o.mu.Lock()
		job := o.popReadyLocked()
		if job != nil {
			job.State = domain.StateActive
			job.Progress = 0

			jobCtx, cancel := context.WithCancel(ctx)
			o.cancels[job.ID] = cancel

			more := o.ready.Len() > 0
			o.mu.Unlock()

			// Wake another worker if work remains; the notify channel
			// holds a single coalesced signal.
			if more {
				o.signal()
			}
			return job, jobCtx, true
		}
		o.mu.Unlock()

		select {
		case <-o.stopChan:
			return nil, nil, false
		case <-ctx.Done():
			return nil, nil, false
		case <-o.notify:
		}
	}
}
