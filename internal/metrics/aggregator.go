package metrics

import (
	"log/slog"
	"sync"
)

// Aggregator collects per-target scraping counters and duration samples,
// plus proxy usage and rate-limit counters. All values grow monotonically
// until an explicit Reset.
type Aggregator struct {
	mu sync.RWMutex

	logger *slog.Logger

	success       map[string]int64
	failure       map[string]int64
	durations     map[string][]float64
	proxyUsage    map[string]int64
	proxyFailures map[string]int64
	rateLimitHits map[string]int64
}

// NewAggregator creates an empty metrics aggregator
func NewAggregator(logger *slog.Logger) *Aggregator {
	a := &Aggregator{logger: logger}
	a.init()
	return a
}

func (a *Aggregator) init() {
	a.success = make(map[string]int64)
	a.failure = make(map[string]int64)
	a.durations = make(map[string][]float64)
	a.proxyUsage = make(map[string]int64)
	a.proxyFailures = make(map[string]int64)
	a.rateLimitHits = make(map[string]int64)
}

// RecordSuccess increments the success counter for a target
func (a *Aggregator) RecordSuccess(targetID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.success[targetID]++
}

// RecordFailure increments the failure counter for a target
func (a *Aggregator) RecordFailure(targetID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failure[targetID]++
}

// RecordDuration appends an execution duration sample in milliseconds
func (a *Aggregator) RecordDuration(targetID string, durationMs float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.durations[targetID] = append(a.durations[targetID], durationMs)
}

// RecordProxyUsage increments the usage counter for a proxy endpoint
func (a *Aggregator) RecordProxyUsage(proxyID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.proxyUsage[proxyID]++
}

// RecordProxyFailure increments the failure counter for a proxy endpoint
func (a *Aggregator) RecordProxyFailure(proxyID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.proxyFailures[proxyID]++
}

// RecordRateLimitHit increments the throttle counter for a target
func (a *Aggregator) RecordRateLimitHit(targetID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rateLimitHits[targetID]++
}

// SuccessRate returns the success percentage (0..100) for a target.
// A target with no recorded requests has a rate of 0.
func (a *Aggregator) SuccessRate(targetID string) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.successRateLocked(targetID)
}

func (a *Aggregator) successRateLocked(targetID string) float64 {
	success := a.success[targetID]
	failure := a.failure[targetID]
	total := success + failure

	if total == 0 {
		return 0
	}
	return float64(success) / float64(total) * 100
}

// MeanDuration returns the mean execution duration in milliseconds for a
// target, 0 when no samples exist.
func (a *Aggregator) MeanDuration(targetID string) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.meanDurationLocked(targetID)
}

func (a *Aggregator) meanDurationLocked(targetID string) float64 {
	samples := a.durations[targetID]
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, d := range samples {
		sum += d
	}
	return sum / float64(len(samples))
}

// Snapshot returns a full aggregate view derived from the current counters
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap := Snapshot{
		Scraping: ScrapingSnapshot{
			SuccessRates:  make(map[string]float64),
			MeanDurations: make(map[string]float64),
		},
		Proxy: ProxySnapshot{
			Usage:    make(map[string]int64, len(a.proxyUsage)),
			Failures: make(map[string]int64, len(a.proxyFailures)),
		},
		RateLimit: RateLimitSnapshot{
			Hits: make(map[string]int64, len(a.rateLimitHits)),
		},
	}

	for targetID, count := range a.success {
		snap.Scraping.TotalSuccess += count
		snap.Scraping.SuccessRates[targetID] = a.successRateLocked(targetID)
		snap.Scraping.MeanDurations[targetID] = a.meanDurationLocked(targetID)
	}

	// Targets that only ever failed still show up with a zero rate.
	for targetID, count := range a.failure {
		snap.Scraping.TotalFailure += count
		if _, seen := snap.Scraping.SuccessRates[targetID]; !seen {
			snap.Scraping.SuccessRates[targetID] = a.successRateLocked(targetID)
			snap.Scraping.MeanDurations[targetID] = a.meanDurationLocked(targetID)
		}
	}

	for proxyID, count := range a.proxyUsage {
		snap.Proxy.Usage[proxyID] = count
	}
	for proxyID, count := range a.proxyFailures {
		snap.Proxy.Failures[proxyID] = count
	}
	for targetID, count := range a.rateLimitHits {
		snap.RateLimit.Hits[targetID] = count
	}

	return snap
}

// Reset discards all recorded metrics. Administrative operation only.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.init()
	a.logger.Info("All metrics have been reset")
}
