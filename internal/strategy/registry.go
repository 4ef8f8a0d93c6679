package strategy

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNotFound is returned when no strategy is registered for a target
var ErrNotFound = errors.New("no scraping strategy found for target")

// Registry maps target identifiers to their scraping strategies. Lookup
// only; execution is the orchestrator's concern.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	order      []string
	logger     *slog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
		logger:     logger,
	}
}

// Register binds a strategy to a target identifier. Re-registering a target
// replaces the strategy without changing its position in the target list.
func (r *Registry) Register(targetID string, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[targetID]; !exists {
		r.order = append(r.order, targetID)
	}
	r.strategies[targetID] = s

	r.logger.Info("Registered scraping strategy",
		slog.String("target_id", targetID),
	)
}

// Resolve returns the strategy for a target, or ErrNotFound
func (r *Registry) Resolve(targetID string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[targetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, targetID)
	}
	return s, nil
}

// Has reports whether a strategy is registered for the target
func (r *Registry) Has(targetID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.strategies[targetID]
	return ok
}

// Targets returns the registered target identifiers in registration order
func (r *Registry) Targets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
