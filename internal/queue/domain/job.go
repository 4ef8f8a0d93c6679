package domain

import (
	"time"
)

// Priority is a job scheduling class
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Weight maps a priority class to its scheduling weight; lower runs first
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// Valid reports whether the priority is one of the known classes
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Job states
const (
	StateWaiting   = "waiting"
	StateActive    = "active"
	StateCompleted = "completed"
	StateFailed    = "failed"
	StateDelayed   = "delayed"
	StateUnknown   = "unknown"
)

// Backoff types
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// Backoff maps an attempt number to a retry delay
type Backoff struct {
	Type  string        `json:"type"`
	Delay time.Duration `json:"delay"`
}

// Next returns the delay before the retry following the given attempt
// (1-based). Exponential backoff doubles per attempt: delay * 2^(attempt-1).
func (b Backoff) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	if b.Type == BackoffFixed {
		return b.Delay
	}
	return b.Delay * time.Duration(1<<(attempt-1))
}

// Job is one scraping work item. A job is owned by at most one worker at a
// time; its attempt count never exceeds MaxAttempts.
type Job struct {
	ID          string         `json:"id"`
	TargetID    string         `json:"target_id"`
	Payload     map[string]any `json:"payload"`
	Priority    Priority       `json:"priority"`
	MaxAttempts int            `json:"max_attempts"`
	Backoff     Backoff        `json:"backoff"`
	Attempts    int            `json:"attempts"`
	State       string         `json:"state"`
	Progress    int            `json:"progress"`
	Result      map[string]any `json:"result,omitempty"`
	FailReason  string         `json:"fail_reason,omitempty"`
	SubmittedAt time.Time      `json:"submitted_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
