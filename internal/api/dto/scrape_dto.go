package dto

// BackoffDTO overrides the retry backoff schedule for one job
type BackoffDTO struct {
	Type    string `json:"type"`
	DelayMs int64  `json:"delay_ms"`
}

// SubmitScrapeRequest is the body of POST /api/v1/scrape
type SubmitScrapeRequest struct {
	TargetID       string            `json:"target_id" binding:"required"`
	Credentials    map[string]string `json:"credentials"`
	Priority       string            `json:"priority"`
	MaxAttempts    int               `json:"max_attempts"`
	Backoff        *BackoffDTO       `json:"backoff"`
	InitialDelayMs int64             `json:"initial_delay_ms"`
}

// SubmitScrapeResponse acknowledges an accepted scraping job
type SubmitScrapeResponse struct {
	JobID    string `json:"job_id"`
	TargetID string `json:"target_id"`
	Priority string `json:"priority"`
	State    string `json:"state"`
}

// CreateSessionRequest is the body of POST /api/v1/sessions
type CreateSessionRequest struct {
	TargetID  string            `json:"target_id" binding:"required"`
	SubjectID string            `json:"subject_id" binding:"required"`
	Cookies   map[string]string `json:"cookies"`
	Headers   map[string]string `json:"headers"`
	UserAgent string            `json:"user_agent"`
}

// UpdateSessionRequest is the body of PUT /api/v1/sessions/current
type UpdateSessionRequest struct {
	Cookies   map[string]string `json:"cookies"`
	Headers   map[string]string `json:"headers"`
	UserAgent string            `json:"user_agent"`
}

// ExtendSessionRequest is the body of POST /api/v1/sessions/current/extend
type ExtendSessionRequest struct {
	Minutes int `json:"minutes"`
}

// ListOutcomesRequest filters GET /api/v1/outcomes
type ListOutcomesRequest struct {
	TargetID string `form:"target_id"`
	State    string `form:"state"`
	Limit    int    `form:"limit"`
}
