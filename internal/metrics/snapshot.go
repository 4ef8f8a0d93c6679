package metrics

// Snapshot is a point-in-time aggregate view of all recorded metrics
type Snapshot struct {
	Scraping  ScrapingSnapshot  `json:"scraping"`
	Proxy     ProxySnapshot     `json:"proxy"`
	RateLimit RateLimitSnapshot `json:"rate_limit"`
}

// ScrapingSnapshot holds per-target derived rates and global totals
type ScrapingSnapshot struct {
	SuccessRates  map[string]float64 `json:"success_rates"`
	MeanDurations map[string]float64 `json:"mean_durations"`
	TotalSuccess  int64              `json:"total_success"`
	TotalFailure  int64              `json:"total_failure"`
}

// ProxySnapshot holds per-endpoint usage and failure counters
type ProxySnapshot struct {
	Usage    map[string]int64 `json:"usage"`
	Failures map[string]int64 `json:"failures"`
}

// RateLimitSnapshot holds per-target throttle counters
type RateLimitSnapshot struct {
	Hits map[string]int64 `json:"hits"`
}
