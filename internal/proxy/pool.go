package proxy

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/finpoint/bankscrape/internal/config"
)

// Endpoint is a single proxy in the rotation list. Immutable once loaded.
type Endpoint struct {
	Host     string
	Port     int
	Username string
	Password string
}

// ID returns a stable identifier used as the metrics key for this endpoint
func (e Endpoint) ID() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Pool rotates over a fixed-order list of proxy endpoints. The cursor
// advances with an atomic fetch-and-increment so concurrent callers never
// observe the same index before it has been passed.
type Pool struct {
	endpoints []Endpoint
	cursor    atomic.Uint64
	logger    *slog.Logger
}

// NewPool creates a pool over the given endpoints
func NewPool(endpoints []Endpoint, logger *slog.Logger) *Pool {
	return &Pool{
		endpoints: endpoints,
		logger:    logger,
	}
}

// FromConfig builds a pool from the comma-delimited configuration lists.
// Entries are matched by position; a missing or malformed port falls back
// to 80. An empty host list yields an empty pool, not an error.
func FromConfig(cfg config.ProxyConfig, logger *slog.Logger) *Pool {
	if strings.TrimSpace(cfg.Hosts) == "" {
		logger.Warn("No proxies configured")
		return NewPool(nil, logger)
	}

	hosts := strings.Split(cfg.Hosts, ",")
	ports := strings.Split(cfg.Ports, ",")
	usernames := splitOptional(cfg.Usernames)
	passwords := splitOptional(cfg.Passwords)

	endpoints := make([]Endpoint, 0, len(hosts))
	for i, host := range hosts {
		ep := Endpoint{
			Host: strings.TrimSpace(host),
			Port: 80,
		}
		if ep.Host == "" {
			continue
		}

		if i < len(ports) {
			if port, err := strconv.Atoi(strings.TrimSpace(ports[i])); err == nil && port > 0 {
				ep.Port = port
			}
		}
		if i < len(usernames) {
			ep.Username = strings.TrimSpace(usernames[i])
		}
		if i < len(passwords) {
			ep.Password = strings.TrimSpace(passwords[i])
		}

		endpoints = append(endpoints, ep)
	}

	logger.Info("Initialized proxy pool",
		slog.Int("proxies", len(endpoints)),
	)

	return NewPool(endpoints, logger)
}

func splitOptional(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Next returns the next endpoint in rotation. The second return value is
// false when the pool is empty; callers then proceed without a proxy.
func (p *Pool) Next() (Endpoint, bool) {
	if len(p.endpoints) == 0 {
		return Endpoint{}, false
	}

	idx := p.cursor.Add(1) - 1
	return p.endpoints[idx%uint64(len(p.endpoints))], true
}

// URL formats the endpoint as a proxy connection string, embedding
// credentials when both are present.
func (p *Pool) URL(ep Endpoint) string {
	if ep.Username != "" && ep.Password != "" {
		return fmt.Sprintf("http://%s:%s@%s:%d", ep.Username, ep.Password, ep.Host, ep.Port)
	}
	return fmt.Sprintf("http://%s:%d", ep.Host, ep.Port)
}

// MarkFailed records a failure signal for the endpoint. The endpoint stays
// in rotation; eviction policy is left to the caller.
func (p *Pool) MarkFailed(ep Endpoint) {
	p.logger.Warn("Proxy marked as failed",
		slog.String("proxy", ep.ID()),
	)
}

// Count returns the number of endpoints in the rotation list
func (p *Pool) Count() int {
	return len(p.endpoints)
}

// Endpoints returns a copy of the rotation list
func (p *Pool) Endpoints() []Endpoint {
	out := make([]Endpoint, len(p.endpoints))
	copy(out, p.endpoints)
	return out
}
