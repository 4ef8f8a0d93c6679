package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Proxy    ProxyConfig    `yaml:"proxy"`
	Session  SessionConfig  `yaml:"session"`
	Queue    QueueConfig    `yaml:"queue"`
	Health   HealthConfig   `yaml:"health"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Archive  ArchiveConfig  `yaml:"archive"`
	AlertBus AlertBusConfig `yaml:"alert_bus"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProxyConfig holds the rotating proxy list. Each field is a comma-delimited
// list; entries are matched by position (PROXY_HOSTS et al. override these).
type ProxyConfig struct {
	Hosts     string `yaml:"hosts"`
	Ports     string `yaml:"ports"`
	Usernames string `yaml:"usernames"`
	Passwords string `yaml:"passwords"`
}

// SessionConfig holds authenticated session lifecycle settings
type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// QueueConfig holds job orchestrator settings
type QueueConfig struct {
	Concurrency      int           `yaml:"concurrency"`
	MaxAttempts      int           `yaml:"max_attempts"`
	BackoffType      string        `yaml:"backoff_type"`
	BackoffDelay     time.Duration `yaml:"backoff_delay"`
	JobTimeout       time.Duration `yaml:"job_timeout"`
	TargetRatePerSec float64       `yaml:"target_rate_per_sec"`
	TargetBurst      int           `yaml:"target_burst"`
}

// HealthConfig holds the periodic health evaluation settings
type HealthConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// AlertsConfig holds alert dispatch settings
type AlertsConfig struct {
	Enabled               bool    `yaml:"enabled"`
	Email                 bool    `yaml:"email"`
	Slack                 bool    `yaml:"slack"`
	SMS                   bool    `yaml:"sms"`
	ErrorRateThreshold    float64 `yaml:"error_rate_threshold"`
	ResponseTimeThreshold float64 `yaml:"response_time_threshold_ms"`
}

// ArchiveConfig holds the optional PostgreSQL outcome archive settings
type ArchiveConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// AlertBusConfig holds the optional RabbitMQ alert channel settings
type AlertBusConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	User          string        `yaml:"user"`
	Password      string        `yaml:"password"`
	VHost         string        `yaml:"vhost"`
	Exchange      string        `yaml:"exchange"`
	RoutingKey    string        `yaml:"routing_key"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Load reads and parses the configuration file, applies defaults and
// environment overrides.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	config.applyEnv()

	return &config, nil
}

// applyDefaults fills in documented defaults for unset fields
func (c *Config) applyDefaults() {
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 30 * time.Minute
	}
	if c.Session.SweepInterval <= 0 {
		c.Session.SweepInterval = 5 * time.Minute
	}
	if c.Queue.Concurrency <= 0 {
		c.Queue.Concurrency = 4
	}
	if c.Queue.MaxAttempts <= 0 {
		c.Queue.MaxAttempts = 3
	}
	if c.Queue.BackoffType == "" {
		c.Queue.BackoffType = "exponential"
	}
	if c.Queue.BackoffDelay <= 0 {
		c.Queue.BackoffDelay = time.Second
	}
	if c.Queue.JobTimeout <= 0 {
		c.Queue.JobTimeout = 2 * time.Minute
	}
	if c.Queue.TargetBurst <= 0 {
		c.Queue.TargetBurst = 1
	}
	if c.Health.Interval <= 0 {
		c.Health.Interval = time.Minute
	}
	if c.Alerts.ErrorRateThreshold <= 0 {
		c.Alerts.ErrorRateThreshold = 0.1
	}
	if c.Alerts.ResponseTimeThreshold <= 0 {
		c.Alerts.ResponseTimeThreshold = 5000
	}
}

// applyEnv overrides proxy and alert settings from the environment
func (c *Config) applyEnv() {
	if v := os.Getenv("PROXY_HOSTS"); v != "" {
		c.Proxy.Hosts = v
	}
	if v := os.Getenv("PROXY_PORTS"); v != "" {
		c.Proxy.Ports = v
	}
	if v := os.Getenv("PROXY_USERNAMES"); v != "" {
		c.Proxy.Usernames = v
	}
	if v := os.Getenv("PROXY_PASSWORDS"); v != "" {
		c.Proxy.Passwords = v
	}
	if v, ok := envBool("ALERTS_ENABLED"); ok {
		c.Alerts.Enabled = v
	}
	if v, ok := envBool("ALERTS_EMAIL_ENABLED"); ok {
		c.Alerts.Email = v
	}
	if v, ok := envBool("ALERTS_SLACK_ENABLED"); ok {
		c.Alerts.Slack = v
	}
	if v, ok := envBool("ALERTS_SMS_ENABLED"); ok {
		c.Alerts.SMS = v
	}
}

func envBool(key string) (bool, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Queue.Concurrency <= 0 {
		return fmt.Errorf("queue concurrency must be greater than 0")
	}

	if c.Queue.BackoffType != "fixed" && c.Queue.BackoffType != "exponential" {
		return fmt.Errorf("invalid backoff type: %s (must be fixed or exponential)", c.Queue.BackoffType)
	}

	if c.Archive.Enabled {
		if c.Archive.Host == "" {
			return fmt.Errorf("archive host is required when archive is enabled")
		}
		if c.Archive.Port < MinPort || c.Archive.Port > MaxPort {
			return fmt.Errorf("invalid archive port: %d (must be between %d and %d)", c.Archive.Port, MinPort, MaxPort)
		}
		if c.Archive.Database == "" {
			return fmt.Errorf("archive database name is required when archive is enabled")
		}
	}

	if c.AlertBus.Enabled {
		if c.AlertBus.Host == "" {
			return fmt.Errorf("alert bus host is required when alert bus is enabled")
		}
		if c.AlertBus.Port < MinPort || c.AlertBus.Port > MaxPort {
			return fmt.Errorf("invalid alert bus port: %d (must be between %d and %d)", c.AlertBus.Port, MinPort, MaxPort)
		}
		if c.AlertBus.Exchange == "" {
			return fmt.Errorf("alert bus exchange name is required when alert bus is enabled")
		}
	}

	return nil
}
