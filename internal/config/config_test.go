package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "10.0.0.1,10.0.0.2", cfg.Proxy.Hosts)
				assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
				assert.Equal(t, 4, cfg.Queue.Concurrency)
				assert.Equal(t, "exponential", cfg.Queue.BackoffType)
				assert.Equal(t, time.Minute, cfg.Health.Interval)
				assert.True(t, cfg.Alerts.Enabled)
				assert.Equal(t, "bankscrape", cfg.App.Name)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	// An almost-empty file gets the documented defaults.
	cfg, err := Load("testdata/minimal.yaml")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 5*time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, 4, cfg.Queue.Concurrency)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.Equal(t, "exponential", cfg.Queue.BackoffType)
	assert.Equal(t, time.Second, cfg.Queue.BackoffDelay)
	assert.Equal(t, 2*time.Minute, cfg.Queue.JobTimeout)
	assert.Equal(t, time.Minute, cfg.Health.Interval)
	assert.Equal(t, 0.1, cfg.Alerts.ErrorRateThreshold)
	assert.Equal(t, float64(5000), cfg.Alerts.ResponseTimeThreshold)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PROXY_HOSTS", "192.168.0.1")
	t.Setenv("PROXY_PORTS", "9000")
	t.Setenv("ALERTS_ENABLED", "false")
	t.Setenv("ALERTS_SLACK_ENABLED", "true")

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "192.168.0.1", cfg.Proxy.Hosts)
	assert.Equal(t, "9000", cfg.Proxy.Ports)
	assert.False(t, cfg.Alerts.Enabled)
	assert.True(t, cfg.Alerts.Slack)
	// Untouched env keys keep file values.
	assert.True(t, cfg.Alerts.Email)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{
			Server: ServerConfig{Port: 8080},
			Queue: QueueConfig{
				Concurrency: 4,
				BackoffType: "exponential",
			},
		}
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "zero concurrency",
			mutate:    func(c *Config) { c.Queue.Concurrency = 0 },
			wantErr:   true,
			errString: "queue concurrency",
		},
		{
			name:      "bogus backoff type",
			mutate:    func(c *Config) { c.Queue.BackoffType = "linear" },
			wantErr:   true,
			errString: "invalid backoff type",
		},
		{
			name: "archive enabled without host",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.Archive.Port = 5432
				c.Archive.Database = "scrapes"
			},
			wantErr:   true,
			errString: "archive host is required",
		},
		{
			name: "alert bus enabled without exchange",
			mutate: func(c *Config) {
				c.AlertBus.Enabled = true
				c.AlertBus.Host = "localhost"
				c.AlertBus.Port = 5672
			},
			wantErr:   true,
			errString: "alert bus exchange name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
