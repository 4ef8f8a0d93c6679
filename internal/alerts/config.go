package alerts

// Config controls alert dispatch
type Config struct {
	Enabled    bool             `json:"enabled"`
	Channels   ChannelsConfig   `json:"channels"`
	Thresholds ThresholdsConfig `json:"thresholds"`
}

// ChannelsConfig holds per-channel enable flags
type ChannelsConfig struct {
	Email bool `json:"email"`
	Slack bool `json:"slack"`
	SMS   bool `json:"sms"`
}

// ThresholdsConfig holds alerting threshold values
type ThresholdsConfig struct {
	ErrorRate      float64 `json:"error_rate"`
	ResponseTimeMs float64 `json:"response_time_ms"`
}

// ConfigUpdate is a partial config; nil fields leave the current value
// untouched. Channel and threshold objects are merged, not replaced.
type ConfigUpdate struct {
	Enabled  *bool `json:"enabled"`
	Channels struct {
		Email *bool `json:"email"`
		Slack *bool `json:"slack"`
		SMS   *bool `json:"sms"`
	} `json:"channels"`
	Thresholds struct {
		ErrorRate      *float64 `json:"error_rate"`
		ResponseTimeMs *float64 `json:"response_time_ms"`
	} `json:"thresholds"`
}

// merge applies the update onto a copy of the config
func (c Config) merge(u ConfigUpdate) Config {
	if u.Enabled != nil {
		c.Enabled = *u.Enabled
	}
	if u.Channels.Email != nil {
		c.Channels.Email = *u.Channels.Email
	}
	if u.Channels.Slack != nil {
		c.Channels.Slack = *u.Channels.Slack
	}
	if u.Channels.SMS != nil {
		c.Channels.SMS = *u.Channels.SMS
	}
	if u.Thresholds.ErrorRate != nil {
		c.Thresholds.ErrorRate = *u.Thresholds.ErrorRate
	}
	if u.Thresholds.ResponseTimeMs != nil {
		c.Thresholds.ResponseTimeMs = *u.Thresholds.ResponseTimeMs
	}
	return c
}

// channelEnabled reports whether a named channel may deliver under this
// config. Channels outside the three built-in flags are enabled by being
// registered at all.
func (c Config) channelEnabled(name string) bool {
	switch name {
	case "email":
		return c.Channels.Email
	case "slack":
		return c.Channels.Slack
	case "sms":
		return c.Channels.SMS
	default:
		return true
	}
}
