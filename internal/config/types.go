package config

import "time"

// Config represents the complete scadawatch configuration
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Polling       PollingConfig      `yaml:"polling"`
	API           APIConfig          `yaml:"api"`
	Logging       LoggingConfig      `yaml:"logging"`
	Notifications NotificationConfig `yaml:"-"` // loaded from notifications.yaml
}

// ServerConfig describes the alarm backend
type ServerConfig struct {
	BaseURL        string        `yaml:"base_url"`
	TokenEnv       string        `yaml:"token_env"`
	Organization   string        `yaml:"organization,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// PollingConfig controls refetch intervals
type PollingConfig struct {
	AlarmInterval   time.Duration `yaml:"alarm_interval"`
	HistoryInterval time.Duration `yaml:"history_interval"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
}

// APIConfig controls the local status API
type APIConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
	Port    int   `yaml:"port"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level      string `yaml:"level"`
	BufferSize int    `yaml:"buffer_size"`
}

// NotificationConfig defines local fallback and alert behavior
type NotificationConfig struct {
	Fallback   FallbackConfig           `yaml:"fallback"`
	Flap       FlapConfig               `yaml:"flap_detection"`
	Escalation map[string]time.Duration `yaml:"escalation,omitempty"` // severity -> delay
}

// FallbackConfig defines the local notification used when the backend
// cannot be reached
type FallbackConfig struct {
	URLs   []string      `yaml:"urls,omitempty"` // shoutrrr service URLs
	URLEnv string        `yaml:"url_env,omitempty"`
	Every  time.Duration `yaml:"rate,omitempty"`
	Burst  int           `yaml:"burst,omitempty"`
}

// FlapConfig defines flap suppression; a zero threshold disables it
type FlapConfig struct {
	Threshold int           `yaml:"threshold"`
	Window    time.Duration `yaml:"window"`
}
