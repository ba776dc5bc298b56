package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/scadawatch/scadawatch/internal/types"
	"gopkg.in/yaml.v3"
)

const (
	// MainFile is the required configuration file.
	MainFile = "scadawatch.yaml"
	// NotificationsFile is the optional notification behavior file.
	NotificationsFile = "notifications.yaml"

	DefaultTokenEnv = "SCADAWATCH_TOKEN"
)

// LoadConfig loads configuration from the directory of a single file
func LoadConfig(path string) (*Config, error) {
	return LoadConfigDir(filepath.Dir(path))
}

// LoadConfigDir loads all configuration files from a directory
func LoadConfigDir(dir string) (*Config, error) {
	cfg := &Config{}

	if err := loadYAML(filepath.Join(dir, MainFile), cfg); err != nil {
		return nil, fmt.Errorf("loading %s: %w", MainFile, err)
	}

	// notifications.yaml (optional)
	notificationsPath := filepath.Join(dir, NotificationsFile)
	if _, err := os.Stat(notificationsPath); err == nil {
		if err := loadYAML(notificationsPath, &cfg.Notifications); err != nil {
			return nil, fmt.Errorf("loading %s: %w", NotificationsFile, err)
		}
	}

	ApplyDefaults(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadYAML loads a YAML file into a struct
func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

// ApplyDefaults fills unset fields
func ApplyDefaults(cfg *Config) {
	if cfg.Server.TokenEnv == "" {
		cfg.Server.TokenEnv = DefaultTokenEnv
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 15 * time.Second
	}
	if cfg.Polling.AlarmInterval == 0 {
		cfg.Polling.AlarmInterval = 30 * time.Second
	}
	if cfg.Polling.HistoryInterval == 0 {
		cfg.Polling.HistoryInterval = 2 * time.Minute
	}
	if cfg.Polling.CacheTTL == 0 {
		cfg.Polling.CacheTTL = 5 * time.Minute
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8088
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.BufferSize == 0 {
		cfg.Logging.BufferSize = 1000
	}
	if cfg.Notifications.Flap.Threshold > 0 && cfg.Notifications.Flap.Window == 0 {
		cfg.Notifications.Flap.Window = 10 * time.Minute
	}
	if cfg.Notifications.Fallback.Every > 0 && cfg.Notifications.Fallback.Burst == 0 {
		cfg.Notifications.Fallback.Burst = 3
	}
}

// Token returns the bearer token from the configured environment variable
func (c *Config) Token() string {
	return os.Getenv(c.Server.TokenEnv)
}

// APIEnabled reports whether the local status API should be served
func (c *Config) APIEnabled() bool {
	return c.API.Enabled == nil || *c.API.Enabled
}

// FallbackURLs returns the shoutrrr URLs of the local fallback notifier,
// including the one named by url_env when set
func (c *Config) FallbackURLs() []string {
	urls := append([]string(nil), c.Notifications.Fallback.URLs...)
	if env := c.Notifications.Fallback.URLEnv; env != "" {
		if u := os.Getenv(env); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// EscalationDelays converts the escalation map to typed severities
func (c *Config) EscalationDelays() map[types.Severity]time.Duration {
	if len(c.Notifications.Escalation) == 0 {
		return nil
	}
	delays := make(map[types.Severity]time.Duration, len(c.Notifications.Escalation))
	for sev, d := range c.Notifications.Escalation {
		delays[types.Severity(strings.ToLower(sev))] = d
	}
	return delays
}

// ValidateConfig validates the configuration
func ValidateConfig(cfg *Config) error {
	if cfg.Server.BaseURL == "" {
		return errors.New("server.base_url is required")
	}
	u, err := url.Parse(cfg.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("server.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.base_url must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("server.base_url has no host")
	}
	if cfg.Server.RequestTimeout < 0 {
		return errors.New("server.request_timeout must be positive")
	}

	if cfg.Polling.AlarmInterval < time.Second {
		return fmt.Errorf("polling.alarm_interval must be at least 1s, got %s", cfg.Polling.AlarmInterval)
	}
	if cfg.Polling.HistoryInterval < time.Second {
		return fmt.Errorf("polling.history_interval must be at least 1s, got %s", cfg.Polling.HistoryInterval)
	}
	if cfg.Polling.CacheTTL < 0 {
		return errors.New("polling.cache_ttl must be positive")
	}

	if cfg.API.Port < 1 || cfg.API.Port > 65535 {
		return fmt.Errorf("api.port must be between 1 and 65535, got %d", cfg.API.Port)
	}
	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if cfg.Logging.BufferSize < 1 {
		return errors.New("logging.buffer_size must be positive")
	}

	n := cfg.Notifications
	if n.Flap.Threshold != 0 {
		if n.Flap.Threshold < 2 {
			return fmt.Errorf("flap_detection.threshold must be 0 (disabled) or at least 2, got %d", n.Flap.Threshold)
		}
		if n.Flap.Window <= 0 {
			return errors.New("flap_detection.window must be positive")
		}
	}
	for sev, d := range n.Escalation {
		switch types.Severity(strings.ToLower(sev)) {
		case types.SeverityCritical, types.SeverityWarning, types.SeverityInfo:
		default:
			return fmt.Errorf("escalation: unknown severity %s", sev)
		}
		if d <= 0 {
			return fmt.Errorf("escalation %s: delay must be positive", sev)
		}
	}
	if n.Fallback.Every < 0 || n.Fallback.Burst < 0 {
		return errors.New("fallback: rate and burst must not be negative")
	}
	for _, raw := range n.Fallback.URLs {
		if !strings.Contains(raw, "://") {
			return fmt.Errorf("fallback: %q is not a service url", raw)
		}
	}
	// url_env is not checked here as it may be set at runtime

	return nil
}
