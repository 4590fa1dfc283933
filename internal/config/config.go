// Package config loads wsreap settings from defaults, an optional YAML file,
// a .env file, the environment and command-line flags, in rising precedence.
package config

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/yairfalse/wsreap/internal/backoff"
	"github.com/yairfalse/wsreap/lifecycle"
)

// Config is the root configuration structure.
type Config struct {
	WarnDays           int    `mapstructure:"warn_days"`
	CutoffDays         int    `mapstructure:"cutoff_days"`
	NeverUsedGraceDays int    `mapstructure:"never_used_grace_days"`
	DomainName         string `mapstructure:"domain_name"`
	SourceEmail        string `mapstructure:"source_email"`
	AdminEmail         string `mapstructure:"admin_email"`
	Region             string `mapstructure:"region"`
	Workers            int    `mapstructure:"workers"`
	DryRun             bool   `mapstructure:"dry_run"`

	Retry     RetryConfig     `mapstructure:"retry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Daemon    DaemonConfig    `mapstructure:"daemon"`
	Log       LogConfig       `mapstructure:"log"`
	OTEL      OTELConfig      `mapstructure:"otel"`
}

// RetryConfig holds the throttling retry policy.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
}

// RateLimitConfig holds the API call budget shared by all workers.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// DaemonConfig holds long-running mode settings.
type DaemonConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	CycleTimeout time.Duration `mapstructure:"cycle_timeout"`
	MetricsAddr  string        `mapstructure:"metrics_addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OTELConfig holds OpenTelemetry settings. An empty endpoint disables OTLP
// export; Prometheus metrics stay on.
type OTELConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	Insecure    bool   `mapstructure:"insecure"`
	ServiceName string `mapstructure:"service_name"`
}

// key binds a config key to its default and environment variables. The
// first variable set wins.
type key struct {
	name string
	def  any
	env  []string
}

var keys = []key{
	{"warn_days", 85, []string{"WARN_DAYS"}},
	{"cutoff_days", 90, []string{"CUTOFF_DAYS"}},
	{"never_used_grace_days", 14, []string{"NEVER_USED_GRACE_DAYS", "TWO_WEEKS_DAYS"}},
	{"domain_name", "example.com", []string{"DOMAIN_NAME"}},
	{"source_email", "no-reply@example.com", []string{"SES_SOURCE_EMAIL"}},
	{"admin_email", "admin@example.com", []string{"SES_ADMIN_EMAIL"}},
	{"region", "us-east-1", []string{"AWS_REGION"}},
	{"workers", 1, []string{"WORKERS"}},
	{"dry_run", false, []string{"DRY_RUN"}},
	{"retry.max_attempts", 5, []string{"RETRY_MAX_ATTEMPTS"}},
	{"retry.initial_delay", "1s", []string{"RETRY_INITIAL_DELAY"}},
	{"rate_limit.rps", 5.0, []string{"API_RATE_LIMIT"}},
	{"rate_limit.burst", 5, []string{"API_BURST"}},
	{"daemon.interval", "24h", []string{"CYCLE_INTERVAL"}},
	{"daemon.cycle_timeout", "14m", []string{"CYCLE_TIMEOUT"}},
	{"daemon.metrics_addr", ":9090", []string{"METRICS_ADDR"}},
	{"log.level", "info", []string{"LOG_LEVEL"}},
	{"log.format", "json", []string{"LOG_FORMAT"}},
	{"otel.endpoint", "", []string{"OTEL_EXPORTER_OTLP_ENDPOINT"}},
	{"otel.insecure", false, []string{"OTEL_INSECURE"}},
	{"otel.service_name", "wsreap", []string{"OTEL_SERVICE_NAME"}},
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"dry-run":    "dry_run",
	"log-level":  "log.level",
	"log-format": "log.format",
	"workers":    "workers",
	"region":     "region",
}

// Load reads configuration once. path may be empty. flags may be nil; only
// flags the user actually set override lower sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	for _, k := range keys {
		v.SetDefault(k.name, k.def)
		if err := v.BindEnv(append([]string{k.name}, k.env...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", k.name, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if flags != nil {
		for flag, name := range flagKeys {
			f := flags.Lookup(flag)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(name, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// loadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Thresholds returns the classification day counts.
func (c *Config) Thresholds() lifecycle.Thresholds {
	return lifecycle.Thresholds{
		WarnDays:           c.WarnDays,
		CutoffDays:         c.CutoffDays,
		NeverUsedGraceDays: c.NeverUsedGraceDays,
	}
}

// RetryPolicy returns the backoff policy with configured overrides.
func (c *Config) RetryPolicy() backoff.Policy {
	p := backoff.DefaultPolicy()
	if c.Retry.MaxAttempts > 0 {
		p.MaxAttempts = c.Retry.MaxAttempts
	}
	if c.Retry.InitialDelay > 0 {
		p.InitialDelay = c.Retry.InitialDelay
	}
	return p
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	if c.DomainName == "" {
		return fmt.Errorf("domain_name is required")
	}
	if _, err := mail.ParseAddress(c.SourceEmail); err != nil {
		return fmt.Errorf("source_email %q: %w", c.SourceEmail, err)
	}
	if c.AdminEmail != "" {
		if _, err := mail.ParseAddress(c.AdminEmail); err != nil {
			return fmt.Errorf("admin_email %q: %w", c.AdminEmail, err)
		}
	}
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1 (got %d)", c.Workers)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry: max_attempts must be at least 1 (got %d)", c.Retry.MaxAttempts)
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit: rps and burst must be positive (got %v/%d)", c.RateLimit.RPS, c.RateLimit.Burst)
	}
	if c.Daemon.Interval <= 0 || c.Daemon.CycleTimeout <= 0 {
		return fmt.Errorf("daemon: interval and cycle_timeout must be positive")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log: format must be json or console (got %q)", c.Log.Format)
	}
	return nil
}
