package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// Decode parses the <requests>/<interval> form, for example 5/min.
func (r *RateLimitConfig) Decode(value string) error {
	rl, err := parseRateLimit(value)
	if err != nil {
		return err
	}
	*r = rl
	return nil
}

// Enabled reports whether the limit restricts anything.
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0 && r.Interval > 0
}

// PerRequest is the interval between two requests at the steady rate.
func (r RateLimitConfig) PerRequest() time.Duration {
	if !r.Enabled() {
		return 0
	}
	every := r.Interval / time.Duration(r.Requests)
	if every <= 0 {
		every = time.Nanosecond
	}
	return every
}

// Config aggregates application-wide configuration values.
type Config struct {
	DatabaseURL          string          `envconfig:"DATABASE_URL"`
	JWTSecret            string          `envconfig:"JWT_SECRET" default:"dev-secret"`
	TokenTTL             time.Duration   `envconfig:"JWT_TTL" default:"24h"`
	Port                 string          `envconfig:"PORT" default:"8080"`
	OperatorEmail        string          `envconfig:"OPERATOR_EMAIL"`
	OperatorPasswordHash string          `envconfig:"OPERATOR_PASSWORD_HASH"`
	RateLimitRuns        RateLimitConfig `envconfig:"RATE_LIMIT_RUNS" default:"5/min"`
	RateLimitExtract     RateLimitConfig `envconfig:"RATE_LIMIT_EXTRACT" default:"60/min"`
	RateLimitEnrich      RateLimitConfig `envconfig:"RATE_LIMIT_ENRICH" default:"20/min"`
	FetchRate            RateLimitConfig `envconfig:"FETCH_RATE" default:"2/sec"`
	FetchTimeout         time.Duration   `envconfig:"FETCH_TIMEOUT" default:"30s"`
	ChannelTimeout       time.Duration   `envconfig:"CHANNEL_TIMEOUT" default:"20s"`
	RenderBaseURL        string          `envconfig:"RENDER_BASE_URL"`
	RenderWait           time.Duration   `envconfig:"RENDER_WAIT" default:"5s"`
	DirectoryBaseURL     string          `envconfig:"DIRECTORY_BASE_URL"`
	DirectoryAPIKey      string          `envconfig:"DIRECTORY_API_KEY"`
	ProfilePath          string          `envconfig:"PROFILE_PATH"`
	MaxCandidates        int             `envconfig:"MAX_CANDIDATES" default:"20"`
	DefaultCountry       string          `envconfig:"DEFAULT_COUNTRY"`
	Concurrency          int             `envconfig:"CONCURRENCY" default:"4"`
	DedupePolicy         string          `envconfig:"DEDUPE_POLICY" default:"first"`
	LogLevel             string          `envconfig:"LOG_LEVEL" default:"info"`
	LogFile              string          `envconfig:"LOG_FILE"`
	UserAgent            string          `envconfig:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"`
}

// Load reads configuration from environment variables and applies sane defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.MaxCandidates < 0 {
		return nil, fmt.Errorf("invalid MAX_CANDIDATES value: %d", cfg.MaxCandidates)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &cfg, nil
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}
