package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/exhibitor-leads/internal/config"
	"github.com/octobees/exhibitor-leads/internal/fetch"
)

func baseConfig() *config.Config {
	return &config.Config{
		FetchTimeout:   time.Second,
		FetchRate:      config.RateLimitConfig{Requests: 2, Interval: time.Second},
		ChannelTimeout: time.Second,
		MaxCandidates:  20,
		Concurrency:    2,
		DedupePolicy:   "first",
	}
}

func TestBuildDefaults(t *testing.T) {
	c, err := Build(baseConfig(), nil, prometheus.NewRegistry())
	require.NoError(t, err)

	assert.NotNil(t, c.Pipeline)
	assert.NotNil(t, c.Aggregator)
	assert.NotNil(t, c.Metrics)
	assert.Equal(t, 20, c.Profile.MaxCandidates)

	_, err = c.Strategies.Get(fetch.StrategyHTTP)
	assert.NoError(t, err)
	_, err = c.Strategies.Get(fetch.StrategyRender)
	assert.ErrorIs(t, err, fetch.ErrUnknownStrategy)
}

func TestBuildWithDirectory(t *testing.T) {
	cfg := baseConfig()
	cfg.DirectoryBaseURL = "https://search.example/api"
	c, err := Build(cfg, nil, nil, WithoutEnrichment())
	require.NoError(t, err)
	assert.Nil(t, c.Metrics)
	assert.NotNil(t, c.Aggregator)
}

func TestBuildRejectsUnknownPolicy(t *testing.T) {
	cfg := baseConfig()
	cfg.DedupePolicy = "latest"
	_, err := Build(cfg, nil, nil)
	assert.Error(t, err)
}

func TestLoadProfileOverrides(t *testing.T) {
	cfg := baseConfig()
	cfg.DefaultCountry = "Austria"
	cfg.MaxCandidates = 5

	p, err := LoadProfile(cfg)
	require.NoError(t, err)
	assert.Equal(t, "Austria", p.DefaultCountry)
	assert.Equal(t, 5, p.MaxCandidates)
}

func TestLoadProfileMissingFile(t *testing.T) {
	cfg := baseConfig()
	cfg.ProfilePath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := LoadProfile(cfg)
	assert.Error(t, err)

	cfg.ProfilePath = filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(cfg.ProfilePath, []byte("unknown_key: 1\n"), 0o600))
	_, err = LoadProfile(cfg)
	assert.Error(t, err)
}
