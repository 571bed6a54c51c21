// Package app assembles the extraction stack from configuration. Both the
// HTTP API and the batch CLI build their components here.
package app

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/octobees/exhibitor-leads/internal/config"
	"github.com/octobees/exhibitor-leads/internal/dedupe"
	"github.com/octobees/exhibitor-leads/internal/directory"
	"github.com/octobees/exhibitor-leads/internal/enrich"
	"github.com/octobees/exhibitor-leads/internal/extract"
	"github.com/octobees/exhibitor-leads/internal/fetch"
	"github.com/octobees/exhibitor-leads/internal/metrics"
	"github.com/octobees/exhibitor-leads/internal/pipeline"
	"github.com/octobees/exhibitor-leads/internal/profile"
)

// Components are the wired extraction collaborators.
type Components struct {
	Profile    *profile.Profile
	Extractor  *extract.Extractor
	Strategies fetch.Strategies
	Aggregator *enrich.Aggregator
	Pipeline   *pipeline.Pipeline
	Metrics    *metrics.Metrics
}

// Option adjusts what Build wires.
type Option func(*options)

type options struct {
	enrich bool
}

// WithoutEnrichment builds a pipeline that produces only the exhibitor table.
func WithoutEnrichment() Option {
	return func(o *options) { o.enrich = false }
}

// LoadProfile reads the configured profile, or the embedded default, and
// applies the DEFAULT_COUNTRY and MAX_CANDIDATES overrides.
func LoadProfile(cfg *config.Config) (*profile.Profile, error) {
	p := profile.Default()
	if path := strings.TrimSpace(cfg.ProfilePath); path != "" {
		loaded, err := profile.Load(path)
		if err != nil {
			return nil, err
		}
		p = loaded
	}
	if c := strings.TrimSpace(cfg.DefaultCountry); c != "" {
		p.DefaultCountry = c
	}
	if cfg.MaxCandidates > 0 {
		p.MaxCandidates = cfg.MaxCandidates
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return p, nil
}

// Build wires profile, extractor, fetch strategies, enrichment channels and
// the batch pipeline. reg may be nil, which disables metrics.
func Build(cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer, opts ...Option) (*Components, error) {
	o := options{enrich: true}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p, err := LoadProfile(cfg)
	if err != nil {
		return nil, err
	}
	e, err := extract.New(p)
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}
	policy, err := dedupe.ParsePolicy(cfg.DedupePolicy)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if reg != nil {
		m = metrics.New(reg)
	}

	httpFetcher := fetch.NewHTTPFetcher(
		fetch.WithTimeout(cfg.FetchTimeout),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithRateLimit(cfg.FetchRate.PerRequest(), cfg.FetchRate.Requests),
		fetch.WithLogger(logger.Named("fetch")),
	)
	strategies := fetch.Strategies{fetch.StrategyHTTP: httpFetcher}
	if base := strings.TrimSpace(cfg.RenderBaseURL); base != "" {
		strategies[fetch.StrategyRender] = fetch.NewRenderClient(nil, base, cfg.RenderWait)
	}

	c := &Components{Profile: p, Extractor: e, Strategies: strategies, Metrics: m}

	enrichOpts := []enrich.Option{
		enrich.WithSiteFetcher(httpFetcher),
		enrich.WithTimeout(cfg.ChannelTimeout),
		enrich.WithPolicy(policy),
		enrich.WithMetrics(m),
		enrich.WithLogger(logger.Named("enrich")),
	}
	if strings.TrimSpace(cfg.DirectoryBaseURL) != "" {
		dir, err := directory.NewClient(cfg.DirectoryBaseURL, cfg.DirectoryAPIKey, cfg.ChannelTimeout)
		if err != nil {
			return nil, err
		}
		enrichOpts = append(enrichOpts, enrich.WithDirectory(dir))
	}
	c.Aggregator = enrich.New(p, e, enrichOpts...)

	pipeOpts := []pipeline.Option{
		pipeline.WithFetchers(strategies),
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithPolicy(policy),
		pipeline.WithMetrics(m),
		pipeline.WithLogger(logger.Named("pipeline")),
	}
	if o.enrich {
		pipeOpts = append(pipeOpts, pipeline.WithAggregator(c.Aggregator))
	}
	c.Pipeline = pipeline.New(p, e, pipeOpts...)

	return c, nil
}
