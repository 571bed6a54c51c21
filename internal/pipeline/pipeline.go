// Package pipeline runs extraction over many sources: fetch, locate, build,
// dedupe and enrich. Every document and every exhibitor is handled on its own,
// so one failure never aborts the batch.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/octobees/exhibitor-leads/internal/dedupe"
	"github.com/octobees/exhibitor-leads/internal/document"
	"github.com/octobees/exhibitor-leads/internal/enrich"
	"github.com/octobees/exhibitor-leads/internal/entity"
	"github.com/octobees/exhibitor-leads/internal/extract"
	"github.com/octobees/exhibitor-leads/internal/fetch"
	"github.com/octobees/exhibitor-leads/internal/locate"
	"github.com/octobees/exhibitor-leads/internal/metrics"
	"github.com/octobees/exhibitor-leads/internal/profile"
	"github.com/octobees/exhibitor-leads/internal/record"
)

// Source is one start URL of a run.
type Source struct {
	URL string `json:"url"`
	// Fetch names the fetch strategy, http when empty.
	Fetch string `json:"fetch,omitempty"`
	// Discover treats URL as an event landing page and follows its
	// exhibitor-list links.
	Discover bool `json:"discover,omitempty"`
}

// DocumentReport describes one processed document.
type DocumentReport struct {
	URL        string         `json:"url"`
	Outcome    string         `json:"outcome"`
	Candidates int            `json:"candidates"`
	Truncated  int            `json:"truncated"`
	Fallback   bool           `json:"fallback"`
	Exhibitors int            `json:"exhibitors"`
	Rejections map[string]int `json:"rejections,omitempty"`
	Misses     map[string]int `json:"misses,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Report summarises a run.
type Report struct {
	DocumentsProcessed int                    `json:"documents_processed"`
	DocumentsFailed    int                    `json:"documents_failed"`
	Candidates         int                    `json:"candidates"`
	Truncated          int                    `json:"truncated"`
	Rejections         map[string]int         `json:"rejections"`
	ExhibitorsFound    int                    `json:"exhibitors_found"`
	ContactsFound      int                    `json:"contacts_found"`
	ChannelFailures    int                    `json:"channel_failures"`
	Documents          []DocumentReport       `json:"documents"`
	Channels           []enrich.ChannelReport `json:"-"`
}

// Result is the outcome of a run. Both tables are always present.
type Result struct {
	Exhibitors []entity.Exhibitor `json:"exhibitors"`
	Contacts   []entity.Contact   `json:"contacts"`
	Report     Report             `json:"report"`
}

// Pipeline holds the collaborators of a run.
type Pipeline struct {
	profile     *profile.Profile
	extractor   *extract.Extractor
	locator     *locate.Locator
	fetchers    fetch.Strategies
	aggregator  *enrich.Aggregator
	concurrency int
	policy      dedupe.Policy
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithFetchers registers the fetch strategies sources may name.
func WithFetchers(s fetch.Strategies) Option {
	return func(p *Pipeline) { p.fetchers = s }
}

// WithAggregator enables contact enrichment.
func WithAggregator(a *enrich.Aggregator) Option {
	return func(p *Pipeline) { p.aggregator = a }
}

// WithConcurrency bounds parallel sources and parallel enrichments.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithPolicy selects the exhibitor dedupe policy.
func WithPolicy(policy dedupe.Policy) Option {
	return func(p *Pipeline) { p.policy = policy }
}

// WithMetrics records counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New builds a pipeline for profile pr.
func New(pr *profile.Profile, e *extract.Extractor, opts ...Option) *Pipeline {
	p := &Pipeline{
		profile:     pr,
		extractor:   e,
		locator:     locate.New(pr.Exhibitor, pr.MaxCandidates),
		fetchers:    fetch.Strategies{},
		concurrency: 1,
		policy:      dedupe.First,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ExtractDocument locates, builds and dedupes the exhibitors of doc.
func (p *Pipeline) ExtractDocument(doc *document.Document) ([]entity.Exhibitor, DocumentReport) {
	rep := DocumentReport{Outcome: metrics.DocumentOK, Rejections: map[string]int{}, Misses: map[string]int{}}
	if base := doc.BaseURL(); base != nil {
		rep.URL = base.String()
	}

	located := p.locator.Locate(doc)
	rep.Candidates = located.Found
	rep.Truncated = located.Truncated
	rep.Fallback = located.Fallback
	phase := "structural"
	if located.Fallback {
		phase = locate.HeuristicStrategy
	}
	p.metrics.Candidates(phase, located.Found, located.Truncated)

	b := record.NewBuilder(p.extractor, p.profile, doc.BaseURL())
	records := make([]entity.Exhibitor, 0, len(located.Candidates))
	for _, cand := range located.Candidates {
		rec, out := b.Exhibitor(cand.Node)
		if !out.Accepted {
			rep.Rejections[out.Reason]++
			p.metrics.Rejection(out.Reason)
			continue
		}
		for _, f := range out.Misses {
			rep.Misses[f]++
		}
		p.metrics.Misses(out.Misses)
		records = append(records, rec)
	}
	records = dedupe.Exhibitors(records, p.policy)
	rep.Exhibitors = len(records)
	p.metrics.Document(metrics.DocumentOK)
	return records, rep
}

// ExtractHTML parses raw markup and extracts its exhibitors. Unparseable input
// yields no exhibitors and a parse_failed report.
func (p *Pipeline) ExtractHTML(raw []byte, contentType, baseURL string) ([]entity.Exhibitor, DocumentReport) {
	doc, err := document.ParseReader(bytes.NewReader(raw), contentType, baseURL)
	if err != nil {
		p.metrics.Document(metrics.DocumentParseFailed)
		return []entity.Exhibitor{}, DocumentReport{URL: baseURL, Outcome: metrics.DocumentParseFailed, Error: err.Error()}
	}
	return p.ExtractDocument(doc)
}

type docOutcome struct {
	report     DocumentReport
	exhibitors []entity.Exhibitor
}

// Run processes every source, dedupes the exhibitors of all documents and
// enriches each survivor.
func (p *Pipeline) Run(ctx context.Context, sources []Source) Result {
	outcomes := make([][]docOutcome, len(sources))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			outcomes[i] = p.runSource(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Rejections: map[string]int{}, Documents: []DocumentReport{}}
	var all []entity.Exhibitor
	for _, docs := range outcomes {
		for _, d := range docs {
			report.add(d.report)
			all = append(all, d.exhibitors...)
		}
	}

	res := Result{Exhibitors: dedupe.Exhibitors(all, p.policy), Contacts: []entity.Contact{}}
	res.Contacts, report.Channels = p.enrichAll(ctx, res.Exhibitors)
	for _, ch := range report.Channels {
		if ch.Outcome == metrics.ChannelFailed || ch.Outcome == metrics.ChannelTimeout {
			report.ChannelFailures++
		}
	}
	report.ExhibitorsFound = len(res.Exhibitors)
	report.ContactsFound = len(res.Contacts)
	p.metrics.Records("exhibitor", report.ExhibitorsFound)
	p.metrics.Records("contact", report.ContactsFound)
	res.Report = report

	p.logger.Info("run finished",
		zap.Int("documents_processed", report.DocumentsProcessed),
		zap.Int("documents_failed", report.DocumentsFailed),
		zap.Int("exhibitors", report.ExhibitorsFound),
		zap.Int("contacts", report.ContactsFound),
	)
	return res
}

func (r *Report) add(d DocumentReport) {
	r.Documents = append(r.Documents, d)
	if d.Outcome != metrics.DocumentOK {
		r.DocumentsFailed++
		return
	}
	r.DocumentsProcessed++
	r.Candidates += d.Candidates
	r.Truncated += d.Truncated
	for reason, n := range d.Rejections {
		r.Rejections[reason] += n
	}
}

func (p *Pipeline) runSource(ctx context.Context, src Source) []docOutcome {
	f, err := p.fetchers.Get(src.Fetch)
	if err != nil {
		return []docOutcome{p.failed(src.URL, metrics.DocumentFetchFailed, err)}
	}
	if !src.Discover {
		return []docOutcome{p.process(ctx, f, src.URL)}
	}

	landing, err := p.load(ctx, f, src.URL)
	if err != nil {
		return []docOutcome{p.failedLoad(src.URL, err)}
	}
	var out []docOutcome
	if pages := Discover(landing, p.profile.Discovery); len(pages) > 0 {
		for _, page := range pages {
			out = append(out, p.process(ctx, f, page))
		}
		return out
	}
	for _, page := range StandardPaths(landing.BaseURL(), p.profile.Discovery) {
		d := p.process(ctx, f, page)
		out = append(out, d)
		if len(d.exhibitors) > 0 {
			break
		}
	}
	return out
}

func (p *Pipeline) process(ctx context.Context, f fetch.Fetcher, rawURL string) docOutcome {
	doc, err := p.load(ctx, f, rawURL)
	if err != nil {
		return p.failedLoad(rawURL, err)
	}
	exhibitors, rep := p.ExtractDocument(doc)
	rep.URL = rawURL
	p.logger.Debug("document processed",
		zap.String("url", rawURL),
		zap.Int("candidates", rep.Candidates),
		zap.Int("truncated", rep.Truncated),
		zap.Bool("fallback", rep.Fallback),
		zap.Int("exhibitors", rep.Exhibitors),
	)
	return docOutcome{report: rep, exhibitors: exhibitors}
}

var errParse = errors.New("parse failed")

func (p *Pipeline) load(ctx context.Context, f fetch.Fetcher, rawURL string) (*document.Document, error) {
	page, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	doc, err := document.ParseReader(bytes.NewReader(page.Body), page.ContentType, page.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errParse, page.URL, err)
	}
	return doc, nil
}

func (p *Pipeline) failedLoad(rawURL string, err error) docOutcome {
	if errors.Is(err, errParse) {
		return p.failed(rawURL, metrics.DocumentParseFailed, err)
	}
	return p.failed(rawURL, metrics.DocumentFetchFailed, err)
}

func (p *Pipeline) failed(rawURL, outcome string, err error) docOutcome {
	p.metrics.Document(outcome)
	p.logger.Warn("document skipped", zap.String("url", rawURL), zap.String("outcome", outcome), zap.Error(err))
	return docOutcome{
		report:     DocumentReport{URL: rawURL, Outcome: outcome, Error: err.Error()},
		exhibitors: nil,
	}
}

func (p *Pipeline) enrichAll(ctx context.Context, exhibitors []entity.Exhibitor) ([]entity.Contact, []enrich.ChannelReport) {
	contacts := []entity.Contact{}
	if p.aggregator == nil || len(exhibitors) == 0 {
		return contacts, nil
	}
	results := make([]enrich.Result, len(exhibitors))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, e := range exhibitors {
		g.Go(func() error {
			results[i] = p.aggregator.Enrich(ctx, e.Name, entity.StringValue(e.Website))
			return nil
		})
	}
	_ = g.Wait()

	var channels []enrich.ChannelReport
	for _, r := range results {
		contacts = append(contacts, r.Contacts...)
		channels = append(channels, r.Channels...)
	}
	return contacts, channels
}
