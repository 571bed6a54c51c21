// Package enrich looks up contacts of one exhibitor through independent
// channels and merges the results.
package enrich

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/octobees/exhibitor-leads/internal/dedupe"
	"github.com/octobees/exhibitor-leads/internal/document"
	"github.com/octobees/exhibitor-leads/internal/entity"
	"github.com/octobees/exhibitor-leads/internal/extract"
	"github.com/octobees/exhibitor-leads/internal/fetch"
	"github.com/octobees/exhibitor-leads/internal/locate"
	"github.com/octobees/exhibitor-leads/internal/metrics"
	"github.com/octobees/exhibitor-leads/internal/profile"
	"github.com/octobees/exhibitor-leads/internal/record"
)

// SiteChannel names the company-website channel in reports.
const SiteChannel = "site"

// DefaultTimeout bounds one channel when no timeout is configured.
const DefaultTimeout = 20 * time.Second

// Query is one role-targeted directory lookup.
type Query struct {
	Directory string
	Site      string
	Text      string
}

// Directory runs directory lookups and returns typed person listings.
type Directory interface {
	Search(ctx context.Context, q Query) ([]record.Listing, error)
}

// ChannelReport records how one channel call went.
type ChannelReport struct {
	Channel  string `json:"channel"`
	Query    string `json:"query,omitempty"`
	Outcome  string `json:"outcome"`
	Contacts int    `json:"contacts"`
	Rejected int    `json:"rejected"`
	Error    string `json:"error,omitempty"`
}

// Result is the merged outcome of all channels for one exhibitor.
type Result struct {
	Contacts []entity.Contact `json:"contacts"`
	Channels []ChannelReport  `json:"channels"`
}

// Aggregator fans out the lookups of one exhibitor.
type Aggregator struct {
	profile   *profile.Profile
	extractor *extract.Extractor
	directory Directory
	site      fetch.Fetcher
	locator   *locate.Locator
	timeout   time.Duration
	policy    dedupe.Policy
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithDirectory enables the directory channels.
func WithDirectory(d Directory) Option {
	return func(a *Aggregator) { a.directory = d }
}

// WithSiteFetcher enables the company-website channel.
func WithSiteFetcher(f fetch.Fetcher) Option {
	return func(a *Aggregator) { a.site = f }
}

// WithTimeout bounds every channel call.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithPolicy selects the contact dedupe policy.
func WithPolicy(p dedupe.Policy) Option {
	return func(a *Aggregator) { a.policy = p }
}

// WithMetrics records channel outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// New builds an aggregator. Channels without a collaborator are skipped.
func New(p *profile.Profile, e *extract.Extractor, opts ...Option) *Aggregator {
	a := &Aggregator{
		profile:   p,
		extractor: e,
		locator:   locate.New(p.Contact, p.MaxCandidates),
		timeout:   DefaultTimeout,
		policy:    dedupe.First,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BuildQuery renders a directory query restricted to site for company and any
// of the role phrases.
func BuildQuery(site, company string, phrases []string) string {
	quoted := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.TrimSpace(p); p != "" {
			quoted = append(quoted, quote(p))
		}
	}
	q := fmt.Sprintf("site:%s %s", site, quote(company))
	if len(quoted) > 0 {
		q += " " + strings.Join(quoted, " OR ")
	}
	return q
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(strings.TrimSpace(s), `"`, "") + `"`
}

// Queries lists the directory lookups for company in a fixed order: directory
// order, then phrase group order.
func (a *Aggregator) Queries(company string) []Query {
	var out []Query
	for _, d := range a.profile.Enrichment.Directories {
		for _, group := range a.profile.Enrichment.PhraseGroups {
			out = append(out, Query{Directory: d.Name, Site: d.Site, Text: BuildQuery(d.Site, company, group)})
		}
	}
	return out
}

type channelResult struct {
	report   ChannelReport
	contacts []entity.Contact
}

// Enrich runs every channel for one exhibitor. A failing or slow channel
// contributes nothing and never affects the others. The merged contacts keep
// channel order and are deduplicated on (full name, position).
func (a *Aggregator) Enrich(ctx context.Context, company, website string) Result {
	company = strings.TrimSpace(company)
	queries := a.Queries(company)
	results := make([]channelResult, len(queries)+1)

	var g errgroup.Group
	for i, q := range queries {
		g.Go(func() error {
			results[i] = a.directoryChannel(ctx, company, q)
			return nil
		})
	}
	g.Go(func() error {
		results[len(queries)] = a.siteChannel(ctx, company, strings.TrimSpace(website))
		return nil
	})
	_ = g.Wait()

	res := Result{Channels: make([]ChannelReport, 0, len(results)), Contacts: []entity.Contact{}}
	var merged []entity.Contact
	for _, r := range results {
		res.Channels = append(res.Channels, r.report)
		merged = append(merged, r.contacts...)
		a.metrics.Channel(r.report.Channel, r.report.Outcome)
	}
	if deduped := dedupe.Contacts(merged, a.policy); len(deduped) > 0 {
		res.Contacts = deduped
	}
	return res
}

func (a *Aggregator) directoryChannel(ctx context.Context, company string, q Query) channelResult {
	report := ChannelReport{Channel: q.Directory, Query: q.Text}
	if a.directory == nil {
		report.Outcome = metrics.ChannelSkipped
		return channelResult{report: report}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	listings, err := a.directory.Search(ctx, q)
	if err != nil {
		a.fail(&report, err)
		return channelResult{report: report}
	}

	b := record.NewBuilder(a.extractor, a.profile, nil)
	var contacts []entity.Contact
	for _, l := range listings {
		if l.Source == "" {
			l.Source = q.Directory
		}
		c, out := b.ContactFromListing(l, company)
		if !out.Accepted {
			report.Rejected++
			continue
		}
		contacts = append(contacts, c)
	}
	report.Outcome = metrics.ChannelOK
	report.Contacts = len(contacts)
	return channelResult{report: report, contacts: contacts}
}

func (a *Aggregator) siteChannel(ctx context.Context, company, website string) channelResult {
	report := ChannelReport{Channel: SiteChannel}
	if a.site == nil || website == "" {
		report.Outcome = metrics.ChannelSkipped
		return channelResult{report: report}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	contacts, rejected, err := a.siteContacts(ctx, company, website)
	if err != nil {
		a.fail(&report, err)
		return channelResult{report: report}
	}
	report.Outcome = metrics.ChannelOK
	report.Contacts = len(contacts)
	report.Rejected = rejected
	return channelResult{report: report, contacts: contacts}
}

func (a *Aggregator) siteContacts(ctx context.Context, company, website string) ([]entity.Contact, int, error) {
	home, err := a.load(ctx, website)
	if err != nil {
		return nil, 0, err
	}
	link, ok := ContactLink(home, a.profile.Enrichment.ContactLinkKeywords)
	if !ok {
		return nil, 0, nil
	}
	page, err := a.load(ctx, link)
	if err != nil {
		return nil, 0, err
	}

	b := record.NewBuilder(a.extractor, a.profile, page.BaseURL())
	source := company + " Website"
	var contacts []entity.Contact
	rejected := 0
	for _, cand := range a.locator.Locate(page).Candidates {
		c, out := b.Contact(cand.Node, company, source)
		if !out.Accepted {
			rejected++
			continue
		}
		contacts = append(contacts, c)
	}
	return contacts, rejected, nil
}

func (a *Aggregator) load(ctx context.Context, rawURL string) (*document.Document, error) {
	page, err := a.site.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	doc, err := document.ParseReader(bytes.NewReader(page.Body), page.ContentType, page.URL)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", page.URL, err)
	}
	return doc, nil
}

func (a *Aggregator) fail(report *ChannelReport, err error) {
	report.Outcome = metrics.ChannelFailed
	if errors.Is(err, context.DeadlineExceeded) {
		report.Outcome = metrics.ChannelTimeout
	}
	report.Error = err.Error()
	a.logger.Warn("enrichment channel failed",
		zap.String("channel", report.Channel),
		zap.String("query", report.Query),
		zap.String("outcome", report.Outcome),
		zap.Error(err),
	)
}

// ContactLink returns the absolute URL of the first hyperlink whose text
// contains one of keywords.
func ContactLink(doc *document.Document, keywords []string) (string, bool) {
	links := doc.Find("a[href]")
	for i := range links.Nodes {
		link := links.Eq(i)
		if !document.ContainsAny(document.Text(link), keywords) {
			continue
		}
		href, _ := link.Attr("href")
		u, err := doc.Resolve(href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		u.Fragment = ""
		return u.String(), true
	}
	return "", false
}
