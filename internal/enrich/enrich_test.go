package enrich

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/exhibitor-leads/internal/document"
	"github.com/octobees/exhibitor-leads/internal/entity"
	"github.com/octobees/exhibitor-leads/internal/extract"
	"github.com/octobees/exhibitor-leads/internal/fetch"
	"github.com/octobees/exhibitor-leads/internal/metrics"
	"github.com/octobees/exhibitor-leads/internal/profile"
	"github.com/octobees/exhibitor-leads/internal/record"
	"github.com/octobees/exhibitor-leads/internal/roles"
)

type stubDirectory struct {
	mu      sync.Mutex
	queries []Query
	search  func(ctx context.Context, q Query) ([]record.Listing, error)
}

func (s *stubDirectory) Search(ctx context.Context, q Query) ([]record.Listing, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()
	return s.search(ctx, q)
}

type stubFetcher struct {
	pages map[string]string
	err   error
}

func (s stubFetcher) Fetch(_ context.Context, rawURL string) (*fetch.Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	body, ok := s.pages[rawURL]
	if !ok {
		return nil, &fetch.StatusError{URL: rawURL, StatusCode: 404}
	}
	return &fetch.Page{URL: rawURL, Body: []byte(body), ContentType: "text/html; charset=utf-8"}, nil
}

var acmeSite = map[string]string{
	"https://acme.example/": `<nav><a href="/produkte">Produkte</a><a href="/kontakt#top">Kontakt</a></nav>`,
	"https://acme.example/kontakt": `
		<div class="team"><h3>Erika Mustermann</h3><span class="position">Geschäftsführerin</span><p>erika@acme.example</p></div>
		<div class="team"><h3>Max Muster</h3><span class="position">Praktikant</span></div>`,
}

func directoryHits(_ context.Context, q Query) ([]record.Listing, error) {
	switch {
	case strings.Contains(q.Text, `"CEO"`):
		return []record.Listing{
			{Name: "Jan Kowalski", Position: "CEO", Source: q.Directory},
			{Name: "Lea Lang", Position: "Werkstudentin", Source: q.Directory},
		}, nil
	case strings.Contains(q.Text, `"Sales Manager"`):
		return []record.Listing{{Name: "Tom Berg", Position: "Sales Manager", Email: "tom@acme.example"}}, nil
	}
	return nil, nil
}

func newAggregator(t *testing.T, opts ...Option) *Aggregator {
	t.Helper()
	p := profile.Default()
	e, err := extract.New(p)
	require.NoError(t, err)
	return New(p, e, opts...)
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t,
		`site:linkedin.com "Acme GmbH" "CEO" OR "Geschäftsführer" OR "Managing Director"`,
		BuildQuery("linkedin.com", "Acme GmbH", []string{"CEO", "Geschäftsführer", "Managing Director"}))
	assert.Equal(t, `site:xing.com "Acme" "HR Manager"`, BuildQuery("xing.com", ` Ac"me `, []string{"HR Manager", " "}))
}

func TestQueriesOrder(t *testing.T) {
	qs := newAggregator(t).Queries("Acme GmbH")
	require.Len(t, qs, 6)
	assert.Equal(t, "LinkedIn", qs[0].Directory)
	assert.Equal(t, `site:linkedin.com "Acme GmbH" "HR Manager"`, qs[1].Text)
	assert.Equal(t, "Xing", qs[3].Directory)
	assert.Equal(t, `site:xing.com "Acme GmbH" "Sales Manager"`, qs[5].Text)
}

func TestEnrichMergesChannels(t *testing.T) {
	dir := &stubDirectory{search: directoryHits}
	a := newAggregator(t, WithDirectory(dir), WithSiteFetcher(stubFetcher{pages: acmeSite}))

	res := a.Enrich(context.Background(), "Acme GmbH", "https://acme.example/")

	assert.Len(t, dir.queries, 6)
	require.Len(t, res.Channels, 7)
	assert.Equal(t, SiteChannel, res.Channels[6].Channel)
	assert.Equal(t, 1, res.Channels[6].Contacts)
	assert.Equal(t, 1, res.Channels[6].Rejected)

	names := make([]string, 0, len(res.Contacts))
	for _, c := range res.Contacts {
		names = append(names, c.FullName+"/"+c.Source)
		assert.Equal(t, "Acme GmbH", c.CompanyName)
	}
	// Directory hits repeat across LinkedIn and Xing; the first channel wins.
	assert.Equal(t, []string{
		"Jan Kowalski/LinkedIn",
		"Tom Berg/LinkedIn",
		"Erika Mustermann/Acme GmbH Website",
	}, names)
	assert.Equal(t, "tom@acme.example", entity.StringValue(res.Contacts[1].Email))
	assert.Equal(t, "erika@acme.example", entity.StringValue(res.Contacts[2].Email))
}

func TestEnrichPositionsPassTaxonomy(t *testing.T) {
	a := newAggregator(t, WithDirectory(&stubDirectory{search: directoryHits}), WithSiteFetcher(stubFetcher{pages: acmeSite}))
	taxonomy := roles.New(profile.Default().Roles)
	for _, c := range a.Enrich(context.Background(), "Acme GmbH", "https://acme.example/").Contacts {
		assert.True(t, taxonomy.Allows(c.Position), c.Position)
	}
}

func TestEnrichSiteFailureKeepsDirectoryResults(t *testing.T) {
	a := newAggregator(t,
		WithDirectory(&stubDirectory{search: directoryHits}),
		WithSiteFetcher(stubFetcher{err: errors.New("connection refused")}),
	)
	res := a.Enrich(context.Background(), "Acme GmbH", "https://acme.example/")

	assert.Len(t, res.Contacts, 2)
	assert.Equal(t, metrics.ChannelFailed, res.Channels[6].Outcome)
	assert.Equal(t, "connection refused", res.Channels[6].Error)
}

func TestEnrichDirectoryFailureKeepsSiteResults(t *testing.T) {
	dir := &stubDirectory{search: func(context.Context, Query) ([]record.Listing, error) {
		return nil, errors.New("quota exceeded")
	}}
	a := newAggregator(t, WithDirectory(dir), WithSiteFetcher(stubFetcher{pages: acmeSite}))
	res := a.Enrich(context.Background(), "Acme GmbH", "https://acme.example/")

	require.Len(t, res.Contacts, 1)
	assert.Equal(t, "Erika Mustermann", res.Contacts[0].FullName)
	for _, ch := range res.Channels[:6] {
		assert.Equal(t, metrics.ChannelFailed, ch.Outcome)
	}
}

func TestEnrichChannelTimeout(t *testing.T) {
	dir := &stubDirectory{search: func(ctx context.Context, q Query) ([]record.Listing, error) {
		if q.Directory == "Xing" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return directoryHits(ctx, q)
	}}
	a := newAggregator(t, WithDirectory(dir), WithTimeout(20*time.Millisecond))

	start := time.Now()
	res := a.Enrich(context.Background(), "Acme GmbH", "")
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Len(t, res.Contacts, 2)
	assert.Equal(t, metrics.ChannelTimeout, res.Channels[3].Outcome)
	assert.Equal(t, metrics.ChannelSkipped, res.Channels[6].Outcome)
}

func TestEnrichWithoutChannels(t *testing.T) {
	res := newAggregator(t).Enrich(context.Background(), "Acme GmbH", "https://acme.example/")
	assert.Empty(t, res.Contacts)
	assert.NotNil(t, res.Contacts)
	for _, ch := range res.Channels {
		assert.Equal(t, metrics.ChannelSkipped, ch.Outcome)
	}
}

func TestEnrichNoContactLink(t *testing.T) {
	a := newAggregator(t, WithSiteFetcher(stubFetcher{pages: map[string]string{
		"https://beta.example/": `<a href="/impressum">Impressum</a>`,
	}}))
	res := a.Enrich(context.Background(), "Beta AG", "https://beta.example/")
	assert.Empty(t, res.Contacts)
	assert.Equal(t, metrics.ChannelOK, res.Channels[6].Outcome)
}

func TestContactLink(t *testing.T) {
	doc, err := document.Parse([]byte(`
		<a href="mailto:contact@acme.example">Contact us</a>
		<a href="/ueber-uns">About</a>
		<a href="/team">Team</a>`), "https://acme.example/de/")
	require.NoError(t, err)

	link, ok := ContactLink(doc, []string{"kontakt", "contact", "team", "about"})
	require.True(t, ok)
	assert.Equal(t, "https://acme.example/ueber-uns", link)

	_, ok = ContactLink(doc, []string{"karriere"})
	assert.False(t, ok)
}
