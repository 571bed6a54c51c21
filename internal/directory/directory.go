// Package directory queries a web-search endpoint for people listed on
// professional networking sites and turns the hits into typed listings.
package directory

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/microcosm-cc/bluemonday"

	"github.com/octobees/exhibitor-leads/internal/document"
	"github.com/octobees/exhibitor-leads/internal/enrich"
	"github.com/octobees/exhibitor-leads/internal/record"
)

var ErrNotConfigured = errors.New("directory endpoint not configured")

var (
	emailInText = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	titleParts  = regexp.MustCompile(`\s+[-–—·]\s+`)
)

type searchItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type searchResponse struct {
	Items []searchItem `json:"items"`
	Error string       `json:"error"`
}

// Client calls a search endpoint that accepts the query in the q parameter and
// answers with {"items":[{"title","link","snippet"}]}.
type Client struct {
	http     *resty.Client
	endpoint string
	apiKey   string
	sanitize *bluemonday.Policy
}

// NewClient builds a search client for the endpoint at baseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, ErrNotConfigured
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http:     resty.New().SetTimeout(timeout),
		endpoint: baseURL,
		apiKey:   apiKey,
		sanitize: bluemonday.StrictPolicy(),
	}, nil
}

// Search implements enrich.Directory.
func (c *Client) Search(ctx context.Context, q enrich.Query) ([]record.Listing, error) {
	var out searchResponse
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", q.Text).
		SetResult(&out).
		SetError(&out)
	if c.apiKey != "" {
		req.SetHeader("X-API-Key", c.apiKey)
	}
	resp, err := req.Get(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", q.Directory, err)
	}
	if resp.IsError() {
		msg := out.Error
		if msg == "" {
			msg = resp.Status()
		}
		return nil, fmt.Errorf("search %s: %s", q.Directory, msg)
	}

	listings := make([]record.Listing, 0, len(out.Items))
	for _, item := range out.Items {
		if q.Site != "" && !strings.Contains(strings.ToLower(item.Link), strings.ToLower(q.Site)) {
			continue
		}
		l, ok := c.parse(item)
		if !ok {
			continue
		}
		l.Source = q.Directory
		listings = append(listings, l)
	}
	return listings, nil
}

// parse reads hits titled like "Erika Mustermann - Geschäftsführerin - Acme GmbH | LinkedIn".
func (c *Client) parse(item searchItem) (record.Listing, bool) {
	title := c.plain(item.Title)
	if i := strings.LastIndex(title, " | "); i >= 0 {
		title = title[:i]
	}
	parts := titleParts.Split(title, -1)
	if len(parts) < 2 {
		return record.Listing{}, false
	}
	l := record.Listing{
		Name:     strings.TrimSpace(parts[0]),
		Position: strings.TrimSpace(parts[1]),
	}
	if m := emailInText.FindString(c.plain(item.Snippet)); m != "" {
		l.Email = m
	}
	return l, l.Name != "" && l.Position != ""
}

func (c *Client) plain(s string) string {
	return document.Clean(html.UnescapeString(c.sanitize.Sanitize(s)))
}

var _ enrich.Directory = (*Client)(nil)
