package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"google.golang.org/api/idtoken"

	"github.com/octobees/exhibitor-leads/internal/document"
)

const (
	renderPath           = "/render"
	renderEnvelopeFactor = 2
)

type renderRequest struct {
	URL         string `json:"url"`
	WaitSeconds int    `json:"wait_seconds"`
	Scroll      bool   `json:"scroll"`
}

type renderResponse struct {
	Data struct {
		HTML string `json:"html"`
		URL  string `json:"url"`
	} `json:"data"`
	Error string `json:"error"`
}

// RenderClient delegates fetching to a headless-browser render worker so that
// script-built listings are fully loaded before extraction.
type RenderClient struct {
	client  *resty.Client
	wait    time.Duration
	maxHTML int
}

// RenderOption customises a RenderClient.
type RenderOption func(*RenderClient)

// WithRenderMaxSize caps the rendered markup. The default is document.MaxSize.
func WithRenderMaxSize(n int) RenderOption {
	return func(c *RenderClient) {
		if n > 0 {
			c.maxHTML = n
		}
	}
}

// NewRenderClient builds a render client, auto-configuring an ID token client when needed.
func NewRenderClient(client *http.Client, baseURL string, wait time.Duration, opts ...RenderOption) *RenderClient {
	if baseURL == "" {
		panic("render baseURL must not be empty")
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if client == nil {
		idc, err := idtoken.NewClient(context.Background(), baseURL)
		if err != nil {
			client = &http.Client{Timeout: 90 * time.Second}
		} else {
			client = idc
		}
	}
	c := &RenderClient{wait: wait, maxHTML: document.MaxSize}
	for _, opt := range opts {
		opt(c)
	}
	// The markup arrives JSON-escaped, so the envelope may be larger than the page.
	c.client = resty.NewWithClient(client).SetBaseURL(baseURL).SetResponseBodyLimit(renderEnvelopeFactor * c.maxHTML)
	return c
}

// Fetch asks the worker to load rawURL, wait, scroll to the bottom and return
// the resulting markup.
func (c *RenderClient) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := checkURL(rawURL)
	if err != nil {
		return nil, err
	}

	var out renderResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(renderRequest{URL: u.String(), WaitSeconds: int(c.wait / time.Second), Scroll: true}).
		SetResult(&out).
		SetError(&out).
		Post(renderPath)
	if errors.Is(err, resty.ErrResponseBodyTooLarge) {
		return nil, fmt.Errorf("render %s: %w", u, ErrTooLarge)
	}
	if err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}
	if resp.IsError() {
		msg := out.Error
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		if msg == "" {
			msg = "render worker returned an error"
		}
		return nil, fmt.Errorf("render worker error: %s", msg)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("render worker error: %s", out.Error)
	}
	if strings.TrimSpace(out.Data.HTML) == "" {
		return nil, fmt.Errorf("render %s: %w", u, ErrEmptyRenderedDoc)
	}
	if len(out.Data.HTML) > c.maxHTML {
		return nil, fmt.Errorf("render %s: %w", u, ErrTooLarge)
	}

	final := out.Data.URL
	if final == "" {
		final = u.String()
	}
	return &Page{URL: final, Body: []byte(out.Data.HTML), ContentType: "text/html; charset=utf-8"}, nil
}

var _ Fetcher = (*RenderClient)(nil)
