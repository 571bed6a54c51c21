// Package fetch acquires raw documents. Plain HTTP and browser rendering are
// interchangeable Fetcher implementations selected per source by name.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"strings"
)

// Strategy names.
const (
	StrategyHTTP   = "http"
	StrategyRender = "render"
)

var (
	ErrInvalidURL       = errors.New("invalid url")
	ErrNotHTML          = errors.New("non-html content")
	ErrUnknownStrategy  = errors.New("unknown fetch strategy")
	ErrEmptyRenderedDoc = errors.New("render worker returned no html")
	ErrTooLarge         = errors.New("response exceeds size limit")
)

// Page is a fetched document.
type Page struct {
	// URL is the final URL after redirects.
	URL         string
	Body        []byte
	ContentType string
}

// Fetcher loads the document at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
}

// Strategies maps strategy names to fetchers.
type Strategies map[string]Fetcher

// Get returns the fetcher registered under name. An empty name selects StrategyHTTP.
func (s Strategies) Get(name string) (Fetcher, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = StrategyHTTP
	}
	f, ok := s[name]
	if !ok || f == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return f, nil
}

func checkURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return u, nil
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
