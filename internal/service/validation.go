package service

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"github.com/octobees/exhibitor-leads/internal/fetch"
	"github.com/octobees/exhibitor-leads/internal/pipeline"
)

// MaxSources bounds the number of sources accepted for one run.
const MaxSources = 200

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NormalizeSources trims and checks run sources. URLs must be absolute http(s)
// with a host; hosts are converted to their ASCII form. Fetch names must be
// one of the available strategies.
func NormalizeSources(sources []pipeline.Source, strategies fetch.Strategies) ([]pipeline.Source, error) {
	if len(sources) == 0 {
		return nil, &ValidationError{Field: "sources", Message: "at least one source is required"}
	}
	if len(sources) > MaxSources {
		return nil, &ValidationError{Field: "sources", Message: fmt.Sprintf("at most %d sources per run", MaxSources)}
	}

	out := make([]pipeline.Source, 0, len(sources))
	for i, src := range sources {
		field := fmt.Sprintf("sources[%d]", i)
		normalized, err := NormalizeURL(src.URL)
		if err != nil {
			return nil, &ValidationError{Field: field + ".url", Message: err.Error()}
		}
		name := strings.ToLower(strings.TrimSpace(src.Fetch))
		if name == "" {
			name = fetch.StrategyHTTP
		}
		if strategies != nil {
			if _, err := strategies.Get(name); err != nil {
				return nil, &ValidationError{Field: field + ".fetch", Message: fmt.Sprintf("fetch strategy %q is not available", name)}
			}
		}
		out = append(out, pipeline.Source{URL: normalized, Fetch: name, Discover: src.Discover})
	}
	return out, nil
}

// NormalizeURL returns the canonical form of an absolute http(s) URL. A bare
// host is treated as https.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	host, err := idna.Lookup.ToASCII(strings.Trim(u.Hostname(), "."))
	if err != nil || host == "" || !strings.Contains(host, ".") {
		return "", fmt.Errorf("invalid host")
	}
	if port := u.Port(); port != "" {
		host += ":" + port
	}
	u.Host = host
	u.Fragment = ""
	return u.String(), nil
}
