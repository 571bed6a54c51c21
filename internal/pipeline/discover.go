package pipeline

import (
	"net/url"
	"strings"

	"github.com/octobees/exhibitor-leads/internal/document"
	"github.com/octobees/exhibitor-leads/internal/profile"
)

// DefaultMaxPages caps discovered listing pages when the profile sets no limit.
const DefaultMaxPages = 3

// Discover collects exhibitor-list links from an event landing page. Links
// whose text carries a keyword come first, then links whose href carries one.
// The result holds unique absolute URLs, at most cfg.MaxPages of them.
func Discover(doc *document.Document, cfg profile.Discovery) []string {
	limit := cfg.MaxPages
	if limit <= 0 {
		limit = DefaultMaxPages
	}
	links := doc.Find("a[href]")

	var out []string
	seen := make(map[string]struct{})
	add := func(href string) {
		u, err := doc.Resolve(href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		u.Fragment = ""
		s := u.String()
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for i := range links.Nodes {
		link := links.Eq(i)
		if document.ContainsAny(document.Text(link), cfg.TextKeywords) {
			href, _ := link.Attr("href")
			add(href)
		}
	}
	for i := range links.Nodes {
		href, _ := links.Eq(i).Attr("href")
		if document.ContainsAny(href, cfg.HrefKeywords) {
			add(href)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// StandardPaths resolves the configured listing paths against the landing
// page host.
func StandardPaths(base *url.URL, cfg profile.Discovery) []string {
	if base == nil {
		return nil
	}
	out := make([]string, 0, len(cfg.StandardPaths))
	for _, p := range cfg.StandardPaths {
		ref, err := url.Parse(p)
		if err != nil {
			continue
		}
		ref.Path = "/" + strings.TrimLeft(ref.Path, "/")
		out = append(out, base.ResolveReference(ref).String())
	}
	return out
}
