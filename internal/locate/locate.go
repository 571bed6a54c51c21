// Package locate finds the container nodes that probably hold one record each.
package locate

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/octobees/exhibitor-leads/internal/document"
	"github.com/octobees/exhibitor-leads/internal/profile"
)

// DefaultMax is the candidate cap used when none is configured.
const DefaultMax = 20

// HeuristicStrategy names candidates produced by the fallback scan.
const HeuristicStrategy = "heuristic"

// Candidate is a located container and the strategy that found it.
type Candidate struct {
	Node     *goquery.Selection
	Strategy string
}

// Result is the outcome of one Locate call.
type Result struct {
	Candidates []Candidate
	// Found counts candidates before the cap was applied.
	Found int
	// Truncated counts candidates dropped by the cap.
	Truncated int
	// Fallback is set when the heuristic scan produced the candidates.
	Fallback bool
}

// Locator applies structural strategies in priority order and falls back to a
// heuristic scan when none of them match.
type Locator struct {
	strategies []profile.Strategy
	heuristic  *profile.Heuristic
	max        int
}

// New builds a locator from a profile section. limit <= 0 selects DefaultMax.
func New(cfg profile.Locator, limit int) *Locator {
	if limit <= 0 {
		limit = DefaultMax
	}
	return &Locator{strategies: cfg.Strategies, heuristic: cfg.Heuristic, max: limit}
}

// Max returns the candidate cap.
func (l *Locator) Max() int {
	return l.max
}

// Locate returns the candidates of doc. Every matching strategy contributes
// all of its matches in document order, so the same node may appear more than
// once.
func (l *Locator) Locate(doc *document.Document) Result {
	var res Result
	if doc == nil {
		return res
	}
	for _, s := range l.strategies {
		found := doc.Find(s.Selector)
		for i := range found.Nodes {
			res.Candidates = append(res.Candidates, Candidate{Node: found.Eq(i), Strategy: s.Name})
		}
	}
	if len(res.Candidates) == 0 && l.heuristic != nil {
		res.Candidates = l.scan(doc)
		res.Fallback = len(res.Candidates) > 0
	}
	res.Found = len(res.Candidates)
	if len(res.Candidates) > l.max {
		res.Truncated = len(res.Candidates) - l.max
		res.Candidates = res.Candidates[:l.max]
	}
	return res
}

func (l *Locator) scan(doc *document.Document) []Candidate {
	h := l.heuristic
	var out []Candidate
	containers := doc.Find(h.Containers)
	for i := range containers.Nodes {
		node := containers.Eq(i)
		if document.Select(node, h.Markers).Length() == 0 || document.Select(node, h.Links).Length() == 0 {
			continue
		}
		text := document.Text(node)
		if n := document.Length(text); n < h.MinText || n >= h.MaxText {
			continue
		}
		if document.ContainsAny(text, h.Stoplist) {
			continue
		}
		out = append(out, Candidate{Node: node, Strategy: HeuristicStrategy})
	}
	return out
}
