package document

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Text flattens every text node under sel into one string. Text nodes are
// joined by a single space and runs of whitespace are collapsed.
// Script, style and template contents are skipped.
func Text(sel *goquery.Selection) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, " ")
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		if fields := strings.Fields(n.Data); len(fields) > 0 {
			*parts = append(*parts, strings.Join(fields, " "))
		}
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
	case html.CommentNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// Clean collapses whitespace and trims s.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Length counts the characters of s, not its bytes.
func Length(s string) int {
	return len([]rune(s))
}

// ContainsAny reports whether text contains one of phrases, ignoring case.
// Blank phrases never match.
func ContainsAny(text string, phrases []string) bool {
	text = strings.ToLower(text)
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" && strings.Contains(text, p) {
			return true
		}
	}
	return false
}
