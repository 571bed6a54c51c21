package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/octobees/exhibitor-leads/internal/document"
)

// Accept validates and normalises a raw value found by a rule.
type Accept func(raw string) (string, bool)

var attrOnlySelector = regexp.MustCompile(`^\[([A-Za-z0-9_:-]+)\]$`)

func keep(raw string) (string, bool) {
	return raw, raw != ""
}

// Window accepts values whose character length is within [lo, hi).
func Window(lo, hi int) Accept {
	return func(raw string) (string, bool) {
		n := document.Length(raw)
		return raw, n >= lo && n < hi
	}
}

// SelectorRule checks the first descendant matching selector. Bare attribute
// selectors such as [data-city] fall back to the attribute value when the
// element has no text.
func SelectorRule(selector string, accept Accept) Rule {
	if accept == nil {
		accept = keep
	}
	var attr string
	if m := attrOnlySelector.FindStringSubmatch(strings.TrimSpace(selector)); m != nil {
		attr = m[1]
	}
	return Rule{
		Name: "selector " + selector,
		Apply: func(node *goquery.Selection) (string, bool) {
			found := document.Select(node, selector).First()
			if found.Length() == 0 {
				return "", false
			}
			text := document.Text(found)
			if text == "" && attr != "" {
				value, _ := found.Attr(attr)
				text = document.Clean(value)
			}
			if text == "" {
				return "", false
			}
			return accept(text)
		},
	}
}

// SelectorRules builds one SelectorRule per selector, in order.
func SelectorRules(selectors []string, accept Accept) []Rule {
	rules := make([]Rule, 0, len(selectors))
	for _, s := range selectors {
		rules = append(rules, SelectorRule(s, accept))
	}
	return rules
}

// PatternRule scans the flattened text of the node and returns the first
// match that accept keeps.
func PatternRule(name string, re *regexp.Regexp, accept Accept) Rule {
	if accept == nil {
		accept = keep
	}
	return Rule{
		Name: name,
		Apply: func(node *goquery.Selection) (string, bool) {
			for _, m := range re.FindAllString(document.Text(node), -1) {
				if v, ok := accept(m); ok {
					return v, true
				}
			}
			return "", false
		},
	}
}

// ChildTextRule looks only at direct children matching selector.
func ChildTextRule(selector string, accept Accept) Rule {
	if accept == nil {
		accept = keep
	}
	return Rule{
		Name: "children " + selector,
		Apply: func(node *goquery.Selection) (string, bool) {
			children := node.ChildrenFiltered(selector)
			for i := range children.Nodes {
				text := document.Text(children.Eq(i))
				if text == "" {
					continue
				}
				if v, ok := accept(text); ok {
					return v, true
				}
			}
			return "", false
		},
	}
}

// LinkRule walks hyperlinks under the node in document order.
func LinkRule(name, selector string, accept Accept) Rule {
	return Rule{
		Name: name,
		Apply: func(node *goquery.Selection) (string, bool) {
			links := document.Select(node, selector)
			for i := range links.Nodes {
				href, ok := links.Eq(i).Attr("href")
				if !ok {
					continue
				}
				if v, ok := accept(strings.TrimSpace(href)); ok {
					return v, true
				}
			}
			return "", false
		},
	}
}

// Fixed always yields value. It terminates cascades that carry a default.
func Fixed(name, value string) Rule {
	return Rule{
		Name: name,
		Apply: func(*goquery.Selection) (string, bool) {
			return value, value != ""
		},
	}
}

func textRule(find func(text string) (string, bool)) func(*goquery.Selection) (string, bool) {
	return func(node *goquery.Selection) (string, bool) {
		return find(document.Text(node))
	}
}
