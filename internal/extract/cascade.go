// Package extract pulls individual field values out of a candidate node by
// running ordered rule cascades. A cascade never fails; it either yields a
// value or reports a miss.
package extract

import (
	"github.com/PuerkitoBio/goquery"
)

// Rule is one step of a cascade. Apply returns the validated value it found.
type Rule struct {
	Name  string
	Apply func(node *goquery.Selection) (string, bool)
}

// Match is the value a cascade produced and the rule that produced it.
type Match struct {
	Value string
	Rule  string
}

// Cascade runs its rules in order and keeps the first non-empty value.
type Cascade struct {
	Field string
	Rules []Rule
}

// Extract runs the cascade against node.
func (c Cascade) Extract(node *goquery.Selection) (Match, bool) {
	if node == nil || node.Length() == 0 {
		return Match{}, false
	}
	for _, rule := range c.Rules {
		if value, ok := rule.Apply(node); ok && value != "" {
			return Match{Value: value, Rule: rule.Name}, true
		}
	}
	return Match{}, false
}

// Value is Extract without the rule name.
func (c Cascade) Value(node *goquery.Selection) (string, bool) {
	m, ok := c.Extract(node)
	return m.Value, ok
}

// Optional returns a pointer to the extracted value, or nil on a miss.
func (c Cascade) Optional(node *goquery.Selection) *string {
	m, ok := c.Extract(node)
	if !ok {
		return nil
	}
	return &m.Value
}
