// Package roles filters job titles against an allow list of target roles.
package roles

import "strings"

// Taxonomy is an allow list of lowercase role substrings.
type Taxonomy struct {
	allow []string
}

// New builds a taxonomy. Entries are matched case-insensitively; blanks are ignored.
func New(allow []string) *Taxonomy {
	t := &Taxonomy{allow: make([]string, 0, len(allow))}
	for _, a := range allow {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			t.allow = append(t.allow, a)
		}
	}
	return t
}

// Match returns the first allow-listed role contained in position.
func (t *Taxonomy) Match(position string) (string, bool) {
	p := strings.ToLower(position)
	for _, a := range t.allow {
		if strings.Contains(p, a) {
			return a, true
		}
	}
	return "", false
}

// Allows reports whether position contains any allow-listed role.
func (t *Taxonomy) Allows(position string) bool {
	_, ok := t.Match(position)
	return ok
}
