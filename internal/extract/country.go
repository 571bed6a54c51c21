package extract

import (
	"regexp"
	"strings"

	"github.com/octobees/exhibitor-leads/internal/profile"
)

// Country terms of at most shortAlias characters only match whole words.
const shortAlias = 3

type countryTerm struct {
	canonical string
	lower     string
	word      *regexp.Regexp
}

// CountryMatcher finds known country names and aliases in free text and maps
// them to canonical names.
type CountryMatcher struct {
	terms    []countryTerm
	byRegion map[string]string
}

// NewCountryMatcher builds a matcher over countries in list order.
func NewCountryMatcher(countries []profile.Country) *CountryMatcher {
	m := &CountryMatcher{byRegion: make(map[string]string, len(countries))}
	for _, c := range countries {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		if c.Region != "" {
			m.byRegion[strings.ToUpper(c.Region)] = name
		}
		for _, term := range append([]string{name}, c.Aliases...) {
			term = strings.TrimSpace(term)
			if term == "" {
				continue
			}
			t := countryTerm{canonical: name, lower: strings.ToLower(term)}
			if len([]rune(term)) <= shortAlias {
				t.word = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
			}
			m.terms = append(m.terms, t)
		}
	}
	return m
}

// Find returns the canonical name of the first country mentioned in text.
func (m *CountryMatcher) Find(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, t := range m.terms {
		if t.word != nil {
			if t.word.MatchString(text) {
				return t.canonical, true
			}
			continue
		}
		if strings.Contains(lower, t.lower) {
			return t.canonical, true
		}
	}
	return "", false
}

// Canonical maps an explicit country value to its canonical name when it is
// known, and otherwise keeps it as written.
func (m *CountryMatcher) Canonical(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	if name, ok := m.Find(value); ok {
		return name, true
	}
	return value, true
}

// Region maps an ISO region code to a canonical country name.
func (m *CountryMatcher) Region(code string) (string, bool) {
	name, ok := m.byRegion[strings.ToUpper(code)]
	return name, ok
}
