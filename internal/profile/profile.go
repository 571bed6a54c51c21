// Package profile holds the selector lists, word lists and limits that drive
// extraction. Profiles are YAML documents; an embedded default covers German
// trade-fair exhibitor listings.
package profile

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/octobees/exhibitor-leads/internal/document"
)

//go:embed default.yaml
var defaultProfile []byte

// Profile is a complete extraction configuration.
type Profile struct {
	DefaultCountry string     `yaml:"default_country"`
	MaxCandidates  int        `yaml:"max_candidates"`
	Exhibitor      Locator    `yaml:"exhibitor"`
	Contact        Locator    `yaml:"contact"`
	Fields         Fields     `yaml:"fields"`
	Roles          []string   `yaml:"roles"`
	Enrichment     Enrichment `yaml:"enrichment"`
	Discovery      Discovery  `yaml:"discovery"`
}

// Strategy is a named selector that yields candidate containers.
type Strategy struct {
	Name     string `yaml:"name"`
	Selector string `yaml:"selector"`
}

// Heuristic configures the generic container scan used when no strategy matches.
type Heuristic struct {
	Containers string   `yaml:"containers"`
	Markers    string   `yaml:"markers"`
	Links      string   `yaml:"links"`
	MinText    int      `yaml:"min_text"`
	MaxText    int      `yaml:"max_text"`
	Stoplist   []string `yaml:"stoplist"`
}

// Locator lists strategies in priority order plus an optional fallback.
type Locator struct {
	Strategies []Strategy `yaml:"strategies"`
	Heuristic  *Heuristic `yaml:"heuristic"`
}

// Fields groups the per-field cascade settings.
type Fields struct {
	Name     NameField     `yaml:"name"`
	City     CityField     `yaml:"city"`
	Country  CountryField  `yaml:"country"`
	Website  WebsiteField  `yaml:"website"`
	Email    EmailField    `yaml:"email"`
	FullName SelectorField `yaml:"full_name"`
	Position SelectorField `yaml:"position"`
}

// SelectorField is a plain selector cascade.
type SelectorField struct {
	Selectors []string `yaml:"selectors"`
}

// NameField configures company name extraction.
type NameField struct {
	Selectors        []string `yaml:"selectors"`
	Min              int      `yaml:"min"`
	Max              int      `yaml:"max"`
	FallbackChildren string   `yaml:"fallback_children"`
	FallbackMin      int      `yaml:"fallback_min"`
	FallbackMax      int      `yaml:"fallback_max"`
	Stoplist         []string `yaml:"stoplist"`
}

// CityField configures city extraction.
type CityField struct {
	Selectors []string `yaml:"selectors"`
	Pattern   string   `yaml:"pattern"`
	Gazetteer []string `yaml:"gazetteer"`
}

// Country is a canonical country name with its ISO region and local aliases.
type Country struct {
	Name    string   `yaml:"name"`
	Region  string   `yaml:"region"`
	Aliases []string `yaml:"aliases"`
}

// CountryField configures country extraction.
type CountryField struct {
	Selectors      []string  `yaml:"selectors"`
	InferFromPhone bool      `yaml:"infer_from_phone"`
	Countries      []Country `yaml:"countries"`
}

// WebsiteField configures website extraction.
type WebsiteField struct {
	ExcludeHosts []string `yaml:"exclude_hosts"`
	Pattern      string   `yaml:"pattern"`
}

// EmailField configures email extraction.
type EmailField struct {
	Pattern string `yaml:"pattern"`
	Mailto  bool   `yaml:"mailto"`
}

// Directory is an external people directory searched by site restriction.
type Directory struct {
	Name string `yaml:"name"`
	Site string `yaml:"site"`
}

// Enrichment configures contact lookups.
type Enrichment struct {
	Directories         []Directory `yaml:"directories"`
	PhraseGroups        [][]string  `yaml:"phrase_groups"`
	ContactLinkKeywords []string    `yaml:"contact_link_keywords"`
}

// Discovery configures how exhibitor-list pages are found from a landing page.
type Discovery struct {
	TextKeywords  []string `yaml:"text_keywords"`
	HrefKeywords  []string `yaml:"href_keywords"`
	StandardPaths []string `yaml:"standard_paths"`
	MaxPages      int      `yaml:"max_pages"`
}

// Default returns a fresh copy of the embedded profile.
func Default() *Profile {
	p, err := Decode(defaultProfile)
	if err != nil {
		panic(fmt.Sprintf("embedded profile is invalid: %v", err))
	}
	return p
}

// Load reads a profile from path, or returns the default when path is empty.
func Load(path string) (*Profile, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return Decode(data)
}

// Decode parses and validates a YAML profile. Unknown keys are rejected.
func Decode(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.UnmarshalWithOptions(data, &p, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that the profile can drive a full extraction.
func (p *Profile) Validate() error {
	var errs []error
	if strings.TrimSpace(p.DefaultCountry) == "" {
		errs = append(errs, errors.New("default_country is required"))
	}
	if p.MaxCandidates < 0 {
		errs = append(errs, errors.New("max_candidates must not be negative"))
	}
	if len(p.Exhibitor.Strategies) == 0 {
		errs = append(errs, errors.New("exhibitor.strategies must not be empty"))
	}
	if len(p.Contact.Strategies) == 0 {
		errs = append(errs, errors.New("contact.strategies must not be empty"))
	}
	errs = append(errs, checkLocator("exhibitor", p.Exhibitor)...)
	errs = append(errs, checkLocator("contact", p.Contact)...)

	f := p.Fields
	if len(f.Name.Selectors) == 0 {
		errs = append(errs, errors.New("fields.name.selectors must not be empty"))
	}
	if f.Name.Min <= 0 || f.Name.Max <= f.Name.Min {
		errs = append(errs, fmt.Errorf("fields.name window [%d, %d) is invalid", f.Name.Min, f.Name.Max))
	}
	if f.Name.FallbackChildren != "" && (f.Name.FallbackMin <= 0 || f.Name.FallbackMax <= f.Name.FallbackMin) {
		errs = append(errs, fmt.Errorf("fields.name fallback window [%d, %d) is invalid", f.Name.FallbackMin, f.Name.FallbackMax))
	}
	if len(f.FullName.Selectors) == 0 || len(f.Position.Selectors) == 0 {
		errs = append(errs, errors.New("fields.full_name and fields.position need selectors"))
	}
	selectors := [][]string{f.Name.Selectors, f.City.Selectors, f.Country.Selectors, f.FullName.Selectors, f.Position.Selectors}
	for _, group := range selectors {
		for _, s := range group {
			if err := document.CheckSelector(s); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if f.Name.FallbackChildren != "" {
		if err := document.CheckSelector(f.Name.FallbackChildren); err != nil {
			errs = append(errs, err)
		}
	}
	for field, pattern := range map[string]string{"city": f.City.Pattern, "website": f.Website.Pattern, "email": f.Email.Pattern} {
		if pattern == "" {
			continue
		}
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("fields.%s.pattern: %w", field, err))
		}
	}
	for _, c := range f.Country.Countries {
		if strings.TrimSpace(c.Name) == "" {
			errs = append(errs, errors.New("fields.country.countries entries need a name"))
		}
	}

	if len(p.Roles) == 0 {
		errs = append(errs, errors.New("roles must not be empty"))
	}
	for _, d := range p.Enrichment.Directories {
		if d.Name == "" || d.Site == "" {
			errs = append(errs, errors.New("enrichment.directories entries need name and site"))
		}
	}
	for _, group := range p.Enrichment.PhraseGroups {
		if len(group) == 0 {
			errs = append(errs, errors.New("enrichment.phrase_groups must not contain empty groups"))
		}
	}
	if p.Discovery.MaxPages < 0 {
		errs = append(errs, errors.New("discovery.max_pages must not be negative"))
	}
	return errors.Join(errs...)
}

func checkLocator(name string, l Locator) []error {
	var errs []error
	for _, s := range l.Strategies {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("%s strategy with selector %q needs a name", name, s.Selector))
		}
		if err := document.CheckSelector(s.Selector); err != nil {
			errs = append(errs, fmt.Errorf("%s strategy %s: %w", name, s.Name, err))
		}
	}
	if h := l.Heuristic; h != nil {
		for _, s := range []string{h.Containers, h.Markers, h.Links} {
			if err := document.CheckSelector(s); err != nil {
				errs = append(errs, fmt.Errorf("%s heuristic: %w", name, err))
			}
		}
		if h.MinText < 0 || h.MaxText <= h.MinText {
			errs = append(errs, fmt.Errorf("%s heuristic text window [%d, %d) is invalid", name, h.MinText, h.MaxText))
		}
	}
	return errs
}
