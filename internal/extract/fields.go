package extract

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/octobees/exhibitor-leads/internal/profile"
)

// Extractor holds the compiled field configuration of a profile.
type Extractor struct {
	fields         profile.Fields
	defaultCountry string
	cityPattern    *regexp.Regexp
	websitePattern *regexp.Regexp
	emailPattern   *regexp.Regexp
	gazetteer      map[string]struct{}
	countries      *CountryMatcher
}

// ExhibitorFields are the cascades for one exhibitor record.
type ExhibitorFields struct {
	Name    Cascade
	City    Cascade
	Country Cascade
	Website Cascade
	Email   Cascade
}

// ContactFields are the cascades for one contact record.
type ContactFields struct {
	FullName Cascade
	Position Cascade
	Email    Cascade
}

// New compiles the field settings of p.
func New(p *profile.Profile) (*Extractor, error) {
	e := &Extractor{
		fields:         p.Fields,
		defaultCountry: p.DefaultCountry,
		gazetteer:      make(map[string]struct{}, len(p.Fields.City.Gazetteer)),
		countries:      NewCountryMatcher(p.Fields.Country.Countries),
	}
	var err error
	if e.cityPattern, err = compileOptional(p.Fields.City.Pattern); err != nil {
		return nil, fmt.Errorf("compile city pattern: %w", err)
	}
	if e.websitePattern, err = compileOptional(p.Fields.Website.Pattern); err != nil {
		return nil, fmt.Errorf("compile website pattern: %w", err)
	}
	if e.emailPattern, err = compileOptional(p.Fields.Email.Pattern); err != nil {
		return nil, fmt.Errorf("compile email pattern: %w", err)
	}
	for _, city := range p.Fields.City.Gazetteer {
		e.gazetteer[city] = struct{}{}
	}
	return e, nil
}

func compileOptional(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

// Countries exposes the country matcher.
func (e *Extractor) Countries() *CountryMatcher {
	return e.countries
}

// Exhibitor builds the exhibitor cascades for a page loaded from base.
// base may be nil when the page origin is unknown.
func (e *Extractor) Exhibitor(base *url.URL) ExhibitorFields {
	f := e.fields
	hosts := NewHostFilter(f.Website.ExcludeHosts, base)

	name := Cascade{Field: "name", Rules: SelectorRules(f.Name.Selectors, Window(f.Name.Min, f.Name.Max))}
	if f.Name.FallbackChildren != "" {
		name.Rules = append(name.Rules, ChildTextRule(f.Name.FallbackChildren, Window(f.Name.FallbackMin, f.Name.FallbackMax)))
	}

	city := Cascade{Field: "city", Rules: SelectorRules(f.City.Selectors, nil)}
	if e.cityPattern != nil && len(e.gazetteer) > 0 {
		city.Rules = append(city.Rules, PatternRule("gazetteer", e.cityPattern, e.inGazetteer))
	}

	country := Cascade{Field: "country", Rules: SelectorRules(f.Country.Selectors, e.countries.Canonical)}
	country.Rules = append(country.Rules, Rule{Name: "country list", Apply: textRule(e.countries.Find)})
	if f.Country.InferFromPhone {
		country.Rules = append(country.Rules, Rule{Name: "phone prefix", Apply: textRule(e.countryFromPhone)})
	}
	country.Rules = append(country.Rules, Fixed("default", e.defaultCountry))

	website := Cascade{Field: "website", Rules: []Rule{LinkRule("link", "a[href]", hosts.Website)}}
	if e.websitePattern != nil {
		website.Rules = append(website.Rules, PatternRule("url pattern", e.websitePattern, hosts.Website))
	}

	return ExhibitorFields{
		Name:    name,
		City:    city,
		Country: country,
		Website: website,
		Email:   e.emailCascade(),
	}
}

// Contact builds the contact cascades.
func (e *Extractor) Contact() ContactFields {
	f := e.fields
	return ContactFields{
		FullName: Cascade{Field: "full_name", Rules: SelectorRules(f.FullName.Selectors, Window(2, 100))},
		Position: Cascade{Field: "position", Rules: SelectorRules(f.Position.Selectors, nil)},
		Email:    e.emailCascade(),
	}
}

func (e *Extractor) emailCascade() Cascade {
	c := Cascade{Field: "email"}
	if e.emailPattern != nil {
		c.Rules = append(c.Rules, PatternRule("email pattern", e.emailPattern, NormalizeEmail))
	}
	// mailto hrefs only count when the text carries no address.
	if e.fields.Email.Mailto {
		c.Rules = append(c.Rules, LinkRule("mailto", "a[href]", mailtoAddress))
	}
	return c
}

func (e *Extractor) inGazetteer(raw string) (string, bool) {
	_, ok := e.gazetteer[raw]
	return raw, ok
}

func (e *Extractor) countryFromPhone(text string) (string, bool) {
	region, ok := phoneRegion(text)
	if !ok {
		return "", false
	}
	return e.countries.Region(region)
}
