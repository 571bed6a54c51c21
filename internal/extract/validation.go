package extract

import (
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

var (
	emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-']+@[a-z0-9.-]+\.[a-z]{2,}$`)
	phonePattern = regexp.MustCompile(`\+\d[\d\s()./-]{5,}\d`)
	idnaProfile  = idna.Lookup
)

const trackingPrefix = "utm_"

// NormalizeEmail lowercases raw and checks it is a deliverable-looking address
// with a valid, IDNA-encodable domain.
func NormalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || !emailPattern.MatchString(email) {
		return "", false
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	if !isDomainValid(domain) {
		return "", false
	}
	if ascii, err := idnaProfile.ToASCII(domain); err != nil || ascii == "" {
		return "", false
	}
	return email, true
}

func mailtoAddress(href string) (string, bool) {
	rest, ok := cutPrefixFold(href, "mailto:")
	if !ok {
		return "", false
	}
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest = rest[:i]
	}
	if unescaped, err := url.PathUnescape(rest); err == nil {
		rest = unescaped
	}
	// mailto may carry several recipients; the first one counts.
	if i := strings.IndexByte(rest, ','); i >= 0 {
		rest = rest[:i]
	}
	return NormalizeEmail(rest)
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

func isDomainValid(domain string) bool {
	if strings.Count(domain, ".") == 0 {
		return false
	}
	parts := strings.Split(domain, ".")
	for _, part := range parts {
		if part == "" || strings.HasPrefix(part, "-") || strings.HasSuffix(part, "-") {
			return false
		}
	}
	return true
}

func stripTracking(u *url.URL) {
	if u == nil || u.RawQuery == "" {
		return
	}
	query := u.Query()
	changed := false
	for key := range query {
		if strings.HasPrefix(strings.ToLower(key), trackingPrefix) {
			query.Del(key)
			changed = true
		}
	}
	if changed {
		u.RawQuery = query.Encode()
	}
}

// HostFilter rejects URLs that point back at the listing site itself.
type HostFilter struct {
	domains []string
}

// NewHostFilter excludes each of hosts and, when base is set, the registrable
// domain of the page being scraped.
func NewHostFilter(hosts []string, base *url.URL) *HostFilter {
	f := &HostFilter{}
	for _, h := range hosts {
		if h = normalizeHost(h); h != "" {
			f.domains = append(f.domains, h)
		}
	}
	if base != nil {
		if host := normalizeHost(base.Hostname()); host != "" {
			f.domains = append(f.domains, registrableDomain(host))
		}
	}
	return f
}

// Excluded reports whether host equals or is a subdomain of an excluded domain.
func (f *HostFilter) Excluded(host string) bool {
	host = normalizeHost(host)
	for _, d := range f.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Website parses raw as an absolute http(s) URL outside the excluded hosts
// and drops utm_ tracking parameters.
func (f *HostFilter) Website(raw string) (string, bool) {
	raw = strings.TrimRight(strings.TrimSpace(raw), ".,;:!?)")
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	if f.Excluded(u.Hostname()) {
		return "", false
	}
	stripTracking(u)
	return u.String(), true
}

func normalizeHost(host string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(host), "."))
}

func registrableDomain(host string) string {
	if net.ParseIP(host) != nil {
		return host
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

// phoneRegion finds the first valid international phone number in text and
// returns its ISO region code.
func phoneRegion(text string) (string, bool) {
	for _, raw := range phonePattern.FindAllString(text, -1) {
		number, err := phonenumbers.Parse(raw, "")
		if err != nil || !phonenumbers.IsValidNumber(number) {
			continue
		}
		if region := phonenumbers.GetRegionCodeForNumber(number); region != "" && region != "ZZ" {
			return region, true
		}
	}
	return "", false
}
