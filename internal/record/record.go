// Package record turns candidate nodes into validated exhibitor and contact
// records.
package record

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/octobees/exhibitor-leads/internal/document"
	"github.com/octobees/exhibitor-leads/internal/entity"
	"github.com/octobees/exhibitor-leads/internal/extract"
	"github.com/octobees/exhibitor-leads/internal/profile"
	"github.com/octobees/exhibitor-leads/internal/roles"
)

// Name length window applied after trimming.
const (
	MinNameLength = 3
	MaxNameLength = 100
)

// Rejection reasons.
const (
	ReasonMissingName     = "missing_name"
	ReasonNameLength      = "name_length"
	ReasonStoplistedName  = "stoplisted_name"
	ReasonMissingFullName = "missing_full_name"
	ReasonMissingPosition = "missing_position"
	ReasonRoleMismatch    = "role_mismatch"
)

// Outcome describes what happened to one candidate.
type Outcome struct {
	Accepted bool
	Reason   string
	// Misses lists optional fields whose cascade found nothing.
	Misses []string
}

// Listing is a typed person hit returned by an external directory.
type Listing struct {
	Name     string
	Position string
	Email    string
	Source   string
}

// Builder builds records for the candidates of one document.
type Builder struct {
	exhibitor extract.ExhibitorFields
	contact   extract.ContactFields
	stoplist  []string
	roles     *roles.Taxonomy
}

// NewBuilder prepares the cascades for a document loaded from base.
func NewBuilder(e *extract.Extractor, p *profile.Profile, base *url.URL) *Builder {
	stoplist := make([]string, 0, len(p.Fields.Name.Stoplist))
	for _, s := range p.Fields.Name.Stoplist {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			stoplist = append(stoplist, s)
		}
	}
	return &Builder{
		exhibitor: e.Exhibitor(base),
		contact:   e.Contact(),
		stoplist:  stoplist,
		roles:     roles.New(p.Roles),
	}
}

// Exhibitor builds an exhibitor record from node. The record is usable only
// when the outcome is accepted.
func (b *Builder) Exhibitor(node *goquery.Selection) (entity.Exhibitor, Outcome) {
	raw, ok := b.exhibitor.Name.Value(node)
	if !ok {
		return entity.Exhibitor{}, Outcome{Reason: ReasonMissingName}
	}
	name := strings.TrimSpace(raw)
	if reason := b.checkName(name); reason != "" {
		return entity.Exhibitor{}, Outcome{Reason: reason}
	}

	out := Outcome{Accepted: true}
	rec := entity.Exhibitor{Name: name}
	rec.City = b.optional(b.exhibitor.City, node, &out)
	if country, ok := b.exhibitor.Country.Value(node); ok {
		rec.Country = country
	} else {
		out.Misses = append(out.Misses, b.exhibitor.Country.Field)
	}
	rec.Website = b.optional(b.exhibitor.Website, node, &out)
	rec.Email = b.optional(b.exhibitor.Email, node, &out)
	return rec, out
}

func (b *Builder) checkName(name string) string {
	if n := document.Length(name); n < MinNameLength || n >= MaxNameLength {
		return ReasonNameLength
	}
	lower := strings.ToLower(name)
	for _, s := range b.stoplist {
		if strings.Contains(lower, s) {
			return ReasonStoplistedName
		}
	}
	return ""
}

func (b *Builder) optional(c extract.Cascade, node *goquery.Selection, out *Outcome) *string {
	v := c.Optional(node)
	if v == nil {
		out.Misses = append(out.Misses, c.Field)
	}
	return v
}

// Contact builds a contact of company from a person block found on a page.
func (b *Builder) Contact(node *goquery.Selection, company, source string) (entity.Contact, Outcome) {
	fullName, ok := b.contact.FullName.Value(node)
	if !ok {
		return entity.Contact{}, Outcome{Reason: ReasonMissingFullName}
	}
	position, ok := b.contact.Position.Value(node)
	if !ok {
		return entity.Contact{}, Outcome{Reason: ReasonMissingPosition}
	}
	if !b.roles.Allows(position) {
		return entity.Contact{}, Outcome{Reason: ReasonRoleMismatch}
	}
	out := Outcome{Accepted: true}
	return entity.Contact{
		CompanyName: company,
		FullName:    fullName,
		Position:    position,
		Email:       b.optional(b.contact.Email, node, &out),
		Source:      source,
	}, out
}

// ContactFromListing validates a directory hit the same way a page contact is
// validated.
func (b *Builder) ContactFromListing(l Listing, company string) (entity.Contact, Outcome) {
	fullName := document.Clean(l.Name)
	if fullName == "" {
		return entity.Contact{}, Outcome{Reason: ReasonMissingFullName}
	}
	position := document.Clean(l.Position)
	if position == "" {
		return entity.Contact{}, Outcome{Reason: ReasonMissingPosition}
	}
	if !b.roles.Allows(position) {
		return entity.Contact{}, Outcome{Reason: ReasonRoleMismatch}
	}
	c := entity.Contact{CompanyName: company, FullName: fullName, Position: position, Source: l.Source}
	out := Outcome{Accepted: true}
	if email, ok := extract.NormalizeEmail(l.Email); ok {
		c.Email = &email
	} else {
		out.Misses = append(out.Misses, "email")
	}
	return c, out
}
