// Package dedupe collapses records that share an identity key. The first
// occurrence of a key keeps its position in the output.
package dedupe

import (
	"fmt"
	"strings"

	"github.com/octobees/exhibitor-leads/internal/entity"
)

// Policy decides what happens to a later record whose key was already seen.
type Policy string

const (
	// First drops later duplicates entirely.
	First Policy = "first"
	// FillMissing keeps the first record and fills its empty optional fields
	// from later duplicates.
	FillMissing Policy = "fill"
)

// ParsePolicy maps a configuration value to a Policy. Empty selects First.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", First:
		return First, nil
	case FillMissing:
		return FillMissing, nil
	default:
		return "", fmt.Errorf("unknown dedupe policy %q", value)
	}
}

// By returns items with duplicate keys removed. merge, when not nil, is called
// with the kept item and each later duplicate.
func By[T any, K comparable](items []T, key func(T) K, merge func(kept *T, dup T)) []T {
	out := make([]T, 0, len(items))
	seen := make(map[K]int, len(items))
	for _, item := range items {
		k := key(item)
		if i, ok := seen[k]; ok {
			if merge != nil {
				merge(&out[i], item)
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, item)
	}
	return out
}

// ExhibitorKey is the normalised exhibitor name.
func ExhibitorKey(e entity.Exhibitor) string {
	return strings.ToLower(strings.Join(strings.Fields(e.Name), " "))
}

// ContactKey is the full name and position exactly as extracted.
type ContactKey struct {
	FullName string
	Position string
}

// KeyOf returns the identity key of c.
func KeyOf(c entity.Contact) ContactKey {
	return ContactKey{FullName: c.FullName, Position: c.Position}
}

// Exhibitors removes exhibitors with a repeated name.
func Exhibitors(in []entity.Exhibitor, policy Policy) []entity.Exhibitor {
	var merge func(*entity.Exhibitor, entity.Exhibitor)
	if policy == FillMissing {
		merge = fillExhibitor
	}
	return By(in, ExhibitorKey, merge)
}

// Contacts removes contacts with a repeated (full name, position) pair.
func Contacts(in []entity.Contact, policy Policy) []entity.Contact {
	var merge func(*entity.Contact, entity.Contact)
	if policy == FillMissing {
		merge = fillContact
	}
	return By(in, KeyOf, merge)
}

func fillExhibitor(kept *entity.Exhibitor, dup entity.Exhibitor) {
	fill(&kept.City, dup.City)
	fill(&kept.Website, dup.Website)
	fill(&kept.Email, dup.Email)
}

func fillContact(kept *entity.Contact, dup entity.Contact) {
	fill(&kept.Email, dup.Email)
}

func fill(dst **string, src *string) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}
