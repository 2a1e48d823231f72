package domain

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// displayLanguage drives name ordering. Provider labels are French.
var displayLanguage = language.French

// newCollator returns a fresh collator; collators keep internal buffers and
// must not be shared between goroutines.
func newCollator() *collate.Collator {
	return collate.New(displayLanguage)
}

// DedupeNetworks collapses commune/network rows into one Network per code,
// sorted by name with French collation (accents and case respected), ties
// broken by code. When rows disagree on the name for one code, the first row
// wins. A row without a code fails with ErrDataShape.
func DedupeNetworks(records []NetworkRecord) ([]Network, error) {
	seen := make(map[string]struct{}, len(records))
	networks := make([]Network, 0, len(records))
	for i, rec := range records {
		code := strings.TrimSpace(rec.Code)
		if code == "" {
			return nil, fmt.Errorf("%w: network record %d has no code", ErrDataShape, i)
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		networks = append(networks, Network{Code: code, Name: rec.Name})
	}

	col := newCollator()
	slices.SortStableFunc(networks, func(a, b Network) int {
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Code, b.Code)
	})
	return networks, nil
}

// SortDepartements orders départements by the numeric part of their code, so
// "2A" and "2B" (Corsica) sit with 2 and overseas codes come last.
func SortDepartements(deps []Departement) {
	slices.SortStableFunc(deps, func(a, b Departement) int {
		if c := cmp.Compare(leadingNumber(a.Code), leadingNumber(b.Code)); c != 0 {
			return c
		}
		return strings.Compare(a.Code, b.Code)
	})
}

// SortCommunes orders communes by collated name, ties broken by INSEE code.
func SortCommunes(communes []Commune) {
	col := newCollator()
	slices.SortStableFunc(communes, func(a, b Commune) int {
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Code, b.Code)
	})
}

// leadingNumber parses the leading decimal digits of s; codes without any
// sort after every numbered one.
func leadingNumber(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return math.MaxInt
	}
	return n
}
