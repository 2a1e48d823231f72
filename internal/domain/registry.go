package domain

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// massBalanceTolerance absorbs float rounding for salts whose published
// fractions sum to exactly 1.
const massBalanceTolerance = 1e-9

// Registry bundles the three read-only tables the engine consults. They are
// keyed by the same parameter names but declared independently, so Validate
// must pass before a Registry is used.
type Registry struct {
	Catalog *Catalog
	Salts   *SaltTable
	Colors  map[string]Color
}

// DefaultRegistry returns the built-in catalog, salt table and colours.
func DefaultRegistry() *Registry {
	return &Registry{
		Catalog: DefaultCatalog(),
		Salts:   DefaultSalts(),
		Colors:  DefaultColors(),
	}
}

// Validate checks the cross-references between registries. Salt ions and
// colour keys must name catalog parameters, provider codes must be unique and
// TAC and HCO3 must both exist for the derived alkalinity series. Target
// ranges must be ordered and fractions must lie strictly between 0 and 1.
// All problems are reported together.
func (r *Registry) Validate() error {
	if r == nil || r.Catalog == nil || r.Salts == nil {
		return errors.New("registry: catalog and salt table are required")
	}

	var errs []error
	codes := make(map[string]string, r.Catalog.Len())
	for _, p := range r.Catalog.All() {
		if p.Code == "" {
			errs = append(errs, fmt.Errorf("parameter %q has no provider code", p.Name))
		}
		if other, dup := codes[p.Code]; dup && p.Code != "" {
			errs = append(errs, fmt.Errorf("parameters %q and %q share code %q", other, p.Name, p.Code))
		}
		codes[p.Code] = p.Name
		if p.Target.Min > p.Target.Max {
			errs = append(errs, fmt.Errorf("parameter %q target min %g exceeds max %g", p.Name, p.Target.Min, p.Target.Max))
		}
	}
	for _, name := range []string{ParamTAC, ParamBicarbonate} {
		if _, ok := r.Catalog.Lookup(name); !ok {
			errs = append(errs, fmt.Errorf("catalog is missing %q", name))
		}
	}

	for _, s := range r.Salts.All() {
		if len(s.Ions) == 0 {
			errs = append(errs, fmt.Errorf("salt %q contributes no ions", s.ID))
		}
		var massBalance float64
		for _, share := range s.Ions {
			if _, ok := r.Catalog.Lookup(share.Ion); !ok {
				errs = append(errs, fmt.Errorf("salt %q references unknown ion %q", s.ID, share.Ion))
			}
			if share.Fraction <= 0 || share.Fraction >= 1 {
				errs = append(errs, fmt.Errorf("salt %q ion %q fraction %g outside (0,1)", s.ID, share.Ion, share.Fraction))
			}
			if !share.Equivalent {
				massBalance += share.Fraction
			}
		}
		if massBalance > 1+massBalanceTolerance {
			errs = append(errs, fmt.Errorf("salt %q fractions sum to %g", s.ID, massBalance))
		}
	}

	for _, name := range slices.Sorted(maps.Keys(r.Colors)) {
		if _, ok := r.Catalog.Lookup(name); !ok {
			errs = append(errs, fmt.Errorf("colour registered for unknown parameter %q", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry: %w", errors.Join(errs...))
	}
	return nil
}

// ColorFor returns the chart colour for a parameter, or FallbackColor.
func (r *Registry) ColorFor(name string) Color {
	if c, ok := r.Colors[name]; ok {
		return c
	}
	return FallbackColor
}
