package domain

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Apply simulates dissolving salts into volumeLiters of water with the default
// salt table. See (*SaltTable).Apply.
func Apply(base IonProfile, additions Additions, volumeLiters float64) (IonProfile, error) {
	return defaultSalts.Apply(base, additions, volumeLiters)
}

// Apply returns base corrected by the given salt additions. Each gram of salt
// adds mass×fraction×1000/volume mg/L to every ion it contributes.
//
// base is never modified; the result holds the base keys plus any ion a
// requested salt introduced. Salts with zero mass are no-ops. A non-positive
// or non-finite volume, a negative or non-finite mass, or an unknown salt
// fails with ErrInvalidInput.
func (t *SaltTable) Apply(base IonProfile, additions Additions, volumeLiters float64) (IonProfile, error) {
	if math.IsNaN(volumeLiters) || math.IsInf(volumeLiters, 0) || volumeLiters <= 0 {
		return nil, fmt.Errorf("%w: water volume must be a positive number of liters, got %g", ErrInvalidInput, volumeLiters)
	}
	if err := t.checkAdditions(additions); err != nil {
		return nil, err
	}

	result := base.Clone(2)
	for _, salt := range t.salts {
		grams := additions[salt.ID]
		if grams <= 0 {
			continue
		}
		for _, share := range salt.Ions {
			result[share.Ion] += grams * share.Fraction * 1000 / volumeLiters
		}
	}
	return result, nil
}

func (t *SaltTable) checkAdditions(additions Additions) error {
	known := 0
	for _, salt := range t.salts {
		grams, ok := additions[salt.ID]
		if !ok {
			continue
		}
		known++
		if math.IsNaN(grams) || math.IsInf(grams, 0) || grams < 0 {
			return fmt.Errorf("%w: %s mass must be a non-negative number of grams, got %g", ErrInvalidInput, salt.ID, grams)
		}
	}
	if known == len(additions) {
		return nil
	}
	for _, id := range slices.Sorted(maps.Keys(additions)) {
		if _, ok := t.byID[id]; !ok {
			return fmt.Errorf("%w: unknown salt %q", ErrInvalidInput, id)
		}
	}
	return nil
}

// ParseAdditions converts form input into salt masses. Values that do not
// parse as finite numbers count as zero, matching an empty form field.
func ParseAdditions(form map[string]string) Additions {
	out := make(Additions, len(form))
	for id, raw := range form {
		out[id] = parseMass(raw)
	}
	return out
}

func parseMass(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ParseVolume reads a water volume in liters from form input. Unlike masses,
// an unreadable or non-positive volume is an error: dividing by it would be
// meaningless.
func ParseVolume(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: water volume %q is not a number", ErrInvalidInput, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("%w: water volume must be positive, got %q", ErrInvalidInput, raw)
	}
	return v, nil
}

// ProfileRow is one line of the calculator view.
type ProfileRow struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Unit    string  `json:"unit"`
	Target  Range   `json:"target"`
	InRange bool    `json:"in_range"`
	Display string  `json:"display"`
}

// EvaluateProfile lists the ions a brewer adjusts, in catalog order, each
// compared against its target range. TAC and PH are not shifted by salt
// additions in this model and are left out.
func EvaluateProfile(p IonProfile, c *Catalog) []ProfileRow {
	rows := make([]ProfileRow, 0, c.Len())
	for _, param := range c.All() {
		if param.Name == ParamTAC || param.Name == ParamPH {
			continue
		}
		v := p[param.Name]
		rows = append(rows, ProfileRow{
			Name:    param.Name,
			Value:   v,
			Unit:    param.Unit,
			Target:  param.Target,
			InRange: param.Target.Contains(v),
			Display: FormatConcentration(v, param.Unit),
		})
	}
	return rows
}

// FormatConcentration renders v with one decimal followed by its unit.
func FormatConcentration(v float64, unit string) string {
	return decimal.NewFromFloat(v).StringFixed(1) + " " + unit
}
