package domain

// Brewing salt identifiers accepted by Apply.
const (
	SaltCalciumSulfate    = "calciumSulfate"
	SaltMagnesiumSulfate  = "magnesiumSulfate"
	SaltCalciumChloride   = "calciumChloride"
	SaltSodiumChloride    = "sodiumChloride"
	SaltCalciumCarbonate  = "calciumCarbonate"
	SaltSodiumBicarbonate = "sodiumBicarbonate"
	SaltPotassiumChloride = "potassiumChloride"
)

// IonShare is the fraction of a salt's mass that dissolves into one ion.
type IonShare struct {
	Ion      string  `json:"ion"` // catalog parameter name
	Fraction float64 `json:"fraction"`
	// Equivalent marks a contribution expressed as an equivalent of another
	// species (chalk counted as bicarbonate), so it is excluded from the
	// mass-balance check.
	Equivalent bool `json:"equivalent,omitempty"`
}

// Salt is one brewing salt and the ions it contributes when dissolved.
type Salt struct {
	ID      string     `json:"id"`
	Formula string     `json:"formula"`
	Label   string     `json:"label"`
	Ions    []IonShare `json:"ions"`
}

// SaltTable is the ordered stoichiometry registry. Order fixes the summation
// order in Apply so results are bit-for-bit reproducible.
type SaltTable struct {
	salts []Salt
	byID  map[string]int
}

// NewSaltTable builds a table from salts in the given order.
func NewSaltTable(salts ...Salt) *SaltTable {
	t := &SaltTable{
		salts: make([]Salt, 0, len(salts)),
		byID:  make(map[string]int, len(salts)),
	}
	for _, s := range salts {
		if _, dup := t.byID[s.ID]; dup {
			continue
		}
		t.byID[s.ID] = len(t.salts)
		t.salts = append(t.salts, s)
	}
	return t
}

// Lookup returns the salt registered under id.
func (t *SaltTable) Lookup(id string) (Salt, bool) {
	i, ok := t.byID[id]
	if !ok {
		return Salt{}, false
	}
	return t.salts[i], true
}

// All returns the salts in table order. The slice is a copy.
func (t *SaltTable) All() []Salt {
	out := make([]Salt, len(t.salts))
	copy(out, t.salts)
	return out
}

// IDs returns the salt identifiers in table order.
func (t *SaltTable) IDs() []string {
	ids := make([]string, len(t.salts))
	for i, s := range t.salts {
		ids[i] = s.ID
	}
	return ids
}

var defaultSalts = NewSaltTable(
	Salt{ID: SaltCalciumSulfate, Formula: "CaSO4·2H2O", Label: "Gypsum", Ions: []IonShare{
		{Ion: ParamCalcium, Fraction: 0.2324},
		{Ion: ParamSulfate, Fraction: 0.5570},
	}},
	Salt{ID: SaltMagnesiumSulfate, Formula: "MgSO4·7H2O", Label: "Epsom salt", Ions: []IonShare{
		{Ion: ParamMagnesium, Fraction: 0.0986},
		{Ion: ParamSulfate, Fraction: 0.3900},
	}},
	Salt{ID: SaltCalciumChloride, Formula: "CaCl2·2H2O", Label: "Calcium chloride", Ions: []IonShare{
		{Ion: ParamCalcium, Fraction: 0.2772},
		{Ion: ParamChloride, Fraction: 0.4925},
	}},
	Salt{ID: SaltSodiumChloride, Formula: "NaCl", Label: "Table salt", Ions: []IonShare{
		{Ion: ParamSodium, Fraction: 0.3934},
		{Ion: ParamChloride, Fraction: 0.6066},
	}},
	Salt{ID: SaltCalciumCarbonate, Formula: "CaCO3", Label: "Chalk", Ions: []IonShare{
		{Ion: ParamCalcium, Fraction: 0.4004},
		{Ion: ParamBicarbonate, Fraction: 0.9756, Equivalent: true},
	}},
	Salt{ID: SaltSodiumBicarbonate, Formula: "NaHCO3", Label: "Baking soda", Ions: []IonShare{
		{Ion: ParamSodium, Fraction: 0.2736},
		{Ion: ParamBicarbonate, Fraction: 0.7264},
	}},
	Salt{ID: SaltPotassiumChloride, Formula: "KCl", Label: "Potassium chloride", Ions: []IonShare{
		{Ion: ParamPotassium, Fraction: 0.5244},
		{Ion: ParamChloride, Fraction: 0.4756},
	}},
)

// DefaultSalts returns the brewing salt stoichiometry table.
func DefaultSalts() *SaltTable { return defaultSalts }
