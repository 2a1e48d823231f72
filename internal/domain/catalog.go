package domain

// Catalog parameter names. These are the keys of every IonProfile.
const (
	ParamCalcium     = "CALCIUM (CA)"
	ParamMagnesium   = "MAGNESIUM (MG)"
	ParamSodium      = "SODIUM (NA)"
	ParamSulfate     = "SULFATES (SO4)"
	ParamChloride    = "CHLORURES"
	ParamPotassium   = "POTASSIUM (K)"
	ParamPH          = "PH"
	ParamTAC         = "TAC"
	ParamBicarbonate = "HCO3"
)

// Range is an inclusive target interval for a parameter.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the range, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Parameter describes one water-quality parameter of interest.
type Parameter struct {
	Name   string `json:"name"`
	Code   string `json:"code"` // Hub'Eau code_parametre
	Unit   string `json:"unit"`
	Target Range  `json:"target"`
}

// Catalog is an immutable, ordered registry of parameters. Declaration order
// is the display order.
type Catalog struct {
	params []Parameter
	byName map[string]int
}

// NewCatalog builds a catalog from params in the given order. Later entries
// with a duplicate name are ignored.
func NewCatalog(params ...Parameter) *Catalog {
	c := &Catalog{
		params: make([]Parameter, 0, len(params)),
		byName: make(map[string]int, len(params)),
	}
	for _, p := range params {
		if _, dup := c.byName[p.Name]; dup {
			continue
		}
		c.byName[p.Name] = len(c.params)
		c.params = append(c.params, p)
	}
	return c
}

// Lookup returns the parameter registered under name.
func (c *Catalog) Lookup(name string) (Parameter, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Parameter{}, false
	}
	return c.params[i], true
}

// All returns the parameters in declaration order. The slice is a copy.
func (c *Catalog) All() []Parameter {
	out := make([]Parameter, len(c.params))
	copy(out, c.params)
	return out
}

// Len returns the number of parameters.
func (c *Catalog) Len() int { return len(c.params) }

// Codes returns the provider codes in declaration order.
func (c *Catalog) Codes() []string {
	codes := make([]string, len(c.params))
	for i, p := range c.params {
		codes[i] = p.Code
	}
	return codes
}

var defaultCatalog = NewCatalog(
	Parameter{Name: ParamCalcium, Code: "1374", Unit: "mg/L", Target: Range{Min: 50, Max: 150}},
	Parameter{Name: ParamMagnesium, Code: "1372", Unit: "mg/L", Target: Range{Min: 10, Max: 30}},
	Parameter{Name: ParamSodium, Code: "1375", Unit: "mg/L", Target: Range{Min: 0, Max: 150}},
	Parameter{Name: ParamSulfate, Code: "1338", Unit: "mg/L", Target: Range{Min: 50, Max: 350}},
	Parameter{Name: ParamChloride, Code: "1337", Unit: "mg/L", Target: Range{Min: 0, Max: 250}},
	Parameter{Name: ParamPotassium, Code: "1367", Unit: "mg/L", Target: Range{Min: 0, Max: 10}},
	Parameter{Name: ParamPH, Code: "1302", Unit: "unité pH", Target: Range{Min: 5.2, Max: 8.8}},
	Parameter{Name: ParamTAC, Code: "1347", Unit: "°f", Target: Range{Min: 0, Max: 400}},
	// HCO3 is not published by Hub'Eau; its series normally stays empty and the
	// snapshot value is derived from TAC.
	Parameter{Name: ParamBicarbonate, Code: "HCO3", Unit: "mg/L", Target: Range{Min: 0, Max: 400}},
)

// DefaultCatalog returns the brewing parameter catalog.
func DefaultCatalog() *Catalog { return defaultCatalog }

// Color is a chart line colour and its translucent fill.
type Color struct {
	Line string `json:"line"`
	Fill string `json:"fill"`
}

// FallbackColor is used for any series without a registered colour.
var FallbackColor = Color{Line: "rgb(59, 130, 246)", Fill: "rgba(59, 130, 246, 0.1)"}

var defaultColors = map[string]Color{
	ParamCalcium:     {Line: "rgb(59, 130, 246)", Fill: "rgba(59, 130, 246, 0.1)"},
	ParamMagnesium:   {Line: "rgb(16, 185, 129)", Fill: "rgba(16, 185, 129, 0.1)"},
	ParamSodium:      {Line: "rgb(245, 158, 11)", Fill: "rgba(245, 158, 11, 0.1)"},
	ParamSulfate:     {Line: "rgb(139, 92, 246)", Fill: "rgba(139, 92, 246, 0.1)"},
	ParamChloride:    {Line: "rgb(239, 68, 68)", Fill: "rgba(239, 68, 68, 0.1)"},
	ParamPotassium:   {Line: "rgb(236, 72, 153)", Fill: "rgba(236, 72, 153, 0.1)"},
	ParamPH:          {Line: "rgb(79, 70, 229)", Fill: "rgba(79, 70, 229, 0.1)"},
	ParamTAC:         {Line: "rgb(107, 114, 128)", Fill: "rgba(107, 114, 128, 0.1)"},
	ParamBicarbonate: {Line: "rgb(75, 85, 99)", Fill: "rgba(75, 85, 99, 0.1)"},
}

// DefaultColors returns a copy of the chart colour registry.
func DefaultColors() map[string]Color {
	out := make(map[string]Color, len(defaultColors))
	for k, v := range defaultColors {
		out[k] = v
	}
	return out
}
