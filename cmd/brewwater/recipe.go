package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/brew-water-service/internal/domain"
)

// recipe is a water treatment plan kept alongside a brew recipe:
//
//	base_network: "069000123"
//	volume_liters: 20
//	additions:
//	  calciumSulfate: 5
//	  calciumChloride: 2.5
//
// Masses are read like calculator fields: an unreadable mass counts as zero.
type recipe struct {
	BaseNetwork  string                `yaml:"base_network"`
	Base         domain.IonProfile     `yaml:"base"`
	VolumeLiters float64               `yaml:"volume_liters"`
	Additions    map[string]recipeMass `yaml:"additions"`
}

// recipeMass keeps the raw text of a salt mass.
type recipeMass string

func (m *recipeMass) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: salt mass must be a scalar", node.Line)
	}
	*m = recipeMass(node.Value)
	return nil
}

func (r recipe) additions() domain.Additions {
	form := make(map[string]string, len(r.Additions))
	for id, grams := range r.Additions {
		form[id] = string(grams)
	}
	return domain.ParseAdditions(form)
}

func loadRecipe(path string) (recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return recipe{}, fmt.Errorf("read recipe: %w", err)
	}
	var r recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return recipe{}, fmt.Errorf("%w: parse recipe %s: %v", domain.ErrInvalidInput, path, err)
	}
	return r, nil
}

// parseSaltFlags reads repeated name=grams flags. Masses go through the same
// parsing as form fields, so an unreadable mass counts as zero.
func parseSaltFlags(flags []string) (domain.Additions, error) {
	form := make(map[string]string, len(flags))
	for _, f := range flags {
		id, grams, ok := strings.Cut(f, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("%w: salt flag %q must look like name=grams", domain.ErrInvalidInput, f)
		}
		form[id] = grams
	}
	return domain.ParseAdditions(form), nil
}
