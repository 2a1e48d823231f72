package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/brew-water-service/internal/domain"
	"github.com/couchcryptid/brew-water-service/internal/observability"
	"github.com/couchcryptid/brew-water-service/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	lastNetwork string
}

func (f *fakeSource) CommuneNetworks(context.Context, string) ([]domain.NetworkRecord, error) {
	return []domain.NetworkRecord{{Code: "069000123", Name: "LYON"}, {Code: "069000124", Name: "BRON"}}, nil
}

func (f *fakeSource) NetworkAnalyses(_ context.Context, code string, _ []string) ([]domain.Measurement, error) {
	f.lastNetwork = code
	ca, tac := 40.0, 10.0
	return []domain.Measurement{
		{ParameterCode: "1374", Value: &ca, SampledAt: "2024-03-12T08:15:00Z"},
		{ParameterCode: "1347", Value: &tac, SampledAt: "2024-03-12T08:15:00Z"},
	}, nil
}

type fakeDirectory struct{}

func (fakeDirectory) Departements(context.Context) ([]domain.Departement, error) {
	return []domain.Departement{{Code: "69", Name: "Rhône"}, {Code: "01", Name: "Ain"}}, nil
}

func (fakeDirectory) Communes(context.Context, string) ([]domain.Commune, error) {
	return []domain.Commune{{Code: "69266", Name: "Villeurbanne"}, {Code: "69029", Name: "Bron"}}, nil
}

func testFactory(t *testing.T, src *fakeSource) serviceFactory {
	t.Helper()
	return func() (service, error) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		return report.NewService(src, fakeDirectory{}, domain.DefaultRegistry(), observability.NewMetricsForTesting(), logger)
	}
}

func execute(t *testing.T, factory serviceFactory, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(factory)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDepartementsTable(t *testing.T) {
	out, err := execute(t, testFactory(t, &fakeSource{}), "departements")
	require.NoError(t, err)

	assert.Contains(t, out, "CODE")
	assert.Less(t, bytes.Index([]byte(out), []byte("Ain")), bytes.Index([]byte(out), []byte("Rhône")))
}

func TestCommunesJSON(t *testing.T) {
	out, err := execute(t, testFactory(t, &fakeSource{}), "communes", "69", "--json")
	require.NoError(t, err)

	var communes []domain.Commune
	require.NoError(t, json.Unmarshal([]byte(out), &communes))
	require.Len(t, communes, 2)
	assert.Equal(t, "Bron", communes[0].Name)
}

func TestNetworksRequiresArgument(t *testing.T) {
	_, err := execute(t, testFactory(t, &fakeSource{}), "networks")
	assert.Error(t, err)
}

func TestReportTable(t *testing.T) {
	out, err := execute(t, testFactory(t, &fakeSource{}), "report", "069000123")
	require.NoError(t, err)

	assert.Contains(t, out, "Réseau 069000123, 2 mesures")
	assert.Contains(t, out, domain.DerivedBicarbonateLabel)
	assert.Contains(t, out, "122.0 mg/L")
	assert.Contains(t, out, "hors cible")
}

func TestSimulateWithSaltFlags(t *testing.T) {
	src := &fakeSource{}
	out, err := execute(t, testFactory(t, src),
		"simulate", "--base-network", "069000123", "--salt", "calciumSulfate=5", "--volume", "20", "--json")
	require.NoError(t, err)

	var sim report.Simulation
	require.NoError(t, json.Unmarshal([]byte(out), &sim))
	assert.InDelta(t, 98.1, sim.Profile[domain.ParamCalcium], 1e-9)
	assert.Equal(t, "069000123", src.lastNetwork)
}

func TestSimulateWithRecipe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
volume_liters: 20
base:
  CALCIUM (CA): 40
additions:
  calciumSulfate: 2
`), 0o600))

	// The flag overrides the recipe's gypsum mass.
	out, err := execute(t, testFactory(t, &fakeSource{}), "simulate", "--recipe", path, "--salt", "calciumSulfate=5", "--json")
	require.NoError(t, err)

	var sim report.Simulation
	require.NoError(t, json.Unmarshal([]byte(out), &sim))
	assert.InDelta(t, 98.1, sim.Profile[domain.ParamCalcium], 1e-9)
}

func TestSimulateInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing volume", []string{"simulate", "--salt", "calciumSulfate=5"}},
		{"zero volume", []string{"simulate", "--volume", "0"}},
		{"malformed salt flag", []string{"simulate", "--salt", "gypsum", "--volume", "20"}},
		{"unknown salt", []string{"simulate", "--salt", "iron=1", "--volume", "20"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, testFactory(t, &fakeSource{}), tt.args...)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestServiceInitFailure(t *testing.T) {
	failing := func() (service, error) { return nil, errors.New("bad HUBEAU_TIMEOUT") }
	_, err := execute(t, failing, "departements")
	assert.ErrorContains(t, err, "initialize: bad HUBEAU_TIMEOUT")
}

func TestParseSaltFlags(t *testing.T) {
	got, err := parseSaltFlags([]string{"calciumSulfate=5", " calciumChloride = 2.5", "sodiumChloride="})
	require.NoError(t, err)
	assert.Equal(t, domain.Additions{
		domain.SaltCalciumSulfate:  5,
		domain.SaltCalciumChloride: 2.5,
		domain.SaltSodiumChloride:  0,
	}, got)
}

func TestLoadRecipeUnreadableMassCountsAsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
volume_liters: 20
additions:
  calciumSulfate: abc
  calciumChloride: "2.5"
  sodiumChloride:
`), 0o600))

	plan, err := loadRecipe(path)
	require.NoError(t, err)
	assert.Equal(t, domain.Additions{
		domain.SaltCalciumSulfate:  0,
		domain.SaltCalciumChloride: 2.5,
		domain.SaltSodiumChloride:  0,
	}, plan.additions())

	out, err := execute(t, testFactory(t, &fakeSource{}), "simulate", "--recipe", path, "--base-network", "069000123", "--json")
	require.NoError(t, err)
	var sim report.Simulation
	require.NoError(t, json.Unmarshal([]byte(out), &sim))
	assert.Greater(t, sim.Profile[domain.ParamCalcium], 40.0)
}

func TestLoadRecipeRejectsNestedMass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
additions:
  calciumSulfate:
    grams: 5
`), 0o600))

	_, err := loadRecipe(path)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
