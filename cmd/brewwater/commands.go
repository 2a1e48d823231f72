package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/brew-water-service/internal/adapter/geoapi"
	"github.com/couchcryptid/brew-water-service/internal/adapter/hubeau"
	"github.com/couchcryptid/brew-water-service/internal/config"
	"github.com/couchcryptid/brew-water-service/internal/domain"
	"github.com/couchcryptid/brew-water-service/internal/observability"
	"github.com/couchcryptid/brew-water-service/internal/report"
)

const commandTimeout = time.Minute

// service is the part of report.Service the CLI drives.
type service interface {
	Departements(ctx context.Context) ([]domain.Departement, error)
	Communes(ctx context.Context, departementCode string) ([]domain.Commune, error)
	Networks(ctx context.Context, communeCode string) ([]domain.Network, error)
	Report(ctx context.Context, networkCode string) (domain.WaterReport, error)
	Simulate(base domain.IonProfile, additions domain.Additions, volumeLiters float64) (report.Simulation, error)
	SimulateNetwork(ctx context.Context, networkCode string, additions domain.Additions, volumeLiters float64) (report.Simulation, error)
}

type serviceFactory func() (service, error)

// newLiveService wires the Hub'Eau and geo API clients from the environment.
func newLiveService() (service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := observability.NewCLILogger(cfg)
	metrics := observability.NewMetricsForTesting()
	directory := geoapi.NewCachedDirectory(geoapi.NewClient(cfg, metrics, logger), cfg.GeoCacheSize, metrics)
	return report.NewService(hubeau.NewClient(cfg, metrics, logger), directory, domain.DefaultRegistry(), metrics, logger)
}

type cli struct {
	newService serviceFactory
	jsonOutput bool
}

func newRootCmd(factory serviceFactory) *cobra.Command {
	c := &cli{newService: factory}

	root := &cobra.Command{
		Use:           "brewwater",
		Short:         "Tap water profiles and brewing salt simulations from Hub'Eau data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "print JSON instead of tables")

	root.AddCommand(
		&cobra.Command{
			Use:   "departements",
			Short: "List French départements",
			Args:  cobra.NoArgs,
			RunE:  c.runDepartements,
		},
		&cobra.Command{
			Use:   "communes <departement>",
			Short: "List the communes of a département",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runCommunes,
		},
		&cobra.Command{
			Use:   "networks <commune>",
			Short: "List the distribution networks serving a commune",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runNetworks,
		},
		&cobra.Command{
			Use:   "report <network>",
			Short: "Show the current water profile of a network",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runReport,
		},
		c.simulateCmd(),
	)
	return root
}

func (c *cli) service() (service, error) {
	svc, err := c.newService()
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return svc, nil
}

func (c *cli) runDepartements(cmd *cobra.Command, _ []string) error {
	svc, err := c.service()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	deps, err := svc.Departements(ctx)
	if err != nil {
		return err
	}
	if c.jsonOutput {
		return writeJSON(cmd.OutOrStdout(), deps)
	}
	return writeTable(cmd.OutOrStdout(), []string{"CODE", "NOM"}, len(deps), func(i int) []string {
		return []string{deps[i].Code, deps[i].Name}
	})
}

func (c *cli) runCommunes(cmd *cobra.Command, args []string) error {
	svc, err := c.service()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	communes, err := svc.Communes(ctx, args[0])
	if err != nil {
		return err
	}
	if c.jsonOutput {
		return writeJSON(cmd.OutOrStdout(), communes)
	}
	return writeTable(cmd.OutOrStdout(), []string{"CODE", "NOM"}, len(communes), func(i int) []string {
		return []string{communes[i].Code, communes[i].Name}
	})
}

func (c *cli) runNetworks(cmd *cobra.Command, args []string) error {
	svc, err := c.service()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	networks, err := svc.Networks(ctx, args[0])
	if err != nil {
		return err
	}
	if c.jsonOutput {
		return writeJSON(cmd.OutOrStdout(), networks)
	}
	return writeTable(cmd.OutOrStdout(), []string{"CODE", "RÉSEAU"}, len(networks), func(i int) []string {
		return []string{networks[i].Code, networks[i].Name}
	})
}

func (c *cli) runReport(cmd *cobra.Command, args []string) error {
	svc, err := c.service()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	r, err := svc.Report(ctx, args[0])
	if err != nil {
		return err
	}
	if c.jsonOutput {
		return writeJSON(cmd.OutOrStdout(), r)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Réseau %s, %d mesures\n\n", r.NetworkCode, r.MeasurementCount)
	if err := writeTable(out, []string{"PARAMÈTRE", "DERNIÈRE VALEUR", "PRÉLÈVEMENT"}, len(r.Latest), func(i int) []string {
		card := r.Latest[i]
		value := "n/a"
		if card.Value != nil {
			value = domain.FormatConcentration(*card.Value, card.Unit)
		}
		return []string{card.Name, value, card.SampledAt}
	}); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return writeRows(out, r.Rows)
}

type simulateFlags struct {
	recipe      string
	baseNetwork string
	salts       []string
	volume      string
}

func (c *cli) simulateCmd() *cobra.Command {
	var f simulateFlags
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Apply brewing salt additions to a water profile",
		Long: "Apply brewing salt additions to a water profile. The base profile comes from\n" +
			"--base-network or the recipe; flags override the recipe.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runSimulate(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.recipe, "recipe", "", "YAML water recipe")
	cmd.Flags().StringVar(&f.baseNetwork, "base-network", "", "start from the current profile of this network")
	cmd.Flags().StringArrayVar(&f.salts, "salt", nil, "salt addition as name=grams, repeatable")
	cmd.Flags().StringVar(&f.volume, "volume", "", "water volume in liters")
	return cmd
}

func (c *cli) runSimulate(cmd *cobra.Command, f simulateFlags) error {
	plan := recipe{}
	if f.recipe != "" {
		var err error
		if plan, err = loadRecipe(f.recipe); err != nil {
			return err
		}
	}

	additions := domain.Additions{}
	maps.Copy(additions, plan.additions())
	fromFlags, err := parseSaltFlags(f.salts)
	if err != nil {
		return err
	}
	maps.Copy(additions, fromFlags)

	volume := plan.VolumeLiters
	if f.volume != "" {
		if volume, err = domain.ParseVolume(f.volume); err != nil {
			return err
		}
	}
	network := plan.BaseNetwork
	if f.baseNetwork != "" {
		network = f.baseNetwork
	}

	svc, err := c.service()
	if err != nil {
		return err
	}

	var sim report.Simulation
	if network != "" {
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()
		sim, err = svc.SimulateNetwork(ctx, network, additions, volume)
	} else {
		sim, err = svc.Simulate(plan.Base, additions, volume)
	}
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return writeJSON(cmd.OutOrStdout(), sim)
	}
	return writeRows(cmd.OutOrStdout(), sim.Rows)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
