// Command genmock records the analyses of one distribution network from
// Hub'Eau and writes test fixtures: a resultats_dis shaped response for the
// pipeline and HTTP suites, and the report the engine builds from it. The
// report goes through the real domain package so the golden file matches
// pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -network 069000123 \
//	  -raw-out data/mock/resultats_dis_069000123.json \
//	  -report-out data/mock/report_069000123.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/brew-water-service/internal/adapter/hubeau"
	"github.com/couchcryptid/brew-water-service/internal/config"
	"github.com/couchcryptid/brew-water-service/internal/domain"
	"github.com/couchcryptid/brew-water-service/internal/observability"
)

// fixtureRow mirrors the resultats_dis fields the client reads.
type fixtureRow struct {
	NetworkCode string `json:"code_reseau"`
	domain.Measurement
}

type fixture struct {
	Count int          `json:"count"`
	Next  *string      `json:"next"`
	Data  []fixtureRow `json:"data"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	network := flag.String("network", "", "Hub'Eau distribution network code")
	rawOut := flag.String("raw-out", "", "output path for the resultats_dis fixture")
	reportOut := flag.String("report-out", "", "output path for the expected report")
	flag.Parse()

	if *network == "" || *rawOut == "" || *reportOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -network, -raw-out, -report-out")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg)
	client := hubeau.NewClient(cfg, observability.NewMetricsForTesting(), logger)
	registry := domain.DefaultRegistry()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	measurements, err := client.NetworkAnalyses(ctx, *network, registry.Catalog.Codes())
	if err != nil {
		return fmt.Errorf("fetch analyses: %w", err)
	}
	log.Printf("%s: %d measurements", *network, len(measurements))

	rows := make([]fixtureRow, len(measurements))
	for i, m := range measurements {
		rows[i] = fixtureRow{NetworkCode: *network, Measurement: m}
	}
	if err := writeJSON(*rawOut, fixture{Count: len(rows), Data: rows}); err != nil {
		return err
	}

	// Fixed clock for a reproducible generated_at.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2025, time.May, 1, 12, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	r := domain.BuildReport(*network, measurements, registry)
	if err := writeJSON(*reportOut, r); err != nil {
		return err
	}
	log.Printf("wrote %s and %s (%d trends)", *rawOut, *reportOut, len(r.Trends))
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
