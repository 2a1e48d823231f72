//go:build smoke

package hubeau

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/couchcryptid/brew-water-service/internal/domain"
	"github.com/couchcryptid/brew-water-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// These tests hit the real Hub'Eau API.
// Run with: go test -tags=smoke ./internal/adapter/hubeau/ -v -count=1

func smokeClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://hubeau.eaufrance.fr/api/v1/qualite_eau_potable",
		pageSize:   1000,
		maxPages:   2,
		limiter:    rate.NewLimiter(2, 1),
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestSmoke_LyonNetworkReport(t *testing.T) {
	c := smokeClient()
	ctx := context.Background()

	records, err := c.CommuneNetworks(ctx, "69123")
	require.NoError(t, err)
	networks, err := domain.DedupeNetworks(records)
	require.NoError(t, err)
	require.NotEmpty(t, networks)

	measurements, err := c.NetworkAnalyses(ctx, networks[0].Code, domain.DefaultCatalog().Codes())
	require.NoError(t, err)
	require.NotEmpty(t, measurements)

	report := domain.BuildReport(networks[0].Code, measurements, domain.DefaultRegistry())
	assert.Greater(t, report.Profile[domain.ParamCalcium], 0.0)
	assert.Greater(t, report.Profile[domain.ParamBicarbonate], 0.0, "TAC should be published for Lyon")
}
