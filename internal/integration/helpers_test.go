//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/brew-water-service/internal/adapter/hubeau"
	"github.com/couchcryptid/brew-water-service/internal/config"
	"github.com/couchcryptid/brew-water-service/internal/domain"
	"github.com/couchcryptid/brew-water-service/internal/observability"
	"github.com/couchcryptid/brew-water-service/internal/report"
)

const fixtureNetwork = "069000123"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("brew-water-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// newFixtureService serves the recorded analyses of fixtureNetwork from a
// local Hub'Eau stand-in. Other networks have no analyses.
func newFixtureService(t *testing.T) *report.Service {
	t.Helper()
	body, err := os.ReadFile(filepath.Join("..", "..", "data", "mock", "resultats_dis_"+fixtureNetwork+".json"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("code_reseau") != fixtureNetwork {
			_, _ = w.Write([]byte(`{"count":0,"next":null,"data":[]}`))
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		HubeauBaseURL:   srv.URL,
		HubeauTimeout:   5 * time.Second,
		HubeauPageSize:  5000,
		HubeauMaxPages:  4,
		HubeauRateLimit: 100,
	}
	metrics := observability.NewMetricsForTesting()
	svc, err := report.NewService(hubeau.NewClient(cfg, metrics, discardLogger()), noDirectory{}, domain.DefaultRegistry(), metrics, discardLogger())
	require.NoError(t, err)
	return svc
}

type noDirectory struct{}

func (noDirectory) Departements(context.Context) ([]domain.Departement, error) { return nil, nil }
func (noDirectory) Communes(context.Context, string) ([]domain.Commune, error)  { return nil, nil }
