package report

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/brew-water-service/internal/domain"
	"github.com/couchcryptid/brew-water-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const testNetwork = "069000123"

// --- fakes ---

type fakeSource struct {
	records      []domain.NetworkRecord
	measurements []domain.Measurement
	err          error
	delay        time.Duration
	analysisHits atomic.Int32

	mu        sync.Mutex
	lastCodes []string
}

func (f *fakeSource) CommuneNetworks(context.Context, string) ([]domain.NetworkRecord, error) {
	return f.records, f.err
}

func (f *fakeSource) NetworkAnalyses(ctx context.Context, _ string, codes []string) ([]domain.Measurement, error) {
	f.analysisHits.Add(1)
	f.mu.Lock()
	f.lastCodes = codes
	f.mu.Unlock()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(f.delay):
	}
	return f.measurements, f.err
}

type fakeDirectory struct {
	departements []domain.Departement
	communes     []domain.Commune
	err          error
}

func (f *fakeDirectory) Departements(context.Context) ([]domain.Departement, error) {
	return append([]domain.Departement(nil), f.departements...), f.err
}

func (f *fakeDirectory) Communes(context.Context, string) ([]domain.Commune, error) {
	return append([]domain.Commune(nil), f.communes...), f.err
}

func newTestService(t *testing.T, src *fakeSource, dir *fakeDirectory) (*Service, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	svc, err := NewService(src, dir, domain.DefaultRegistry(), metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return svc, metrics
}

func f64(v float64) *float64 { return &v }

// --- tests ---

func TestNewService_InvalidRegistry(t *testing.T) {
	reg := domain.DefaultRegistry()
	reg.Colors["IRON"] = domain.FallbackColor
	_, err := NewService(&fakeSource{}, &fakeDirectory{}, reg, observability.NewMetricsForTesting(), slog.Default())
	assert.ErrorContains(t, err, "IRON")
}

func TestService_Catalog(t *testing.T) {
	svc, _ := newTestService(t, &fakeSource{}, &fakeDirectory{})
	c := svc.Catalog()
	assert.Len(t, c.Parameters, domain.DefaultCatalog().Len())
	assert.Len(t, c.Salts, len(domain.DefaultSalts().IDs()))
	assert.Contains(t, c.Colors, domain.ParamCalcium)
}

func TestService_DepartementsAndCommunesSorted(t *testing.T) {
	dir := &fakeDirectory{
		departements: []domain.Departement{{Code: "69"}, {Code: "2A"}, {Code: "01"}},
		communes:     []domain.Commune{{Code: "2", Name: "Villeurbanne"}, {Code: "1", Name: "Bron"}},
	}
	svc, _ := newTestService(t, &fakeSource{}, dir)

	deps, err := svc.Departements(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "01", deps[0].Code)
	assert.Equal(t, "69", deps[2].Code)

	communes, err := svc.Communes(context.Background(), "69")
	require.NoError(t, err)
	assert.Equal(t, "Bron", communes[0].Name)

	_, err = svc.Communes(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestService_Networks(t *testing.T) {
	src := &fakeSource{records: []domain.NetworkRecord{
		{Code: "B", Name: "Sud"},
		{Code: "A", Name: "Nord"},
		{Code: "B", Name: "Sud"},
	}}
	svc, _ := newTestService(t, src, &fakeDirectory{})

	got, err := svc.Networks(context.Background(), "69123")
	require.NoError(t, err)
	assert.Equal(t, []domain.Network{{Code: "A", Name: "Nord"}, {Code: "B", Name: "Sud"}}, got)

	src.records = []domain.NetworkRecord{{Code: ""}}
	_, err = svc.Networks(context.Background(), "69123")
	assert.ErrorIs(t, err, domain.ErrDataShape)
}

func TestService_Report(t *testing.T) {
	src := &fakeSource{measurements: []domain.Measurement{
		{ParameterCode: "1374", Value: f64(40), SampledAt: "2024-01-01"},
		{ParameterCode: "1347", Value: f64(10), SampledAt: "2024-01-01"},
	}}
	svc, metrics := newTestService(t, src, &fakeDirectory{})

	r, err := svc.Report(context.Background(), testNetwork)
	require.NoError(t, err)
	assert.Equal(t, testNetwork, r.NetworkCode)
	assert.Equal(t, 40.0, r.Profile[domain.ParamCalcium])
	assert.Equal(t, 122.0, r.Profile[domain.ParamBicarbonate])
	assert.Equal(t, domain.DefaultCatalog().Codes(), src.lastCodes)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReportsBuilt), 0)

	_, err = svc.Report(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestService_ReportSharesConcurrentCalls(t *testing.T) {
	src := &fakeSource{
		measurements: []domain.Measurement{{ParameterCode: "1374", Value: f64(40), SampledAt: "2024-01-01"}},
		delay:        100 * time.Millisecond,
	}
	svc, _ := newTestService(t, src, &fakeDirectory{})

	var wg sync.WaitGroup
	profiles := make([]domain.IonProfile, 5)
	for i := range profiles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := svc.Report(context.Background(), testNetwork)
			assert.NoError(t, err)
			profiles[i] = r.Profile
		}()
	}
	wg.Wait()

	assert.Less(t, src.analysisHits.Load(), int32(5))
	profiles[0][domain.ParamCalcium] = -1
	assert.Equal(t, 40.0, profiles[1][domain.ParamCalcium], "callers must not share a profile map")
}

func TestService_ReportOutlivesCancelledCaller(t *testing.T) {
	src := &fakeSource{
		measurements: []domain.Measurement{{ParameterCode: "1374", Value: f64(40), SampledAt: "2024-01-01"}},
		delay:        150 * time.Millisecond,
	}
	svc, _ := newTestService(t, src, &fakeDirectory{})

	type outcome struct {
		r   domain.WaterReport
		err error
	}
	first, second := make(chan outcome, 1), make(chan outcome, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		r, err := svc.Report(ctx, testNetwork)
		first <- outcome{r, err}
	}()
	time.Sleep(20 * time.Millisecond)
	go func() {
		r, err := svc.Report(context.Background(), testNetwork)
		second <- outcome{r, err}
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	got := <-first
	assert.ErrorIs(t, got.err, context.Canceled)

	got = <-second
	require.NoError(t, got.err)
	assert.Equal(t, 40.0, got.r.Profile[domain.ParamCalcium])
	assert.Equal(t, int32(1), src.analysisHits.Load())
}

func TestService_ReportSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	src := &fakeSource{measurements: []domain.Measurement{{ParameterCode: "1374", Value: f64(40), SampledAt: "2024-01-01"}}}
	svc, err := NewService(src, &fakeDirectory{}, domain.DefaultRegistry(), observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)), WithTracerProvider(tp))
	require.NoError(t, err)

	_, err = svc.Report(context.Background(), testNetwork)
	require.NoError(t, err)

	src.err = errors.New("connection refused")
	_, err = svc.Report(context.Background(), "069000999")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	ok := spans[0]
	assert.Equal(t, "report.Build", ok.Name())
	assert.Contains(t, ok.Attributes(), attribute.String("network_code", testNetwork))
	assert.Contains(t, ok.Attributes(), attribute.Int("measurement_count", 1))
	assert.Equal(t, codes.Ok, ok.Status().Code)

	failed := spans[1]
	assert.Equal(t, "report.Build", failed.Name())
	assert.Contains(t, failed.Attributes(), attribute.String("network_code", "069000999"))
	assert.Equal(t, codes.Error, failed.Status().Code)
	require.Len(t, failed.Events(), 1)
	assert.Equal(t, "exception", failed.Events()[0].Name)
}

func TestService_ReportProviderError(t *testing.T) {
	src := &fakeSource{err: domain.ErrDataShape}
	svc, _ := newTestService(t, src, &fakeDirectory{})

	_, err := svc.Report(context.Background(), testNetwork)
	assert.ErrorIs(t, err, domain.ErrDataShape)
}

func TestService_Simulate(t *testing.T) {
	svc, metrics := newTestService(t, &fakeSource{}, &fakeDirectory{})

	sim, err := svc.Simulate(domain.IonProfile{domain.ParamCalcium: 40}, domain.Additions{domain.SaltCalciumSulfate: 5}, 20)
	require.NoError(t, err)
	assert.InDelta(t, 98.1, sim.Profile[domain.ParamCalcium], 1e-9)
	require.NotEmpty(t, sim.Rows)
	assert.Equal(t, "98.1 mg/L", sim.Rows[0].Display)

	_, err = svc.Simulate(domain.IonProfile{}, domain.Additions{}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Simulations.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Simulations.WithLabelValues("invalid")), 0)
}

func TestService_SimulateNetwork(t *testing.T) {
	src := &fakeSource{measurements: []domain.Measurement{
		{ParameterCode: "1374", Value: f64(40), SampledAt: "2024-01-01"},
	}}
	svc, _ := newTestService(t, src, &fakeDirectory{})

	sim, err := svc.SimulateNetwork(context.Background(), testNetwork, domain.Additions{domain.SaltCalciumSulfate: 5}, 20)
	require.NoError(t, err)
	assert.InDelta(t, 98.1, sim.Profile[domain.ParamCalcium], 1e-9)
	assert.InDelta(t, 139.25, sim.Profile[domain.ParamSulfate], 1e-9)
}

func TestService_CheckReadiness(t *testing.T) {
	dir := &fakeDirectory{departements: []domain.Departement{{Code: "01"}}}
	svc, _ := newTestService(t, &fakeSource{}, dir)
	require.NoError(t, svc.CheckReadiness(context.Background()))

	dir.err = errors.New("connection refused")
	assert.ErrorContains(t, svc.CheckReadiness(context.Background()), "directory unavailable")
}
