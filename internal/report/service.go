// Package report assembles water reports and simulations from the upstream
// providers and the domain engine. HTTP handlers, the CLI and the Kafka
// pipeline all go through Service.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/brew-water-service/internal/domain"
	"github.com/couchcryptid/brew-water-service/internal/observability"
)

const tracerName = "brewwater.report"

// sharedCallTimeout bounds an upstream lookup shared by several callers. The
// lookup outlives the caller that started it.
const sharedCallTimeout = 60 * time.Second

// Service answers every read and simulation request of the application.
// It is safe for concurrent use.
type Service struct {
	source    domain.AnalysisSource
	directory domain.Directory
	registry  *domain.Registry
	metrics   *observability.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer

	// Concurrent identical provider lookups share one upstream call.
	networks singleflight.Group
	reports  singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithTracerProvider records spans on tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(tracerName) }
}

// NewService validates the registry and wires the service.
func NewService(source domain.AnalysisSource, directory domain.Directory, registry *domain.Registry, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) (*Service, error) {
	if err := registry.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		source:    source,
		directory: directory,
		registry:  registry,
		metrics:   metrics,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// shared runs fn once for concurrent callers of the same key. fn runs
// detached from the cancellation of the caller that started it, and each
// caller stops waiting when its own context ends.
func shared[T any](ctx context.Context, g *singleflight.Group, key string, fn func(context.Context) (T, error)) (T, bool, error) {
	ch := g.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedCallTimeout)
		defer cancel()
		return fn(callCtx)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Shared, res.Err
		}
		return res.Val.(T), res.Shared, nil
	}
}

// Catalog describes the static tables a client needs to render the calculator.
type Catalog struct {
	Parameters []domain.Parameter       `json:"parameters"`
	Salts      []domain.Salt            `json:"salts"`
	Colors     map[string]domain.Color `json:"colors"`
}

// Catalog returns the parameter catalog, salt table and chart colours.
func (s *Service) Catalog() Catalog {
	colors := make(map[string]domain.Color, len(s.registry.Colors))
	for k, v := range s.registry.Colors {
		colors[k] = v
	}
	return Catalog{
		Parameters: s.registry.Catalog.All(),
		Salts:      s.registry.Salts.All(),
		Colors:     colors,
	}
}

// Departements lists départements ordered by code.
func (s *Service) Departements(ctx context.Context) ([]domain.Departement, error) {
	deps, err := s.directory.Departements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list departements: %w", err)
	}
	domain.SortDepartements(deps)
	return deps, nil
}

// Communes lists the communes of a département ordered by name.
func (s *Service) Communes(ctx context.Context, departementCode string) ([]domain.Commune, error) {
	if departementCode == "" {
		return nil, fmt.Errorf("%w: departement code is required", domain.ErrInvalidInput)
	}
	communes, err := s.directory.Communes(ctx, departementCode)
	if err != nil {
		return nil, fmt.Errorf("list communes of %s: %w", departementCode, err)
	}
	domain.SortCommunes(communes)
	return communes, nil
}

// Networks lists the distinct distribution networks serving a commune.
func (s *Service) Networks(ctx context.Context, communeCode string) ([]domain.Network, error) {
	if communeCode == "" {
		return nil, fmt.Errorf("%w: commune code is required", domain.ErrInvalidInput)
	}
	networks, wasShared, err := shared(ctx, &s.networks, communeCode, func(ctx context.Context) ([]domain.Network, error) {
		records, err := s.source.CommuneNetworks(ctx, communeCode)
		if err != nil {
			return nil, fmt.Errorf("list networks of %s: %w", communeCode, err)
		}
		return domain.DedupeNetworks(records)
	})
	if err != nil {
		return nil, err
	}
	if wasShared {
		networks = append([]domain.Network(nil), networks...)
	}
	return networks, nil
}

// Report fetches the analyses of one network and builds its water report.
func (s *Service) Report(ctx context.Context, networkCode string) (domain.WaterReport, error) {
	if networkCode == "" {
		return domain.WaterReport{}, fmt.Errorf("%w: network code is required", domain.ErrInvalidInput)
	}
	r, _, err := shared(ctx, &s.reports, networkCode, func(ctx context.Context) (domain.WaterReport, error) {
		return s.buildReport(ctx, networkCode)
	})
	if err != nil {
		return domain.WaterReport{}, err
	}
	// Each caller gets its own profile so simulations cannot race.
	r.Profile = r.Profile.Clone(0)
	return r, nil
}

func (s *Service) buildReport(ctx context.Context, networkCode string) (domain.WaterReport, error) {
	ctx, span := s.tracer.Start(ctx, "report.Build",
		trace.WithAttributes(attribute.String("network_code", networkCode)),
	)
	defer span.End()

	measurements, err := s.source.NetworkAnalyses(ctx, networkCode, s.registry.Catalog.Codes())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch analyses")
		return domain.WaterReport{}, fmt.Errorf("fetch analyses of %s: %w", networkCode, err)
	}

	r := domain.BuildReport(networkCode, measurements, s.registry)
	span.SetAttributes(
		attribute.Int("measurement_count", len(measurements)),
		attribute.Int("trend_count", len(r.Trends)),
	)
	span.SetStatus(codes.Ok, "")
	s.metrics.ReportsBuilt.Inc()
	s.logger.Debug("report built", "network_code", networkCode, "measurements", len(measurements))
	return r, nil
}

// Simulation is a corrected profile and its calculator rows.
type Simulation struct {
	Profile domain.IonProfile  `json:"profile"`
	Rows    []domain.ProfileRow `json:"rows"`
}

// Simulate applies salt additions to a base profile.
func (s *Service) Simulate(base domain.IonProfile, additions domain.Additions, volumeLiters float64) (Simulation, error) {
	profile, err := s.registry.Salts.Apply(base, additions, volumeLiters)
	if err != nil {
		outcome := "error"
		if errors.Is(err, domain.ErrInvalidInput) {
			outcome = "invalid"
		}
		s.metrics.Simulations.WithLabelValues(outcome).Inc()
		return Simulation{}, err
	}
	s.metrics.Simulations.WithLabelValues("success").Inc()
	return Simulation{
		Profile: profile,
		Rows:    domain.EvaluateProfile(profile, s.registry.Catalog),
	}, nil
}

// SimulateNetwork applies salt additions to the current profile of a network.
func (s *Service) SimulateNetwork(ctx context.Context, networkCode string, additions domain.Additions, volumeLiters float64) (Simulation, error) {
	r, err := s.Report(ctx, networkCode)
	if err != nil {
		return Simulation{}, err
	}
	return s.Simulate(r.Profile, additions, volumeLiters)
}

// CheckReadiness reports whether the administrative directory answers. The
// directory is cached, so only the first probe reaches the network.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if _, err := s.directory.Departements(ctx); err != nil {
		return fmt.Errorf("directory unavailable: %w", err)
	}
	return nil
}
