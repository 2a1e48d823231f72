// Package httpadapter serves the JSON API, the spreadsheet export and the
// operational endpoints over gin.
package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/brew-water-service/internal/domain"
	"github.com/couchcryptid/brew-water-service/internal/observability"
	"github.com/couchcryptid/brew-water-service/internal/report"
)

// ReportService is the part of report.Service the API exposes.
type ReportService interface {
	Catalog() report.Catalog
	Departements(ctx context.Context) ([]domain.Departement, error)
	Communes(ctx context.Context, departementCode string) ([]domain.Commune, error)
	Networks(ctx context.Context, communeCode string) ([]domain.Network, error)
	Report(ctx context.Context, networkCode string) (domain.WaterReport, error)
	Simulate(base domain.IonProfile, additions domain.Additions, volumeLiters float64) (report.Simulation, error)
	SimulateNetwork(ctx context.Context, networkCode string, additions domain.Additions, volumeLiters float64) (report.Simulation, error)
}

// Server exposes the API together with /healthz, /readyz and /metrics.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	svc        ReportService
	logger     *slog.Logger
}

// NewServer builds the router. Provider calls made by a handler are bounded by
// requestTimeout. It panics if the request validators cannot be registered.
func NewServer(addr string, svc ReportService, ready sharedobs.ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	if err := registerValidations(); err != nil {
		panic("httpadapter: " + err.Error())
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestID())
	engine.Use(requestLogger(logger))
	engine.Use(requestMetrics(metrics))

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		engine: engine,
		svc:    svc,
		logger: logger,
	}
	s.registerRoutes(ready)
	return s
}

func (s *Server) registerRoutes(ready sharedobs.ReadinessChecker) {
	s.engine.GET("/healthz", gin.WrapF(sharedobs.LivenessHandler()))
	s.engine.GET("/readyz", gin.WrapF(sharedobs.ReadinessHandler(ready)))
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api/v1")
	api.GET("/catalog", s.handleCatalog)
	api.GET("/departements", s.handleDepartements)
	api.GET("/departements/:code/communes", s.handleCommunes)
	api.GET("/communes/:code/networks", s.handleNetworks)
	api.GET("/networks/:code/report", s.handleReport)
	api.GET("/networks/:code/report.xlsx", s.handleReportXLSX)
	api.POST("/simulate", s.handleSimulate)
}

// Engine exposes the gin engine for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}
