package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Tracing: "none", "stdout" or "otlp".
	TraceExporter string
	OTLPEndpoint  string

	// Hub'Eau drinking-water quality API.
	HubeauBaseURL   string
	HubeauTimeout   time.Duration
	HubeauPageSize  int
	HubeauMaxPages  int
	HubeauRateLimit float64 // requests per second

	// geo.api.gouv.fr administrative directory.
	GeoBaseURL    string
	GeoTimeout    time.Duration
	GeoRetryCount int
	GeoCacheSize  int

	// Report-request pipeline, off unless KAFKA_ENABLED=true.
	KafkaEnabled        bool
	KafkaBrokers        []string
	KafkaSourceTopic    string
	KafkaSinkTopic      string
	KafkaGroupID        string
	BatchSize           int
	BatchFlushInterval  time.Duration
	PipelineConcurrency int
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is loaded first when
// present; real environment variables take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}
	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	hubeauTimeout, err := parseDuration("HUBEAU_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	geoTimeout, err := parseDuration("GEO_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	pageSize, err := parsePositiveInt("HUBEAU_PAGE_SIZE", 5000)
	if err != nil {
		return nil, err
	}
	maxPages, err := parsePositiveInt("HUBEAU_MAX_PAGES", 4)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("GEO_CACHE_SIZE", 200)
	if err != nil {
		return nil, err
	}
	concurrency, err := parsePositiveInt("PIPELINE_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	retries, err := strconv.Atoi(sharedcfg.EnvOrDefault("GEO_RETRY_COUNT", "2"))
	if err != nil || retries < 0 {
		return nil, errors.New("invalid GEO_RETRY_COUNT")
	}
	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("HUBEAU_RATE_LIMIT", "10"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid HUBEAU_RATE_LIMIT")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		TraceExporter: sharedcfg.EnvOrDefault("OTEL_TRACES_EXPORTER", "none"),
		OTLPEndpoint:  sharedcfg.EnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		HubeauBaseURL:   sharedcfg.EnvOrDefault("HUBEAU_BASE_URL", "https://hubeau.eaufrance.fr/api/v1/qualite_eau_potable"),
		HubeauTimeout:   hubeauTimeout,
		HubeauPageSize:  pageSize,
		HubeauMaxPages:  maxPages,
		HubeauRateLimit: rateLimit,

		GeoBaseURL:    sharedcfg.EnvOrDefault("GEO_BASE_URL", "https://geo.api.gouv.fr"),
		GeoTimeout:    geoTimeout,
		GeoRetryCount: retries,
		GeoCacheSize:  cacheSize,

		KafkaEnabled:        os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:        sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:    sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "water-report-requests"),
		KafkaSinkTopic:      sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "water-reports"),
		KafkaGroupID:        sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "brew-water"),
		BatchSize:           batchSize,
		BatchFlushInterval:  flushInterval,
		PipelineConcurrency: concurrency,
	}

	if cfg.HubeauBaseURL == "" {
		return nil, errors.New("HUBEAU_BASE_URL is required")
	}
	if cfg.GeoBaseURL == "" {
		return nil, errors.New("GEO_BASE_URL is required")
	}
	switch cfg.TraceExporter {
	case "none", "stdout", "otlp":
	default:
		return nil, fmt.Errorf("invalid OTEL_TRACES_EXPORTER %q", cfg.TraceExporter)
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
