package hubeau

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/brew-water-service/internal/config"
	"github.com/couchcryptid/brew-water-service/internal/domain"
	"github.com/couchcryptid/brew-water-service/internal/observability"
	"golang.org/x/time/rate"
)

const (
	provider          = "hubeau"
	communePageSize   = 100
	endpointCommunes  = "communes_udi"
	endpointResultats = "resultats_dis"
)

// Client implements domain.AnalysisSource using the Hub'Eau drinking-water
// quality API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
	maxPages   int
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Hub'Eau client from the service configuration.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.HubeauTimeout},
		baseURL:    strings.TrimRight(cfg.HubeauBaseURL, "/"),
		pageSize:   cfg.HubeauPageSize,
		maxPages:   cfg.HubeauMaxPages,
		limiter:    rate.NewLimiter(rate.Limit(cfg.HubeauRateLimit), 1),
		metrics:    metrics,
		logger:     logger,
	}
}

// CommuneNetworks lists the distribution networks serving a commune. Rows are
// returned as published; deduplication is left to the caller.
func (c *Client) CommuneNetworks(ctx context.Context, communeCode string) ([]domain.NetworkRecord, error) {
	params := url.Values{
		"code_commune": {communeCode},
		"size":         {fmt.Sprint(communePageSize)},
	}
	rows, err := fetchAll[networkRow](ctx, c, endpointCommunes, c.baseURL+"/"+endpointCommunes+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	records := make([]domain.NetworkRecord, len(rows))
	for i, r := range rows {
		records[i] = domain.NetworkRecord{Code: string(r.Code), Name: r.Name}
	}
	return records, nil
}

// NetworkAnalyses returns every result of the given parameters for a network,
// following pagination up to the configured page limit.
func (c *Client) NetworkAnalyses(ctx context.Context, networkCode string, parameterCodes []string) ([]domain.Measurement, error) {
	params := url.Values{
		"code_reseau":    {networkCode},
		"code_parametre": {strings.Join(parameterCodes, ",")},
		"size":           {fmt.Sprint(c.pageSize)},
	}
	rows, err := fetchAll[analysisRow](ctx, c, endpointResultats, c.baseURL+"/"+endpointResultats+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	measurements := make([]domain.Measurement, len(rows))
	for i, r := range rows {
		measurements[i] = domain.Measurement{
			ParameterCode: string(r.ParameterCode),
			Value:         r.Value.ptr(),
			SampledAt:     r.SampledAt,
		}
	}
	return measurements, nil
}

// fetchAll walks the "next" links of a paginated endpoint.
func fetchAll[T any](ctx context.Context, c *Client, endpoint, firstURL string) ([]T, error) {
	var all []T
	next := firstURL
	for page := 1; next != ""; page++ {
		if page > c.maxPages {
			c.logger.Warn("hubeau results truncated",
				"endpoint", endpoint,
				"max_pages", c.maxPages,
				"fetched", len(all),
			)
			break
		}
		env, err := c.doRequest(ctx, endpoint, next)
		if err != nil {
			return nil, err
		}
		var rows []T
		if err := json.Unmarshal(env.Data, &rows); err != nil {
			return nil, fmt.Errorf("%w: %s rows: %v", domain.ErrDataShape, endpoint, err)
		}
		all = append(all, rows...)
		next = env.next()
	}
	if all == nil {
		all = []T{}
	}
	return all, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint, fullURL string) (envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return envelope{}, fmt.Errorf("%s rate limit: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return envelope{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	env, err := c.send(req, endpoint)
	c.metrics.ProviderDuration.WithLabelValues(provider, endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(provider, endpoint, "error").Inc()
		c.logger.Debug("hubeau request failed", "endpoint", endpoint, "error", err)
		return envelope{}, err
	}
	c.metrics.ProviderRequests.WithLabelValues(provider, endpoint, "success").Inc()
	return env, nil
}

func (c *Client) send(req *http.Request, endpoint string) (envelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return envelope{}, fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	// Hub'Eau answers 206 Partial Content when more pages follow.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return envelope{}, fmt.Errorf("hubeau API error: %s: status %d: %s", endpoint, resp.StatusCode, body)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return envelope{}, fmt.Errorf("%w: decode %s response: %v", domain.ErrDataShape, endpoint, err)
	}
	if err := env.validate(); err != nil {
		return envelope{}, fmt.Errorf("%w: %s: %v", domain.ErrDataShape, endpoint, err)
	}
	return env, nil
}
