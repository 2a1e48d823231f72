package geoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/brew-water-service/internal/config"
	"github.com/couchcryptid/brew-water-service/internal/domain"
	"github.com/couchcryptid/brew-water-service/internal/observability"
	"github.com/go-resty/resty/v2"
)

const provider = "geo"

// Client implements domain.Directory using the geo.api.gouv.fr API.
type Client struct {
	http    *resty.Client
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a directory client from the service configuration.
// Transport errors and 5xx/429 answers are retried GEO_RETRY_COUNT times.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return newClient(cfg.GeoBaseURL, cfg.GeoTimeout, cfg.GeoRetryCount, 500*time.Millisecond, metrics, logger)
}

func newClient(baseURL string, timeout time.Duration, retries int, retryWait time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(10 * retryWait).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})
	return &Client{http: rc, metrics: metrics, logger: logger}
}

// Departements lists every French département, in provider order.
func (c *Client) Departements(ctx context.Context) ([]domain.Departement, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("fields", "nom,code")
	return fetchList[domain.Departement](c, req, "departements", "/departements")
}

// Communes lists the communes of one département, in provider order.
func (c *Client) Communes(ctx context.Context, departementCode string) ([]domain.Commune, error) {
	req := c.http.R().
		SetContext(ctx).
		SetPathParam("code", departementCode).
		SetQueryParam("fields", "nom,code")
	return fetchList[domain.Commune](c, req, "communes", "/departements/{code}/communes")
}

func fetchList[T any](c *Client, req *resty.Request, endpoint, path string) ([]T, error) {
	start := time.Now()
	resp, err := req.Get(path)
	c.metrics.ProviderDuration.WithLabelValues(provider, endpoint).Observe(time.Since(start).Seconds())

	out, err := decodeList[T](resp, err, endpoint)
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(provider, endpoint, "error").Inc()
		c.logger.Debug("geo API request failed", "endpoint", endpoint, "error", err)
		return nil, err
	}
	c.metrics.ProviderRequests.WithLabelValues(provider, endpoint, "success").Inc()
	return out, nil
}

func decodeList[T any](resp *resty.Response, err error, endpoint string) ([]T, error) {
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("geo API error: %s: status %d: %s", endpoint, resp.StatusCode(), resp.String())
	}
	body := bytes.TrimSpace(resp.Body())
	if len(body) == 0 || body[0] != '[' {
		return nil, fmt.Errorf("%w: %s response is not an array", domain.ErrDataShape, endpoint)
	}
	var out []T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %v", domain.ErrDataShape, endpoint, err)
	}
	return out, nil
}
