// Package nvdb is a client for the NVDB API v4 (Nasjonal vegdatabank).
// It lists feature-types from the data catalog and pages through road
// objects for one feature-type at a time.
package nvdb

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/nvdb-export/internal/resilience"
)

// Default endpoints of the public NVDB read API.
const (
	DefaultBaseURL    = "https://nvdbapiles.atlas.vegvesen.no/vegobjekter/api/v4"
	DefaultCatalogURL = "https://nvdbapiles.atlas.vegvesen.no/datakatalog/api/v4"
)

// Options configures the NVDB client.
type Options struct {
	BaseURL        string
	CatalogURL     string
	ClientName     string // sent as X-Client, required by NVDB
	UserAgent      string
	Timeout        time.Duration
	MaxRetries     int // attempts per request; 1 disables retries, 0 means the default
	PageSize       int
	RequestsPerSec float64
	SRID           int
	BackoffBase    time.Duration

	BreakerThreshold int           // consecutive failed requests that open the breaker; <0 disables it
	BreakerReset     time.Duration // how long the breaker stays open
}

// Client talks to the NVDB read API with throttling and retries.
type Client struct {
	http    *http.Client
	opts    Options
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewClient creates a Client, filling unset options with defaults.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.CatalogURL == "" {
		opts.CatalogURL = DefaultCatalogURL
	}
	if opts.ClientName == "" {
		opts.ClientName = "nvdb-export"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "nvdb-export/1.0"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 1000
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 5
	}
	if opts.BackoffBase == 0 {
		opts.BackoffBase = time.Second
	}
	if opts.BreakerThreshold == 0 {
		opts.BreakerThreshold = 5
	}
	if opts.BreakerReset <= 0 {
		opts.BreakerReset = 30 * time.Second
	}

	var breaker *resilience.Breaker
	if opts.BreakerThreshold > 0 {
		breaker = resilience.NewBreaker(resilience.BreakerConfig{
			FailureThreshold: opts.BreakerThreshold,
			ResetTimeout:     opts.BreakerReset,
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("nvdb: circuit breaker state change",
					zap.String("component", "nvdb.client"),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		})
	}

	burst := int(math.Ceil(opts.RequestsPerSec))
	return &Client{
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), burst),
		breaker: breaker,
	}
}

// Options returns the effective client options.
func (c *Client) Options() Options { return c.opts }

// getJSON fetches rawURL and returns the body once it is known to be valid
// JSON. 408, 429, 5xx and transport errors are retried with backoff; after
// BreakerThreshold consecutive exhausted requests the client fails fast with
// resilience.ErrCircuitOpen until BreakerReset has passed.
func (c *Client) getJSON(ctx context.Context, rawURL string) ([]byte, error) {
	log := zap.L().With(zap.String("component", "nvdb.client"), zap.String("url", rawURL))

	retry := resilience.RetryConfig{
		MaxAttempts:    c.opts.MaxRetries,
		InitialBackoff: c.opts.BackoffBase,
		OnRetry:        resilience.RetryLogger(log),
	}
	body, err := resilience.Call(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
		return resilience.Retry(ctx, retry, func(ctx context.Context) ([]byte, error) {
			return c.fetch(ctx, rawURL)
		})
	})
	switch {
	case err == nil:
		return body, nil
	case errors.Is(err, resilience.ErrCircuitOpen):
		return nil, eris.Wrapf(err, "nvdb: request to %s rejected", rawURL)
	case resilience.IsTransient(err):
		return nil, eris.Wrap(err, "nvdb: all retries exhausted")
	default:
		return nil, err
	}
}

// fetch makes a single throttled GET request.
func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "nvdb: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "nvdb: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Client", c.opts.ClientName)
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "nvdb: request cancelled")
		}
		return nil, resilience.NewTransientError(eris.Wrapf(err, "nvdb: get %s", rawURL), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := eris.Errorf("nvdb: unexpected status %d from %s: %s", resp.StatusCode, rawURL, string(excerpt))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "nvdb: read body from %s", rawURL), 0)
	}
	if !gjson.ValidBytes(body) {
		return nil, eris.Errorf("nvdb: invalid JSON from %s", rawURL)
	}
	return body, nil
}
