package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/kjannette/trahn-planner/internal/cache"
	"github.com/kjannette/trahn-planner/internal/httputil"
	"github.com/kjannette/trahn-planner/internal/logger"
	"github.com/kjannette/trahn-planner/internal/results"
)

// Result sources.
const (
	SourceEndpoint = "endpoint"
	SourceCache    = "cache"
	SourceMock     = "mock"
)

var ErrNoEndpoint = errors.New("recommendation endpoint not configured")

type Request struct {
	CoinData string `json:"coin_data"`
	Prompt   string `json:"prompt"`
}

type response struct {
	Recommendations []results.Row `json:"recommendations"`
}

// Result is always success-shaped. DemoMode is set when Rows are the mock
// rows, with Failure holding the reason.
type Result struct {
	Rows     []results.Row
	DemoMode bool
	Failure  string
	Source   string
}

type Options struct {
	Endpoint      string
	APIKey        string
	Timeout       time.Duration
	Retry         httputil.RetryConfig
	RatePerMinute int // 0 disables throttling
	Cache         cache.Cache
	CacheTTL      time.Duration
	MockRows      []results.Row
}

type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	retry      httputil.RetryConfig
	limiter    *rate.Limiter
	cache      cache.Cache
	cacheTTL   time.Duration
	mockRows   []results.Row
	log        *logrus.Entry
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = httputil.Single
	}
	var limiter *rate.Limiter
	if opts.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), opts.RatePerMinute)
	}
	return &Client{
		endpoint:   opts.Endpoint,
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: opts.Timeout},
		retry:      opts.Retry,
		limiter:    limiter,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		mockRows:   opts.MockRows,
		log:        logger.Component("recommend"),
	}
}

// Recommend forwards coinData and prompt to the endpoint. Any failure yields
// the mock rows in demo mode.
func (c *Client) Recommend(ctx context.Context, coinData, prompt string) Result {
	req := Request{CoinData: coinData, Prompt: prompt}
	key := cache.Key("recommend", coinData, prompt)

	if c.cache != nil {
		if b, found, err := c.cache.Get(ctx, key); err != nil {
			c.log.Warnf("cache read: %v", err)
		} else if found {
			var rows []results.Row
			dec := json.NewDecoder(bytes.NewReader(b))
			dec.UseNumber()
			if err := dec.Decode(&rows); err == nil {
				return Result{Rows: rows, Source: SourceCache}
			}
		}
	}

	rows, err := c.fetch(ctx, req)
	if err != nil {
		c.log.Warnf("falling back to demo data: %v", err)
		return c.mock(err)
	}

	if c.cache != nil {
		if b, err := json.Marshal(rows); err == nil {
			if err := c.cache.Set(ctx, key, b, c.cacheTTL); err != nil {
				c.log.Warnf("cache write: %v", err)
			}
		}
	}

	c.log.Infof("received %d recommendations", len(rows))
	return Result{Rows: rows, Source: SourceEndpoint}
}

func (c *Client) fetch(ctx context.Context, req Request) ([]results.Row, error) {
	if c.endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			r.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(msg))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var out response
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Recommendations == nil {
		return nil, errors.New("response has no recommendations field")
	}
	return out.Recommendations, nil
}

func (c *Client) mock(cause error) Result {
	rows := make([]results.Row, len(c.mockRows))
	for i, r := range c.mockRows {
		cp := make(results.Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		rows[i] = cp
	}
	return Result{
		Rows:     rows,
		DemoMode: true,
		Failure:  cause.Error(),
		Source:   SourceMock,
	}
}
