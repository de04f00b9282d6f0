// Package scraper fetches pages from the college website with rate
// limiting, retries, User-Agent rotation and request coalescing.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/corpix/uarand"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/singleflight"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/metrics"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/ratelimit"
)

// maxBodyBytes caps a single page download.
const maxBodyBytes = 4 << 20

// Options configures a Client.
type Options struct {
	Timeout      time.Duration // per request
	MaxRetries   int
	RetryInitial time.Duration
	// MinInterval is the minimum spacing between requests; 0 disables it.
	MinInterval time.Duration
	Metrics     *metrics.Metrics
	// HTTPClient overrides the transport; tests only.
	HTTPClient *http.Client
}

// Client is a polite HTTP client for the college website.
type Client struct {
	httpClient   *http.Client
	limiter      *ratelimit.Limiter
	maxRetries   int
	retryInitial time.Duration
	metrics      *metrics.Metrics
	group        singleflight.Group
}

// NewClient creates a scraper client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	var limiter *ratelimit.Limiter
	if opts.MinInterval > 0 {
		limiter = ratelimit.New(1, 1/opts.MinInterval.Seconds())
	}

	return &Client{
		httpClient:   httpClient,
		limiter:      limiter,
		maxRetries:   max(0, opts.MaxRetries),
		retryInitial: opts.RetryInitial,
		metrics:      opts.Metrics,
	}
}

// Fetch downloads url and returns its decoded body. Concurrent calls for the
// same url share a single download.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	v, err, shared := c.group.Do(url, func() (any, error) {
		return c.fetch(ctx, url)
	})
	if shared {
		c.metrics.RecordSingleflightDedup()
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// GetDocument fetches url and parses it as HTML.
func (c *Client) GetDocument(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := c.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", url, err)
	}
	return doc, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	var body []byte

	err := RetryWithBackoff(ctx, c.maxRetries, c.retryInitial, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		b, err := c.do(ctx, url)
		if err != nil {
			return err
		}
		body = b
		return nil
	})

	status := "success"
	if err != nil {
		status = "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			status = "timeout"
		}
	}
	c.metrics.RecordScraperRequest(status, time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", uarand.GetRandom())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited for %s: status %d", url, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("server error for %s: status %d", url, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusUnauthorized:
		return nil, Permanent(fmt.Errorf("client error for %s: status %d", url, resp.StatusCode))
	default:
		return nil, fmt.Errorf("unexpected status for %s: %d", url, resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress gzip: %w", err)
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", url, err)
	}
	return body, nil
}
