package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const acceptExposition = "text/plain;version=0.0.4;q=1,*/*;q=0.1"

// HTTPClientSource fetches Prometheus text over HTTP GET and parses it into samples.
// Params: source name, URL and request settings.
// Returns: HTTP scrape source instance.
type HTTPClientSource struct {
	name       string
	url        string
	client     *http.Client
	prometheus *PrometheusParser
	now        func() time.Time
}

// HTTPClientSourceOptions describes optional HTTP fetch behavior.
// Params: Timeout bounds the whole request; MaxBytes caps the body.
// Returns: source runtime options.
type HTTPClientSourceOptions struct {
	Timeout  time.Duration
	MaxBytes int64
}

// NewHTTPClientSource creates an HTTP scrape source.
// Params: name used in logs; url GET endpoint; options request settings.
// Returns: configured HTTP scrape source.
func NewHTTPClientSource(name string, url string, options HTTPClientSourceOptions) *HTTPClientSource {
	return &HTTPClientSource{
		name: strings.TrimSpace(name),
		url:  strings.TrimSpace(url),
		client: &http.Client{
			Timeout: options.Timeout,
		},
		prometheus: NewPrometheusParser(PrometheusParseConfig{
			MaxBytes: options.MaxBytes,
		}),
		now: time.Now,
	}
}

// Name returns logical source name.
func (c *HTTPClientSource) Name() string {
	return c.name
}

// Scrape fetches the exposition snapshot from configured URL and parses it.
// Params: ctx for cancellation.
// Returns: parsed samples, ErrFetch on transport/status failure, ErrParse on grammar failure.
func (c *HTTPClientSource) Scrape(ctx context.Context) ([]Sample, error) {
	if strings.TrimSpace(c.url) == "" {
		return nil, fmt.Errorf("%w: url is required", ErrFetch)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", acceptExposition)

	scrapedAt := c.now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrFetch, c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		bodyText := strings.TrimSpace(string(body))
		if bodyText == "" {
			return nil, fmt.Errorf("%w: GET %s: unexpected status %s", ErrFetch, c.url, resp.Status)
		}
		return nil, fmt.Errorf("%w: GET %s: unexpected status %s: %s", ErrFetch, c.url, resp.Status, bodyText)
	}

	samples, err := c.prometheus.ParseFromReader(resp.Body, scrapedAt)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", c.url, err)
	}

	return samples, nil
}
