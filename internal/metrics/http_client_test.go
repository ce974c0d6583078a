package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPClientSourceScrapePrometheus(t *testing.T) {
	payload := strings.Join([]string{
		`# TYPE vector_build_info gauge`,
		`vector_build_info{host="dev",version="0.53.0"} 1`,
		`# TYPE vector_component_received_bytes_total counter`,
		`vector_component_received_bytes_total{host="dev",component_id="in"} 42`,
	}, "\n") + "\n"

	var accept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	source := NewHTTPClientSource("federate", server.URL, HTTPClientSourceOptions{Timeout: time.Second})

	samples, err := source.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape() error: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("unexpected sample count: got=%d want=2", len(samples))
	}
	if got := findSample(t, samples, "vector_component_received_bytes_total").Value.Raw; got != 42 {
		t.Fatalf("unexpected counter value: %v", got)
	}
	if !strings.HasPrefix(accept, "text/plain") {
		t.Fatalf("unexpected Accept header: %q", accept)
	}
	if source.Name() != "federate" {
		t.Fatalf("unexpected source name: %q", source.Name())
	}
}

func TestHTTPClientSourceScrapeStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "federation disabled", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	source := NewHTTPClientSource("federate", server.URL, HTTPClientSourceOptions{Timeout: time.Second})

	_, err := source.Scrape(context.Background())
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if !strings.Contains(err.Error(), "federation disabled") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestHTTPClientSourceScrapeUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	source := NewHTTPClientSource("federate", url, HTTPClientSourceOptions{Timeout: time.Second})

	_, err := source.Scrape(context.Background())
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestHTTPClientSourceScrapeParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("up{job=\"x\"} not-a-number\n"))
	}))
	defer server.Close()

	source := NewHTTPClientSource("federate", server.URL, HTTPClientSourceOptions{Timeout: time.Second})

	_, err := source.Scrape(context.Background())
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if errors.Is(err, ErrFetch) {
		t.Fatalf("parse failure must not be reported as fetch failure: %v", err)
	}
}
