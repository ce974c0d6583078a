package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"prom2cw/internal/config"
	"prom2cw/internal/metrics"
)

const federateSourceName = "federate"

// Summary describes the outcome of one pipeline pass.
type Summary struct {
	Samples   int
	Batches   int
	Submitted int
}

// Engine runs one scrape-transform-submit pass.
// Params: scrape source, metric sink, namespace and logger.
// Returns: pipeline runtime engine.
type Engine struct {
	source    metrics.ScrapeSource
	sink      MetricSink
	namespace string
	builder   *Builder
	logger    *slog.Logger
}

// NewEngine wires a pipeline from its collaborators.
// Params: source snapshot producer; sink batch consumer; namespace target namespace; logger root logger.
// Returns: engine or validation error.
func NewEngine(source metrics.ScrapeSource, sink MetricSink, namespace string, logger *slog.Logger) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("scrape source is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("metric sink is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}

	return &Engine{
		source:    source,
		sink:      sink,
		namespace: namespace,
		builder:   NewBuilder(logger),
		logger:    logger,
	}, nil
}

// NewFromConfig builds the HTTP federate source and the CloudWatch (or dry-run) sink.
// Params: ctx for AWS config resolution; cfg validated runtime config; logger initialized logger.
// Returns: engine or error.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	source := metrics.NewHTTPClientSource(
		federateSourceName,
		cfg.Source.URL,
		metrics.HTTPClientSourceOptions{
			Timeout:  cfg.Source.Timeout.Duration,
			MaxBytes: cfg.Source.MaxBytes,
		},
	)

	var sink MetricSink
	if cfg.CloudWatch.DryRun {
		sink = NewDryRunSink(logger)
	} else {
		cloudWatch, err := NewCloudWatchSink(ctx, cfg.CloudWatch)
		if err != nil {
			return nil, fmt.Errorf("init cloudwatch sink: %w", err)
		}
		// Batches are logged only once CloudWatch accepted them.
		sink = NewMultiSink(cloudWatch, NewLogSink(logger))
	}

	return NewEngine(source, sink, cfg.CloudWatch.Namespace, logger)
}

// Run executes scrape, datum building, batching and sequential submission.
// Params: ctx cancels fetch and in-flight submission.
// Returns: pass summary and the first fatal error (fetch, parse or submission).
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	samples, err := e.source.Scrape(ctx)
	if err != nil {
		return summary, fmt.Errorf("scrape %s: %w", e.source.Name(), err)
	}
	summary.Samples = len(samples)

	batches := Batches(e.namespace, e.builder.Data(samples))
	summary.Batches = len(batches)

	e.logger.Info(
		"snapshot transformed",
		slog.String("source", e.source.Name()),
		slog.Int("samples", summary.Samples),
		slog.Int("batches", summary.Batches),
		slog.String("namespace", e.namespace),
	)

	submitted, err := Submit(ctx, e.sink, batches, e.logger)
	summary.Submitted = submitted
	if err != nil {
		return summary, err
	}

	return summary, nil
}
