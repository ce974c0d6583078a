package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// MetricSink accepts one bounded batch of data points for a namespace.
// Params: context, namespace and at most MaxBatchSize data points.
// Returns: error when the batch is rejected or cannot be delivered.
type MetricSink interface {
	PutMetricData(ctx context.Context, namespace string, data []Datum) error
}

// LogSink writes batch payloads into logs instead of delivering them.
// Params: logger used for output and record level.
// Returns: logging sink instance.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSink creates a sink that logs batches at debug level.
// Params: logger instance.
// Returns: metric sink implementation.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger, level: slog.LevelDebug}
}

// NewDryRunSink creates a sink that logs every batch at info level.
// Params: logger instance.
// Returns: metric sink implementation.
func NewDryRunSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger, level: slog.LevelInfo}
}

// PutMetricData logs one batch as compact JSON.
// Batches JSON cannot encode (NaN or Inf values) are logged field by field instead.
// Params: ctx for level check; namespace and batch payload to log.
// Returns: always nil; logging never fails a batch.
func (s *LogSink) PutMetricData(ctx context.Context, namespace string, data []Datum) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.logger.Enabled(ctx, s.level) {
		return nil
	}

	attrs := []any{
		slog.String("namespace", namespace),
		slog.Int("points", len(data)),
	}
	if payload, err := json.Marshal(data); err == nil {
		attrs = append(attrs, slog.String("payload", string(payload)))
	} else {
		attrs = append(attrs,
			slog.String("payload", fmt.Sprintf("%+v", data)),
			slog.String("payload_error", err.Error()),
		)
	}

	s.logger.Log(ctx, s.level, "metric batch", attrs...)
	return nil
}

// MultiSink forwards each batch to several sinks in order and stops at the first failure,
// so later sinks only see batches the earlier ones accepted.
type MultiSink struct {
	sinks []MetricSink
}

// NewMultiSink builds composite sink from sink list.
// Params: sinks target list; nil entries are skipped.
// Returns: multi sink implementation.
func NewMultiSink(sinks ...MetricSink) *MultiSink {
	out := make([]MetricSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		out = append(out, sink)
	}
	return &MultiSink{sinks: out}
}

// PutMetricData forwards batch to child sinks until one fails.
// Params: ctx submit context; namespace and batch payload.
// Returns: error of the first failing sink, if any.
func (s *MultiSink) PutMetricData(ctx context.Context, namespace string, data []Datum) error {
	for _, sink := range s.sinks {
		if err := sink.PutMetricData(ctx, namespace, data); err != nil {
			return err
		}
	}
	return nil
}
