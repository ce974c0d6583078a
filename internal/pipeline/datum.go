package pipeline

import (
	"io"
	"log/slog"
	"time"

	"prom2cw/internal/metrics"
)

const (
	// MaxDimensions is the CloudWatch per-datum dimension limit.
	MaxDimensions = 10
	// MaxBatchSize is the CloudWatch per-request datum limit for PutMetricData.
	MaxBatchSize = 20
)

// Dimension is one name/value attribute attached to a datum.
type Dimension struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Datum is one submission-ready metric data point.
// Params: metric name, at most MaxDimensions sorted dimensions, value and RFC 3339 timestamp.
// Returns: immutable data point payload.
type Datum struct {
	Name       string      `json:"name"`
	Dimensions []Dimension `json:"dimensions"`
	Value      float64     `json:"value"`
	Timestamp  string      `json:"timestamp"`
}

// Builder converts parsed samples into data points and reports lossy conversions.
// Params: logger receives per-sample warnings.
// Returns: stateless datum builder.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a datum builder.
// Params: logger for warnings; nil discards them.
// Returns: builder instance.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Builder{logger: logger}
}

// Datum builds exactly one data point for one sample.
// Params: sample parsed series.
// Returns: data point; unsupported value kinds yield value 0.
func (b *Builder) Datum(sample metrics.Sample) Datum {
	return Datum{
		Name:       sample.Metric,
		Dimensions: b.Dimensions(sample.Metric, sample.Labels),
		Value:      b.Value(sample.Metric, sample.Value),
		Timestamp:  FormatTimestamp(sample.Timestamp),
	}
}

// Data maps samples 1:1 into data points preserving order.
// Params: samples snapshot sequence.
// Returns: data point sequence of equal length.
func (b *Builder) Data(samples []metrics.Sample) []Datum {
	data := make([]Datum, 0, len(samples))
	for _, sample := range samples {
		data = append(data, b.Datum(sample))
	}
	return data
}

// FormatTimestamp renders an observation time in the datum interchange format.
func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}
