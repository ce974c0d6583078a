package metrics

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrFetch marks transport failures while reading the exposition snapshot.
	ErrFetch = errors.New("fetch snapshot")
	// ErrParse marks exposition payloads that do not follow the text grammar.
	ErrParse = errors.New("parse snapshot")
)

// ValueKind identifies the exposition type of one sample value.
// Params: none.
// Returns: enum value for counter/gauge/untyped/histogram/summary.
type ValueKind uint8

const (
	// KindUntyped represents samples without a TYPE declaration or declared untyped.
	KindUntyped ValueKind = iota
	// KindCounter represents monotonic counter samples.
	KindCounter
	// KindGauge represents gauge samples.
	KindGauge
	// KindHistogram represents one histogram series (buckets, sum and count together).
	KindHistogram
	// KindSummary represents one summary series (quantiles, sum and count together).
	KindSummary
)

// String returns the exposition type name.
func (k ValueKind) String() string {
	switch k {
	case KindUntyped:
		return "untyped"
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	case KindHistogram:
		return "histogram"
	case KindSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// Scalar reports whether the kind carries a single numeric observation.
func (k ValueKind) Scalar() bool {
	return k == KindUntyped || k == KindCounter || k == KindGauge
}

// Value carries one tagged sample value.
// Params: kind tag and raw observation (meaningful only for scalar kinds).
// Returns: typed metric value.
type Value struct {
	Kind ValueKind
	Raw  float64
}

// Sample is one observed series from the exposition snapshot.
// Params: metric name, label set, tagged value and observation time.
// Returns: one scrape sample entity.
type Sample struct {
	Metric    string
	Labels    map[string]string
	Value     Value
	Timestamp time.Time
}

// ScrapeSource produces the sample sequence of one snapshot.
// Params: context for cancellation and deadlines.
// Returns: samples in snapshot order or fetch/parse error.
type ScrapeSource interface {
	Name() string
	Scrape(ctx context.Context) ([]Sample, error)
}
