package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// DefaultMaxPayloadBytes caps one exposition snapshot read into memory.
const DefaultMaxPayloadBytes = 64 << 20

// PrometheusParseConfig controls Prometheus exposition parsing.
// Params: MaxBytes caps the payload size (0 uses DefaultMaxPayloadBytes).
// Returns: parser behavior options.
type PrometheusParseConfig struct {
	MaxBytes int64
}

// PrometheusParser holds precompiled Prometheus parsing config for repeated scrapes.
// Params: payload limit is pre-normalized.
// Returns: reusable parser instance.
type PrometheusParser struct {
	maxBytes int64
}

// NewPrometheusParser precompiles Prometheus parse options for repeated parsing.
// Params: cfg parser options.
// Returns: reusable Prometheus parser.
func NewPrometheusParser(cfg PrometheusParseConfig) *PrometheusParser {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPayloadBytes
	}

	return &PrometheusParser{
		maxBytes: maxBytes,
	}
}

// ParseSamplesPrometheus parses Prometheus text exposition into samples.
// Params: payload contains text exposition; scrapedAt stamps samples without explicit timestamp.
// Returns: parsed samples or ErrParse-wrapped error.
func ParseSamplesPrometheus(payload string, scrapedAt time.Time) ([]Sample, error) {
	parser := NewPrometheusParser(PrometheusParseConfig{})
	return parser.Parse(payload, scrapedAt)
}

// ParseFromReader reads at most the configured payload size and parses it.
// Params: r provides Prometheus text payload; scrapedAt is the fallback sample time.
// Returns: parsed samples, ErrFetch on read/size failures, ErrParse on grammar errors.
func (p *PrometheusParser) ParseFromReader(r io.Reader, scrapedAt time.Time) ([]Sample, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil reader", ErrFetch)
	}

	lim := &io.LimitedReader{R: r, N: p.maxBytes + 1}
	payload, err := io.ReadAll(lim)
	if err != nil {
		return nil, fmt.Errorf("%w: read Prometheus payload: %w", ErrFetch, err)
	}
	if int64(len(payload)) > p.maxBytes {
		return nil, fmt.Errorf("%w: Prometheus payload exceeds %d bytes", ErrFetch, p.maxBytes)
	}

	return p.Parse(string(payload), scrapedAt)
}

// Parse parses Prometheus text exposition into samples.
// Families are emitted in the order they first appear; series inside a family keep document order.
// Histogram and summary series stay whole (one sample per series, not per bucket).
// Params: payload contains text exposition; scrapedAt is the fallback sample time.
// Returns: parsed samples or ErrParse-wrapped error.
func (p *PrometheusParser) Parse(payload string, scrapedAt time.Time) ([]Sample, error) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	total := 0
	for _, family := range families {
		total += len(family.GetMetric())
	}
	names := familyOrder(payload, families)

	samples := make([]Sample, 0, total)
	for _, name := range names {
		family := families[name]
		kind := familyKind(family.GetType())
		for _, metric := range family.GetMetric() {
			samples = append(samples, Sample{
				Metric:    name,
				Labels:    labelMap(metric.GetLabel()),
				Value:     Value{Kind: kind, Raw: scalarValue(kind, metric)},
				Timestamp: sampleTime(metric, scrapedAt),
			})
		}
	}

	return samples, nil
}

// familyOrder lists family names by first appearance in the payload.
// HELP/TYPE comments and series lines both count; histogram and summary series
// resolve to their family through the _bucket, _sum and _count suffixes.
// Params: payload raw exposition; families parsed family set.
// Returns: every family name exactly once.
func familyOrder(payload string, families map[string]*dto.MetricFamily) []string {
	names := make([]string, 0, len(families))
	seen := make(map[string]struct{}, len(families))
	add := func(name string) bool {
		if _, ok := families[name]; !ok {
			return false
		}
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
		return true
	}

	for _, line := range strings.Split(payload, "\n") {
		token := lineMetricName(line)
		if token == "" || add(token) {
			continue
		}
		for _, suffix := range []string{"_bucket", "_sum", "_count"} {
			if base, ok := strings.CutSuffix(token, suffix); ok && add(base) {
				break
			}
		}
	}

	if len(names) == len(families) {
		return names
	}
	rest := make([]string, 0, len(families)-len(names))
	for name := range families {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// lineMetricName extracts the metric name a line refers to.
// Params: line one exposition line.
// Returns: series or HELP/TYPE metric name; empty for other lines.
func lineMetricName(line string) string {
	line = strings.TrimSpace(line)
	if rest, ok := strings.CutPrefix(line, "#"); ok {
		fields := strings.Fields(rest)
		if len(fields) < 2 || (fields[0] != "HELP" && fields[0] != "TYPE") {
			return ""
		}
		return fields[1]
	}
	end := strings.IndexAny(line, "{ \t")
	if end < 0 {
		return line
	}
	return line[:end]
}

// familyKind maps protobuf family type into sample value kind.
// Params: t exposition family type.
// Returns: value kind.
func familyKind(t dto.MetricType) ValueKind {
	switch t {
	case dto.MetricType_COUNTER:
		return KindCounter
	case dto.MetricType_GAUGE:
		return KindGauge
	case dto.MetricType_HISTOGRAM, dto.MetricType_GAUGE_HISTOGRAM:
		return KindHistogram
	case dto.MetricType_SUMMARY:
		return KindSummary
	default:
		return KindUntyped
	}
}

// scalarValue extracts the single observation for scalar kinds.
// Params: kind value kind; metric parsed series.
// Returns: observation or 0 for multi-component kinds.
func scalarValue(kind ValueKind, metric *dto.Metric) float64 {
	switch kind {
	case KindCounter:
		return metric.GetCounter().GetValue()
	case KindGauge:
		return metric.GetGauge().GetValue()
	case KindUntyped:
		return metric.GetUntyped().GetValue()
	default:
		return 0
	}
}

func labelMap(pairs []*dto.LabelPair) map[string]string {
	labels := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		labels[pair.GetName()] = pair.GetValue()
	}
	return labels
}

// sampleTime returns the explicit sample timestamp or the scrape time.
// Params: metric parsed series; scrapedAt fallback time.
// Returns: UTC observation time.
func sampleTime(metric *dto.Metric, scrapedAt time.Time) time.Time {
	if metric.TimestampMs == nil {
		return scrapedAt.UTC()
	}
	return time.UnixMilli(metric.GetTimestampMs()).UTC()
}
