package pipeline

import (
	"log/slog"

	"prom2cw/internal/metrics"
)

// Value selects the single numeric observation of a tagged sample value.
// Params: metric name for reporting; value tagged sample value.
// Returns: raw value for counter/gauge/untyped, otherwise 0 with a warning.
func (b *Builder) Value(metric string, value metrics.Value) float64 {
	if value.Kind.Scalar() {
		return value.Raw
	}

	b.logger.Warn(
		"unsupported metric type",
		slog.String("warning", "unsupported_value"),
		slog.String("metric", metric),
		slog.String("type", value.Kind.String()),
	)
	return 0
}
