package pipeline

import (
	"log/slog"
	"slices"
	"strings"
)

// Dimensions derives the bounded, name-sorted dimension list from a label set.
// Labels with a blank name or value are skipped. When more than MaxDimensions
// remain, the lexicographically smallest names are kept and the rest reported.
// Names are not deduplicated.
// Params: metric name for reporting; labels sample label set.
// Returns: at most MaxDimensions dimensions sorted byte-wise by name.
func (b *Builder) Dimensions(metric string, labels map[string]string) []Dimension {
	dimensions := make([]Dimension, 0, len(labels))
	for name, value := range labels {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(value) == "" {
			continue
		}
		dimensions = append(dimensions, Dimension{Name: name, Value: value})
	}

	slices.SortStableFunc(dimensions, func(x, y Dimension) int {
		return strings.Compare(x.Name, y.Name)
	})

	if len(dimensions) <= MaxDimensions {
		return dimensions
	}

	rest := dimensions[MaxDimensions:]
	dropped := make([]string, 0, len(rest))
	for _, dimension := range rest {
		dropped = append(dropped, dimension.Name+"="+dimension.Value)
	}
	b.logger.Warn(
		"number of labels exceeds the dimensions max, truncating",
		slog.String("warning", "dimension_overflow"),
		slog.String("metric", metric),
		slog.Int("max", MaxDimensions),
		slog.Any("dropped", dropped),
	)

	return slices.Clip(dimensions[:MaxDimensions])
}
