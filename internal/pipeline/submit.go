package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// SubmissionError reports the first batch the sink failed to accept.
// Batches after it were never attempted.
type SubmissionError struct {
	Batch  int
	Total  int
	Points int
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit batch %d/%d (%d points): %v", e.Batch, e.Total, e.Points, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Submit hands batches to the sink one at a time in order and stops at the first failure.
// Params: ctx submit context; sink destination; batches in submission order; logger for progress.
// Returns: number of accepted batches and a *SubmissionError for the first failed batch.
func Submit(ctx context.Context, sink MetricSink, batches []Batch, logger *slog.Logger) (int, error) {
	if sink == nil {
		return 0, fmt.Errorf("metric sink is nil")
	}

	for idx, batch := range batches {
		err := ctx.Err()
		if err == nil {
			err = sink.PutMetricData(ctx, batch.Namespace, batch.Data)
		}
		if err != nil {
			return idx, &SubmissionError{
				Batch:  idx + 1,
				Total:  len(batches),
				Points: len(batch.Data),
				Err:    err,
			}
		}

		if logger != nil {
			logger.Debug(
				"batch submitted",
				slog.Int("batch", idx+1),
				slog.Int("total", len(batches)),
				slog.Int("points", len(batch.Data)),
			)
		}
	}

	return len(batches), nil
}
