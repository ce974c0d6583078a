package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
)

func TestLogSink_DebugOnly(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&out, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := NewLogSink(logger).PutMetricData(context.Background(), "Prometheus", makeData(2)); err != nil {
		t.Fatalf("PutMetricData() error: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("debug sink must stay silent at info level, got %q", out.String())
	}
}

func TestDryRunSink_LogsBatchPayload(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&out, &slog.HandlerOptions{Level: slog.LevelInfo}))

	data := []Datum{{
		Name:       "up",
		Dimensions: []Dimension{{Name: "job", Value: "api"}},
		Value:      1,
		Timestamp:  "2024-05-01T10:00:00Z",
	}}
	if err := NewDryRunSink(logger).PutMetricData(context.Background(), "Prometheus", data); err != nil {
		t.Fatalf("PutMetricData() error: %v", err)
	}

	var record map[string]any
	if err := json.Unmarshal(out.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	if record["namespace"] != "Prometheus" || record["points"] != float64(1) {
		t.Fatalf("unexpected record: %v", record)
	}
	payload, _ := record["payload"].(string)
	if !strings.Contains(payload, `"dimensions":[{"name":"job","value":"api"}]`) {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestMultiSink_StopsAtFirstError(t *testing.T) {
	rejected := errors.New("rejected")
	failing := &fakeSink{failAt: map[int]error{1: rejected}}
	healthy := &fakeSink{}

	sink := NewMultiSink(failing, nil, healthy)
	err := sink.PutMetricData(context.Background(), "Prometheus", makeData(3))
	if !errors.Is(err, rejected) {
		t.Fatalf("expected first sink error, got %v", err)
	}
	if failing.count() != 1 || healthy.count() != 0 {
		t.Fatalf("sinks after a failure must not see the batch: failing=%d healthy=%d", failing.count(), healthy.count())
	}

	if err := sink.PutMetricData(context.Background(), "Prometheus", makeData(3)); err != nil {
		t.Fatalf("second batch error: %v", err)
	}
	if failing.count() != 2 || healthy.count() != 1 {
		t.Fatalf("expected both sinks called for accepted batch: failing=%d healthy=%d", failing.count(), healthy.count())
	}
}

func nonFiniteData() []Datum {
	return []Datum{
		{Name: "ratio", Value: math.NaN(), Timestamp: "2024-05-01T10:00:00Z"},
		{Name: "limit", Value: math.Inf(1), Timestamp: "2024-05-01T10:00:00Z"},
	}
}

func TestDryRunSink_NonFiniteValuesDoNotFail(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := NewDryRunSink(logger).PutMetricData(context.Background(), "Prometheus", nonFiniteData()); err != nil {
		t.Fatalf("PutMetricData() error: %v", err)
	}
	logs := out.String()
	for _, want := range []string{"metric batch", "points=2", "NaN", "+Inf", "payload_error="} {
		if !strings.Contains(logs, want) {
			t.Fatalf("expected %q in logs:\n%s", want, logs)
		}
	}
}

func TestSubmit_DebugLogSinkNeverFailsAcceptedBatch(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	remote := &fakeSink{}

	batches := []Batch{
		{Namespace: "Prometheus", Data: makeData(3)},
		{Namespace: "Prometheus", Data: nonFiniteData()},
	}
	submitted, err := Submit(context.Background(), NewMultiSink(remote, NewLogSink(logger)), batches, logger)
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if submitted != 2 || remote.count() != 2 {
		t.Fatalf("expected both batches submitted: submitted=%d calls=%d", submitted, remote.count())
	}
}
