package pipeline

import (
	"fmt"
	"reflect"
	"testing"
)

func makeData(n int) []Datum {
	data := make([]Datum, 0, n)
	for idx := 0; idx < n; idx++ {
		data = append(data, Datum{Name: fmt.Sprintf("metric_%03d", idx), Value: float64(idx)})
	}
	return data
}

func TestPartition_Sizes(t *testing.T) {
	cases := []struct {
		n    int
		want []int
	}{
		{n: 0, want: nil},
		{n: 1, want: []int{1}},
		{n: 19, want: []int{19}},
		{n: 20, want: []int{20}},
		{n: 21, want: []int{20, 1}},
		{n: 45, want: []int{20, 20, 5}},
		{n: 60, want: []int{20, 20, 20}},
	}

	for _, tc := range cases {
		groups := Partition(makeData(tc.n), MaxBatchSize)

		var sizes []int
		for _, group := range groups {
			sizes = append(sizes, len(group))
		}
		if !reflect.DeepEqual(sizes, tc.want) {
			t.Fatalf("n=%d: batch sizes = %v, want %v", tc.n, sizes, tc.want)
		}
		if want := (tc.n + MaxBatchSize - 1) / MaxBatchSize; len(groups) != want {
			t.Fatalf("n=%d: batch count = %d, want %d", tc.n, len(groups), want)
		}
	}
}

func TestPartition_ConcatenationPreservesOrder(t *testing.T) {
	for n := 0; n <= 101; n++ {
		data := makeData(n)
		groups := Partition(data, MaxBatchSize)

		joined := make([]Datum, 0, n)
		for idx, group := range groups {
			if idx < len(groups)-1 && len(group) != MaxBatchSize {
				t.Fatalf("n=%d: batch %d has %d points", n, idx, len(group))
			}
			joined = append(joined, group...)
		}
		if !reflect.DeepEqual(joined, data) {
			t.Fatalf("n=%d: concatenation differs from input", n)
		}
	}
}

func TestPartition_GroupsDoNotShareSpareCapacity(t *testing.T) {
	data := makeData(25)
	groups := Partition(data, MaxBatchSize)

	first := groups[0]
	if cap(first) != len(first) {
		t.Fatalf("first batch capacity leaks into next batch: len=%d cap=%d", len(first), cap(first))
	}
	extended := append(first, Datum{Name: "extra"})
	if len(extended) != MaxBatchSize+1 {
		t.Fatalf("unexpected extended length: %d", len(extended))
	}
	if groups[1][0].Name != "metric_020" {
		t.Fatalf("append to first batch overwrote second batch: %q", groups[1][0].Name)
	}
}

func TestPartition_NonPositiveSizeUsesDefault(t *testing.T) {
	groups := Partition(makeData(41), 0)
	if len(groups) != 3 || len(groups[0]) != MaxBatchSize {
		t.Fatalf("unexpected default partition: %d groups", len(groups))
	}
}

func TestBatches_AttachNamespace(t *testing.T) {
	batches := Batches("Prometheus", makeData(45))
	if len(batches) != 3 {
		t.Fatalf("unexpected batch count: %d", len(batches))
	}
	for idx, batch := range batches {
		if batch.Namespace != "Prometheus" {
			t.Fatalf("batch %d namespace = %q", idx, batch.Namespace)
		}
	}
	if got := len(batches[2].Data); got != 5 {
		t.Fatalf("last batch size = %d, want 5", got)
	}
	if len(Batches("Prometheus", nil)) != 0 {
		t.Fatalf("expected no batches for empty input")
	}
}
