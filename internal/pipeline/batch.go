package pipeline

// Batch is one PutMetricData request payload.
type Batch struct {
	Namespace string
	Data      []Datum
}

// Partition splits data points into consecutive groups of at most size elements.
// Params: data ordered points; size group capacity (<= 0 uses MaxBatchSize).
// Returns: ceil(len/size) groups whose concatenation equals data; nil for empty input.
func Partition(data []Datum, size int) [][]Datum {
	if size <= 0 {
		size = MaxBatchSize
	}
	if len(data) == 0 {
		return nil
	}

	groups := make([][]Datum, 0, (len(data)+size-1)/size)
	for start := 0; start < len(data); start += size {
		end := min(start+size, len(data))
		groups = append(groups, data[start:end:end])
	}
	return groups
}

// Batches wraps partitioned data points with their target namespace.
// Params: namespace target namespace; data ordered points.
// Returns: request payloads in submission order.
func Batches(namespace string, data []Datum) []Batch {
	groups := Partition(data, MaxBatchSize)
	batches := make([]Batch, 0, len(groups))
	for _, group := range groups {
		batches = append(batches, Batch{Namespace: namespace, Data: group})
	}
	return batches
}
