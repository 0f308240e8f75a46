package importer

const (
	// DefaultBatchSize is the number of records written per transaction.
	DefaultBatchSize = 500
	// MaxBatchSize keeps one product upsert under the Postgres limit of
	// 65535 bind parameters.
	MaxBatchSize = 5000
)

// BatchSize clamps a configured size into [1, MaxBatchSize]; sizes <= 0
// fall back to DefaultBatchSize.
func BatchSize(size int) int {
	switch {
	case size <= 0:
		return DefaultBatchSize
	case size > MaxBatchSize:
		return MaxBatchSize
	default:
		return size
	}
}

// Chunk splits items into consecutive slices of at most size elements,
// preserving order. The last chunk may be smaller.
func Chunk[T any](items []T, size int) [][]T {
	size = BatchSize(size)
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
