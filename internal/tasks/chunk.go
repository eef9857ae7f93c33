package tasks

// Chunk splits items into consecutive batches of at most size elements.
//
// Concatenating the batches reproduces items. Empty input or a non-positive size yields no batches.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end:end])
	}
	return batches
}

// batches counts the batches Chunk would produce.
func batches(n, size int) int {
	if size <= 0 || n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}
