package walker

// DefaultBatchSize is the File Walker's default batch size B (spec §4.2).
const DefaultBatchSize = 50

// Batch groups paths (already sorted by Walk) into consecutive chunks of at
// most size files each. size <= 0 falls back to DefaultBatchSize.
func Batch(paths []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	if len(paths) == 0 {
		return nil
	}
	batches := make([][]string, 0, (len(paths)+size-1)/size)
	for i := 0; i < len(paths); i += size {
		end := i + size
		if end > len(paths) {
			end = len(paths)
		}
		batches = append(batches, paths[i:end])
	}
	return batches
}
