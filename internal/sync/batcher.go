package sync

import (
	"github.com/manavgt54/idesync/internal/store"
)

// Batch is an ephemeral ordered group of files dispatched together in one pass.
type Batch struct {
	Files []*store.FileRecord
	Bytes int64
}

// CreateBatches partitions files into batches of at most maxFiles entries and
// at most maxBytes cumulative size, preserving input order within and across
// batches. A file larger than maxBytes still forms a singleton batch; no file
// is ever dropped. Pure function, single pass.
func CreateBatches(files []*store.FileRecord, maxFiles int, maxBytes int64) []*Batch {
	if len(files) == 0 {
		return nil
	}
	if maxFiles < 1 {
		maxFiles = 1
	}

	batches := make([]*Batch, 0, (len(files)+maxFiles-1)/maxFiles)
	current := &Batch{}

	for _, file := range files {
		full := len(current.Files) >= maxFiles ||
			(len(current.Files) > 0 && current.Bytes+file.Size > maxBytes)
		if full {
			batches = append(batches, current)
			current = &Batch{}
		}
		current.Files = append(current.Files, file)
		current.Bytes += file.Size
	}
	if len(current.Files) > 0 {
		batches = append(batches, current)
	}

	return batches
}
