package importer

import "github.com/catalogtools/importer/internal/importer/domain"

// DefaultBatchSize is the number of records flushed to storage at a time.
const DefaultBatchSize = 5000

// Batcher accumulates normalized records into fixed-size batches with unique
// SKUs. When a key recurs before the open batch closes, the earlier entry is
// replaced in place, so the last occurrence wins and the batch never carries
// a doomed double-write.
type Batcher struct {
	size  int
	recs  []domain.ProductRecord
	index map[string]int
}

// NewBatcher creates a batcher that closes batches at the given size. A size
// of zero or less falls back to DefaultBatchSize.
func NewBatcher(size int) *Batcher {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Batcher{
		size:  size,
		recs:  make([]domain.ProductRecord, 0, size),
		index: make(map[string]int, size),
	}
}

// Add accepts one record. When the open batch reaches the target size it is
// returned closed and the batcher resets; otherwise Add returns nil.
func (b *Batcher) Add(rec domain.ProductRecord) []domain.ProductRecord {
	if i, ok := b.index[rec.SKU]; ok {
		b.recs[i] = rec
		return nil
	}

	b.index[rec.SKU] = len(b.recs)
	b.recs = append(b.recs, rec)

	if len(b.recs) >= b.size {
		return b.reset()
	}
	return nil
}

// Flush closes and returns the final partial batch, or nil when empty.
func (b *Batcher) Flush() []domain.ProductRecord {
	if len(b.recs) == 0 {
		return nil
	}
	return b.reset()
}

// Len returns the number of records in the open batch.
func (b *Batcher) Len() int {
	return len(b.recs)
}

func (b *Batcher) reset() []domain.ProductRecord {
	batch := b.recs
	b.recs = make([]domain.ProductRecord, 0, b.size)
	b.index = make(map[string]int, b.size)
	return batch
}
