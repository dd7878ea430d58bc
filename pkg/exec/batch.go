package exec

import (
	"encoding/json"
	"fmt"

	"github.com/stashdb/stashdb/pkg/domain"
)

// MaxBatchBytes is the default serialized-size budget for a single batch.
const MaxBatchBytes = 16 << 20

// Batch is an ordered slice of documents with a running serialized-size
// accumulator. The accumulated size never exceeds the byte budget the batch
// was assembled with, except for a single document individually larger than
// the budget.
type Batch struct {
	docs  []domain.Document
	bytes int
}

// Documents returns the batch contents in order. Never nil.
func (b *Batch) Documents() []domain.Document {
	return b.docs
}

// Len returns the number of documents in the batch.
func (b *Batch) Len() int {
	return len(b.docs)
}

// Bytes returns the accumulated serialized size of the batch.
func (b *Batch) Bytes() int {
	return b.bytes
}

// AssembleBatch pulls documents from src until maxCount documents have been
// collected, the serialized batch would exceed maxBytes, or the source is
// exhausted. A document that would overflow the budget is pushed back so the
// next assembly returns it first; the first document of a batch is always
// admitted to guarantee forward progress on oversized documents.
//
// more is false only when this call itself observed end-of-data.
func AssembleBatch(src DocumentSource, maxCount int64, maxBytes int) (batch *Batch, more bool, err error) {
	if maxBytes <= 0 {
		maxBytes = MaxBatchBytes
	}
	batch = &Batch{docs: []domain.Document{}}
	for int64(len(batch.docs)) < maxCount {
		doc, ok := src.Advance()
		if !ok {
			return batch, false, nil
		}
		size, err := serializedSize(doc)
		if err != nil {
			return nil, false, err
		}
		if len(batch.docs) > 0 && batch.bytes+size > maxBytes {
			src.PushBack(doc)
			return batch, true, nil
		}
		batch.docs = append(batch.docs, doc)
		batch.bytes += size
	}
	// Count limit reached. Peek so that a source drained to exactly maxCount
	// reports exhaustion now instead of forcing an empty continuation batch.
	if doc, ok := src.Advance(); ok {
		src.PushBack(doc)
		return batch, true, nil
	}
	return batch, false, nil
}

func serializedSize(doc domain.Document) (int, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize document: %w", err)
	}
	return len(data), nil
}
