package exec

import (
	"github.com/stashdb/stashdb/pkg/domain"
)

// DocumentSource is the pull protocol batch assembly and cursor continuation
// run against. A source that wraps a precomputed sequence is
// indistinguishable, to consumers of this interface, from a real query plan.
type DocumentSource interface {
	// Advance returns the next document, or ok=false at end-of-data.
	Advance() (domain.Document, bool)

	// PushBack re-inserts doc at the front so the next Advance returns it
	// again. Only the document most recently returned by Advance may be
	// pushed back, and at most once before the next Advance.
	PushBack(doc domain.Document)

	// Close releases the source's remaining documents. The source must not
	// be used afterwards.
	Close()
}

// QueuedSource adapts an ordered, precomputed sequence of documents to the
// DocumentSource protocol. The position only ever advances, except for the
// single step back performed by PushBack.
type QueuedSource struct {
	docs        []domain.Document
	pos         int
	canPushBack bool
}

// NewQueuedSource creates a source that yields docs in order. The source
// takes ownership of the slice.
func NewQueuedSource(docs []domain.Document) *QueuedSource {
	return &QueuedSource{docs: docs}
}

// Advance implements DocumentSource.
func (s *QueuedSource) Advance() (domain.Document, bool) {
	if s.pos >= len(s.docs) {
		s.canPushBack = false
		return nil, false
	}
	doc := s.docs[s.pos]
	s.pos++
	s.canPushBack = true
	return doc, true
}

// PushBack implements DocumentSource. Calling it without a preceding
// Advance, or twice in a row, is a programming error.
func (s *QueuedSource) PushBack(doc domain.Document) {
	if !s.canPushBack {
		panic("exec: PushBack without a preceding Advance")
	}
	s.pos--
	s.docs[s.pos] = doc
	s.canPushBack = false
}

// Remaining reports how many documents have not been consumed yet.
func (s *QueuedSource) Remaining() int {
	return len(s.docs) - s.pos
}

// Close implements DocumentSource.
func (s *QueuedSource) Close() {
	s.docs = nil
	s.pos = 0
	s.canPushBack = false
}
