package api

import (
	"encoding/json"
	"net/http"

	"github.com/stashdb/stashdb/pkg/domain"
)

// firstBatchCursor and nextBatchCursor are the two shapes of the cursor
// field: listIndexes replies carry firstBatch, getMore replies carry
// nextBatch. An id of 0 means the result set is exhausted and no cursor is
// registered.
type firstBatchCursor struct {
	ID         int64             `json:"id"`
	NS         string            `json:"ns"`
	FirstBatch []domain.Document `json:"firstBatch"`
}

type nextBatchCursor struct {
	ID        int64             `json:"id"`
	NS        string            `json:"ns"`
	NextBatch []domain.Document `json:"nextBatch"`
}

type cursorResponse struct {
	Cursor interface{} `json:"cursor"`
	OK     int         `json:"ok"`
}

func writeFirstBatch(w http.ResponseWriter, id int64, ns string, docs []domain.Document) {
	if docs == nil {
		docs = []domain.Document{}
	}
	writeCursorResponse(w, firstBatchCursor{ID: id, NS: ns, FirstBatch: docs})
}

func writeNextBatch(w http.ResponseWriter, id int64, ns string, docs []domain.Document) {
	if docs == nil {
		docs = []domain.Document{}
	}
	writeCursorResponse(w, nextBatchCursor{ID: id, NS: ns, NextBatch: docs})
}

func writeCursorResponse(w http.ResponseWriter, cursor interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(cursorResponse{Cursor: cursor, OK: 1})
}
