package api

import (
	"fmt"
	"log"
	"net/http"

	"github.com/stashdb/stashdb/pkg/auth"
	"github.com/stashdb/stashdb/pkg/domain"
	"github.com/stashdb/stashdb/pkg/exec"
)

// GetMoreRequest continues a registered cursor.
type GetMoreRequest struct {
	GetMore    int64  `json:"getMore"`
	Collection string `json:"collection"`
	BatchSize  *int64 `json:"batchSize"`
}

// HandleGetMore drains the next batch from a registered cursor. An exhausted
// cursor is destroyed and reported with id 0; otherwise the cursor stays
// registered under the same id.
func (h *Handler) HandleGetMore(w http.ResponseWriter, r *http.Request) {
	var req GetMoreRequest
	if err := decodeCommandBody(r, &req); err != nil {
		writeCommandError(w, err)
		return
	}
	if req.GetMore == 0 || req.Collection == "" {
		writeCommandError(w, fmt.Errorf("getMore requires a cursor id and a collection: %w", domain.ErrBadValue))
		return
	}
	batchSize, err := parseBatchSize(req.BatchSize)
	if err != nil {
		writeCommandError(w, err)
		return
	}

	log.Printf("INFO: handleGetMore called for cursor %d on collection '%s'", req.GetMore, req.Collection)

	principals := auth.ParsePrincipals(r.Header.Get(auth.PrincipalHeader))
	pinned, err := h.cursors.Pin(req.GetMore, principals)
	if err != nil {
		log.Printf("WARN: getMore for cursor %d rejected: %v", req.GetMore, err)
		writeCommandError(w, err)
		return
	}

	collName, err := h.catalog.Resolve(req.Collection)
	if err != nil {
		pinned.Release()
		writeCommandError(w, err)
		return
	}
	ns := h.catalog.Namespace(collName)
	if pinned.NS() != ns {
		pinned.Release()
		writeCommandError(w, fmt.Errorf("cursor %d belongs to %s, not %s: %w",
			req.GetMore, pinned.NS(), ns, domain.ErrBadValue))
		return
	}

	batch, more, err := exec.AssembleBatch(pinned.Source(), batchSize, exec.MaxBatchBytes)
	if err != nil {
		pinned.Release()
		log.Printf("ERROR: getMore for cursor %d failed: %v", req.GetMore, err)
		writeCommandError(w, err)
		return
	}

	id := pinned.ID()
	if !more {
		pinned.Destroy()
		log.Printf("INFO: Cursor %d on %s exhausted after %d more documents", id, ns, batch.Len())
		writeNextBatch(w, 0, ns, batch.Documents())
		return
	}

	pinned.Release()
	log.Printf("INFO: Cursor %d on %s returned %d more documents", id, ns, batch.Len())
	writeNextBatch(w, id, ns, batch.Documents())
}
