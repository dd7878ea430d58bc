package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stashdb/stashdb/pkg/auth"
	"github.com/stashdb/stashdb/pkg/catalog"
	"github.com/stashdb/stashdb/pkg/cursor"
	"github.com/stashdb/stashdb/pkg/domain"
	"github.com/stashdb/stashdb/pkg/exec"
)

// ListIndexesRequest is the body of a listIndexes command. The target
// collection comes from the URL and may be a name or a collection UUID.
type ListIndexesRequest struct {
	IncludeIndexBuilds bool                `json:"includeIndexBuilds"`
	BatchSize          *int64              `json:"batchSize"`
	ReadConcern        *domain.ReadConcern `json:"readConcern"`
}

// HandleListIndexes lists the index specs of a collection through the
// generic batch/cursor machinery. In-progress indexes are included only when
// includeIndexBuilds is set, tagged with their build identifier.
//
// The first batch is collected under the collection read lock; if the result
// set is not exhausted, the remaining documents are detached and registered
// with the cursor registry strictly after that lock is released.
func (h *Handler) HandleListIndexes(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collRef := vars["coll"]

	log.Printf("INFO: handleListIndexes called for collection '%s'", collRef)

	var req ListIndexesRequest
	if err := decodeCommandBody(r, &req); err != nil {
		writeCommandError(w, err)
		return
	}
	batchSize, err := parseBatchSize(req.BatchSize)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	readConcern := domain.DefaultReadConcern()
	if req.ReadConcern != nil {
		readConcern = *req.ReadConcern
	}

	// The authorization check runs before any lock is acquired. Name
	// resolution here only turns a UUID into a name; collection existence is
	// checked later, under the lock.
	collName, err := h.catalog.Resolve(collRef)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	ns := h.catalog.Namespace(collName)
	principals := auth.ParsePrincipals(r.Header.Get(auth.PrincipalHeader))
	if err := h.authz.CanListIndexes(principals, ns); err != nil {
		log.Printf("WARN: listIndexes on %s denied for principals %s", ns, principals)
		writeCommandError(w, err)
		return
	}

	ctx := r.Context()
	var (
		source *exec.QueuedSource
		batch  *exec.Batch
		more   bool
	)
	err = h.catalog.View(collName, func(view *catalog.CollectionView) error {
		// Collecting phase: everything in this closure runs under the
		// collection read lock.
		if err := ctx.Err(); err != nil {
			return err
		}

		var names []string
		if err := catalog.WriteConflictRetry(ctx, "listIndexes", ns, func() error {
			names = names[:0]
			list, err := view.IndexNames(req.IncludeIndexBuilds)
			if err != nil {
				return err
			}
			names = append(names, list...)
			return nil
		}); err != nil {
			return err
		}

		docs := make([]domain.Document, 0, len(names))
		for _, name := range names {
			var spec domain.Document
			if err := catalog.WriteConflictRetry(ctx, "listIndexes", ns, func() error {
				s, err := view.IndexSpec(name)
				if err != nil {
					return err
				}
				if req.IncludeIndexBuilds {
					ready, err := view.IsIndexReady(name)
					if err != nil {
						return err
					}
					if !ready {
						buildUUID, err := view.BuildUUID(name)
						if err != nil {
							return err
						}
						s["buildUUID"] = buildUUID
					}
				}
				spec = s
				return nil
			}); err != nil {
				return err
			}
			docs = append(docs, spec)
		}

		source = exec.NewQueuedSource(docs)
		b, m, err := exec.AssembleBatch(source, batchSize, exec.MaxBatchBytes)
		if err != nil {
			return err
		}
		batch, more = b, m
		return nil
	})
	// Collection lock dropped here. Cursor registration must be done without
	// holding any locks.
	if err != nil {
		log.Printf("ERROR: listIndexes on %s failed: %v", ns, err)
		writeCommandError(w, err)
		return
	}

	if !more {
		source.Close()
		log.Printf("INFO: listIndexes on %s returned %d specs, exhausted", ns, batch.Len())
		writeFirstBatch(w, 0, ns, batch.Documents())
		return
	}

	if err := ctx.Err(); err != nil {
		source.Close()
		writeCommandError(w, err)
		return
	}

	remaining := source.Remaining()
	cursorID, err := h.cursors.Register(cursor.Params{
		Source:      source,
		NS:          ns,
		Principals:  principals,
		ReadConcern: readConcern,
		OriginalRequest: domain.Document{
			"listIndexes":        collRef,
			"includeIndexBuilds": req.IncludeIndexBuilds,
		},
	})
	if err != nil {
		// Ownership did not transfer; discard the detached source
		source.Close()
		log.Printf("ERROR: Failed to register cursor for listIndexes on %s: %v", ns, err)
		writeCommandError(w, err)
		return
	}

	log.Printf("INFO: listIndexes on %s returned %d specs, registered cursor %d (%d remaining)",
		ns, batch.Len(), cursorID, remaining)
	writeFirstBatch(w, cursorID, ns, batch.Documents())
}
