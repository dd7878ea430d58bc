package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stashdb/stashdb/pkg/auth"
	"github.com/stashdb/stashdb/pkg/domain"
)

// CreateIndexRequest defines an index on a collection field. With Background
// set, the index is registered as an in-progress build and must be committed
// separately; until then listIndexes only reports it when asked for builds.
type CreateIndexRequest struct {
	Field      string `json:"field"`
	Name       string `json:"name"`
	Background bool   `json:"background"`
	BuildUUID  string `json:"buildUUID"`
}

// HandleCreateIndex creates an index on a specific field in a collection
func (h *Handler) HandleCreateIndex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	var req CreateIndexRequest
	if err := decodeCommandBody(r, &req); err != nil {
		writeCommandError(w, err)
		return
	}
	if req.Field == "" {
		writeCommandError(w, fmt.Errorf("field is required: %w", domain.ErrBadValue))
		return
	}
	// The _id index is created automatically with the collection
	if req.Field == "_id" {
		writeCommandError(w, fmt.Errorf("cannot create index on _id field (automatically indexed): %w", domain.ErrBadValue))
		return
	}

	log.Printf("INFO: handleCreateIndex called for collection '%s', field '%s'", collName, req.Field)

	ns := h.catalog.Namespace(collName)
	principals := auth.ParsePrincipals(r.Header.Get(auth.PrincipalHeader))
	if err := h.authz.CanModify(principals, ns); err != nil {
		writeCommandError(w, err)
		return
	}

	response := map[string]interface{}{
		"success":    true,
		"collection": collName,
		"field":      req.Field,
	}

	if req.Background {
		buildUUID, err := h.catalog.BeginIndexBuild(collName, req.Field, req.Name, req.BuildUUID)
		if err != nil {
			log.Printf("ERROR: Failed to begin index build on '%s': %v", collName, err)
			writeCommandError(w, err)
			return
		}
		response["buildUUID"] = buildUUID
		response["message"] = "Index build started"
	} else {
		if err := h.catalog.CreateIndex(collName, req.Field, req.Name); err != nil {
			log.Printf("ERROR: Failed to create index on '%s': %v", collName, err)
			writeCommandError(w, err)
			return
		}
		response["message"] = "Index created successfully"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

// HandleCommitIndexBuild marks an in-progress index build as ready.
func (h *Handler) HandleCommitIndexBuild(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	indexName := vars["name"]

	log.Printf("INFO: handleCommitIndexBuild called for index '%s' on collection '%s'", indexName, collName)

	ns := h.catalog.Namespace(collName)
	principals := auth.ParsePrincipals(r.Header.Get(auth.PrincipalHeader))
	if err := h.authz.CanModify(principals, ns); err != nil {
		writeCommandError(w, err)
		return
	}

	if err := h.catalog.FinishIndexBuild(collName, indexName); err != nil {
		log.Printf("ERROR: Failed to commit index build '%s' on '%s': %v", indexName, collName, err)
		writeCommandError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":    true,
		"collection": collName,
		"index":      indexName,
	})
}
