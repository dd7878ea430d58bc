package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stashdb/stashdb/pkg/auth"
)

// HandleDropIndex removes an index from a collection
func (h *Handler) HandleDropIndex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	indexName := vars["name"]

	log.Printf("INFO: handleDropIndex called for index '%s' on collection '%s'", indexName, collName)

	ns := h.catalog.Namespace(collName)
	principals := auth.ParsePrincipals(r.Header.Get(auth.PrincipalHeader))
	if err := h.authz.CanModify(principals, ns); err != nil {
		writeCommandError(w, err)
		return
	}

	if err := h.catalog.DropIndex(collName, indexName); err != nil {
		log.Printf("ERROR: Failed to drop index '%s' on '%s': %v", indexName, collName, err)
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
