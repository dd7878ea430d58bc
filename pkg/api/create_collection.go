package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stashdb/stashdb/pkg/auth"
)

// HandleCreateCollection registers a collection in the catalog. The _id_
// index is created automatically.
func (h *Handler) HandleCreateCollection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleCreateCollection called for collection '%s'", collName)

	ns := h.catalog.Namespace(collName)
	principals := auth.ParsePrincipals(r.Header.Get(auth.PrincipalHeader))
	if err := h.authz.CanModify(principals, ns); err != nil {
		writeCommandError(w, err)
		return
	}

	if err := h.catalog.CreateCollection(collName); err != nil {
		log.Printf("ERROR: Failed to create collection '%s': %v", collName, err)
		writeCommandError(w, err)
		return
	}

	uuid, err := h.catalog.CollectionUUID(collName)
	if err != nil {
		writeCommandError(w, err)
		return
	}

	log.Printf("INFO: Created collection %s", ns)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"ns":      ns,
		"uuid":    uuid.String(),
	})
}
