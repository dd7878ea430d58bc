package api

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	// Collection operations
	router.HandleFunc("/collections/{coll}", h.HandleCreateCollection).Methods("POST")

	// Index metadata operations
	router.HandleFunc("/collections/{coll}/indexes", h.HandleCreateIndex).Methods("POST")
	router.HandleFunc("/collections/{coll}/indexes/{name}", h.HandleDropIndex).Methods("DELETE")
	router.HandleFunc("/collections/{coll}/indexes/{name}/commit", h.HandleCommitIndexBuild).Methods("POST")

	// Cursor-producing commands and cursor continuation
	router.HandleFunc("/collections/{coll}/listIndexes", h.HandleListIndexes).Methods("POST")
	router.HandleFunc("/cursors/getMore", h.HandleGetMore).Methods("POST")
	router.HandleFunc("/cursors/kill", h.HandleKillCursors).Methods("POST")

	// Health check
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")
}
