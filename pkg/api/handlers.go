package api

import (
	"github.com/stashdb/stashdb/pkg/auth"
	"github.com/stashdb/stashdb/pkg/catalog"
	"github.com/stashdb/stashdb/pkg/cursor"
)

// Handler provides HTTP handlers for the command surface
type Handler struct {
	catalog *catalog.Catalog
	cursors *cursor.Registry
	authz   auth.Authorizer
}

// NewHandler creates a new API handler. A nil authorizer allows everything.
func NewHandler(cat *catalog.Catalog, cursors *cursor.Registry, authz auth.Authorizer) *Handler {
	if authz == nil {
		authz = auth.AllowAll{}
	}
	return &Handler{
		catalog: cat,
		cursors: cursors,
		authz:   authz,
	}
}
