package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/stashdb/stashdb/pkg/domain"
)

// KillCursorsRequest closes registered cursors by id.
type KillCursorsRequest struct {
	CursorIDs []int64 `json:"cursorIds"`
}

// HandleKillCursors explicitly closes cursors without waiting for
// exhaustion or the idle reaper.
func (h *Handler) HandleKillCursors(w http.ResponseWriter, r *http.Request) {
	var req KillCursorsRequest
	if err := decodeCommandBody(r, &req); err != nil {
		writeCommandError(w, err)
		return
	}
	if len(req.CursorIDs) == 0 {
		writeCommandError(w, fmt.Errorf("cursorIds must not be empty: %w", domain.ErrBadValue))
		return
	}

	killed := []int64{}
	notFound := []int64{}
	for _, id := range req.CursorIDs {
		if h.cursors.Kill(id) {
			killed = append(killed, id)
		} else {
			notFound = append(notFound, id)
		}
	}

	log.Printf("INFO: killCursors killed %d of %d cursors", len(killed), len(req.CursorIDs))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"cursorsKilled":   killed,
		"cursorsNotFound": notFound,
		"ok":              1,
	})
}
