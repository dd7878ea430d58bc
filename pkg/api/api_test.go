package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/stashdb/stashdb/pkg/auth"
	"github.com/stashdb/stashdb/pkg/catalog"
	"github.com/stashdb/stashdb/pkg/cursor"
	"github.com/stashdb/stashdb/pkg/domain"
)

// testServer bundles the real engines behind a router, the way pkg/server
// wires them in production.
type testServer struct {
	catalog *catalog.Catalog
	cursors *cursor.Registry
	router  *mux.Router
}

func newTestServer(t *testing.T, authz auth.Authorizer, catalogOptions ...catalog.Option) *testServer {
	t.Helper()
	options := append([]catalog.Option{catalog.WithDatabaseName("testdb")}, catalogOptions...)
	ts := &testServer{
		catalog: catalog.NewCatalog(options...),
		cursors: cursor.NewRegistry(),
		router:  mux.NewRouter(),
	}
	NewHandler(ts.catalog, ts.cursors, authz).RegisterRoutes(ts.router)
	return ts
}

// cursorPayload mirrors the cursor field of command responses. Decoding into
// a typed struct keeps 64-bit cursor ids exact.
type cursorPayload struct {
	ID         int64             `json:"id"`
	NS         string            `json:"ns"`
	FirstBatch []domain.Document `json:"firstBatch"`
	NextBatch  []domain.Document `json:"nextBatch"`
}

type cursorEnvelope struct {
	Cursor cursorPayload `json:"cursor"`
	OK     int           `json:"ok"`
}

func (ts *testServer) post(t *testing.T, path string, body interface{}, principals string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if principals != "" {
		req.Header.Set(auth.PrincipalHeader, principals)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) listIndexes(t *testing.T, coll string, body interface{}, principals string) *httptest.ResponseRecorder {
	t.Helper()
	return ts.post(t, "/collections/"+coll+"/listIndexes", body, principals)
}

func decodeCursorResponse(t *testing.T, w *httptest.ResponseRecorder) cursorEnvelope {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	var envelope cursorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, 1, envelope.OK)
	return envelope
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func indexNames(docs []domain.Document) []string {
	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		names = append(names, doc["name"].(string))
	}
	return names
}

func int64p(v int64) *int64 {
	return &v
}

// newStaticAuthz grants alice everything, everywhere, and nobody else
// anything.
func newStaticAuthz(t *testing.T) *auth.StaticAuthorizer {
	t.Helper()
	authz := auth.NewStaticAuthorizer()
	authz.Grant("alice", "*", auth.ActionListIndexes, auth.ActionModify)
	return authz
}

func newCappedRegistry(max int) *cursor.Registry {
	return cursor.NewRegistry(cursor.WithMaxOpenCursors(max))
}

// newRouterFor rebuilds a router after a testServer's engines were swapped.
func newRouterFor(ts *testServer) *mux.Router {
	router := mux.NewRouter()
	NewHandler(ts.catalog, ts.cursors, nil).RegisterRoutes(router)
	return router
}
