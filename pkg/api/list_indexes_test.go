package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashdb/stashdb/pkg/catalog"
)

func TestHandleListIndexes_ExhaustedInFirstBatch(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, ts.catalog.CreateCollection("widgets"))
	require.NoError(t, ts.catalog.CreateIndex("widgets", "a", ""))
	require.NoError(t, ts.catalog.CreateIndex("widgets", "b", ""))

	w := ts.listIndexes(t, "widgets", nil, "")
	envelope := decodeCursorResponse(t, w)

	// Exhausted result set: null cursor id, nothing registered
	assert.Zero(t, envelope.Cursor.ID)
	assert.Equal(t, "testdb.widgets", envelope.Cursor.NS)
	assert.Equal(t, []string{"_id_", "a_1", "b_1"}, indexNames(envelope.Cursor.FirstBatch))
	assert.Equal(t, 0, ts.cursors.Len())

	// No build markers on ready indexes
	for _, doc := range envelope.Cursor.FirstBatch {
		_, hasBuildUUID := doc["buildUUID"]
		assert.False(t, hasBuildUUID)
	}
}

func TestHandleListIndexes_RegistersCursor(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, ts.catalog.CreateCollection("widgets"))
	require.NoError(t, ts.catalog.CreateIndex("widgets", "a", ""))
	require.NoError(t, ts.catalog.CreateIndex("widgets", "b", ""))
	buildID, err := ts.catalog.BeginIndexBuild("widgets", "c", "", "")
	require.NoError(t, err)

	body := ListIndexesRequest{IncludeIndexBuilds: true, BatchSize: int64p(2)}
	envelope := decodeCursorResponse(t, ts.listIndexes(t, "widgets", body, ""))

	require.NotZero(t, envelope.Cursor.ID)
	assert.Equal(t, []string{"_id_", "a_1"}, indexNames(envelope.Cursor.FirstBatch))
	assert.Equal(t, 1, ts.cursors.Len())

	// Continuation returns the rest in original order; the in-progress index
	// carries the build identifier the build subsystem minted.
	more := GetMoreRequest{GetMore: envelope.Cursor.ID, Collection: "widgets"}
	next := decodeCursorResponse(t, ts.post(t, "/cursors/getMore", more, ""))

	assert.Zero(t, next.Cursor.ID)
	require.Equal(t, []string{"b_1", "c_1"}, indexNames(next.Cursor.NextBatch))
	_, hasBuildUUID := next.Cursor.NextBatch[0]["buildUUID"]
	assert.False(t, hasBuildUUID)
	assert.Equal(t, buildID, next.Cursor.NextBatch[1]["buildUUID"])

	// Exhaustion destroyed the cursor
	assert.Equal(t, 0, ts.cursors.Len())
}

func TestHandleListIndexes_ExcludesBuildsByDefault(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, ts.catalog.CreateCollection("widgets"))
	_, err := ts.catalog.BeginIndexBuild("widgets", "c", "", "")
	require.NoError(t, err)

	envelope := decodeCursorResponse(t, ts.listIndexes(t, "widgets", nil, ""))

	assert.Zero(t, envelope.Cursor.ID)
	assert.Equal(t, []string{"_id_"}, indexNames(envelope.Cursor.FirstBatch))
}

func TestHandleListIndexes_EmptyBatchSizeStillCreatesCursor(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, ts.catalog.CreateCollection("widgets"))

	body := ListIndexesRequest{BatchSize: int64p(0)}
	envelope := decodeCursorResponse(t, ts.listIndexes(t, "widgets", body, ""))

	require.NotZero(t, envelope.Cursor.ID)
	assert.Empty(t, envelope.Cursor.FirstBatch)
	assert.NotNil(t, envelope.Cursor.FirstBatch)
	assert.Equal(t, 1, ts.cursors.Len())
}

func TestHandleListIndexes_ResolvesCollectionUUID(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, ts.catalog.CreateCollection("widgets"))
	id, err := ts.catalog.CollectionUUID("widgets")
	require.NoError(t, err)

	envelope := decodeCursorResponse(t, ts.listIndexes(t, id.String(), nil, ""))
	assert.Equal(t, "testdb.widgets", envelope.Cursor.NS)
	assert.Equal(t, []string{"_id_"}, indexNames(envelope.Cursor.FirstBatch))
}

func TestHandleListIndexes_UnknownNamespace(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.listIndexes(t, "missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NamespaceNotFound", decodeError(t, w).Kind)
	assert.Equal(t, 0, ts.cursors.Len())
}

func TestHandleListIndexes_NegativeBatchSize(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, ts.catalog.CreateCollection("widgets"))

	body := ListIndexesRequest{BatchSize: int64p(-1)}
	w := ts.listIndexes(t, "widgets", body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BadValue", decodeError(t, w).Kind)
}

func TestHandleListIndexes_NotAuthorized(t *testing.T) {
	authz := newStaticAuthz(t)
	ts := newTestServer(t, authz)
	require.NoError(t, ts.catalog.CreateCollection("widgets"))

	// No principals at all
	w := ts.listIndexes(t, "widgets", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "NotAuthorized", decodeError(t, w).Kind)
	assert.Equal(t, 0, ts.cursors.Len())

	// A principal without the listIndexes grant
	w = ts.listIndexes(t, "widgets", nil, "mallory")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The granted principal gets through
	w = ts.listIndexes(t, "widgets", nil, "alice")
	envelope := decodeCursorResponse(t, w)
	assert.Equal(t, []string{"_id_"}, indexNames(envelope.Cursor.FirstBatch))
}

func TestHandleListIndexes_RegistryFull(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.cursors = newCappedRegistry(1)
	ts.router = newRouterFor(ts)

	require.NoError(t, ts.catalog.CreateCollection("widgets"))
	require.NoError(t, ts.catalog.CreateIndex("widgets", "a", ""))

	// Fill the registry
	first := decodeCursorResponse(t, ts.listIndexes(t, "widgets", ListIndexesRequest{BatchSize: int64p(1)}, ""))
	require.NotZero(t, first.Cursor.ID)

	// The next registration is rejected cleanly: command fails, nothing leaks
	w := ts.listIndexes(t, "widgets", ListIndexesRequest{BatchSize: int64p(1)}, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "TooManyCursors", decodeError(t, w).Kind)
	assert.Equal(t, 1, ts.cursors.Len())
}

func TestHandleListIndexes_RetriesTransientWriteConflict(t *testing.T) {
	// Baseline run with no conflicts
	plain := newTestServer(t, nil)
	require.NoError(t, plain.catalog.CreateCollection("widgets"))
	require.NoError(t, plain.catalog.CreateIndex("widgets", "a", ""))
	baseline := decodeCursorResponse(t, plain.listIndexes(t, "widgets", nil, ""))

	// Same data, with a single injected conflict on the first metadata read
	failures := 1
	conflicted := newTestServer(t, nil, catalog.WithConflictHook(func(op string) error {
		if failures > 0 {
			failures--
			return errors.New("injected conflict")
		}
		return nil
	}))
	require.NoError(t, conflicted.catalog.CreateCollection("widgets"))
	require.NoError(t, conflicted.catalog.CreateIndex("widgets", "a", ""))

	envelope := decodeCursorResponse(t, conflicted.listIndexes(t, "widgets", nil, ""))

	// The conflict was consumed, retried, and never surfaced
	assert.Zero(t, failures)
	assert.Zero(t, envelope.Cursor.ID)
	assert.Equal(t, indexNames(baseline.Cursor.FirstBatch), indexNames(envelope.Cursor.FirstBatch))
	assert.Equal(t, baseline.Cursor.FirstBatch, envelope.Cursor.FirstBatch)
}
