package domain

import "errors"

// Sentinel errors for the command surface. Handlers map these to stable
// error kinds and HTTP status codes with errors.Is.
var (
	// ErrNotAuthorized means the caller lacks permission for the namespace.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrNamespaceNotFound means the resolved namespace has no backing
	// collection.
	ErrNamespaceNotFound = errors.New("namespace not found")

	// ErrWriteConflict is a transient conflict between a metadata read and a
	// concurrent write. It is always recovered internally by retrying the
	// read and never surfaces to the caller.
	ErrWriteConflict = errors.New("write conflict")

	// ErrCursorNotFound means no cursor is registered under the given id.
	ErrCursorNotFound = errors.New("cursor not found")

	// ErrCursorInUse means the cursor is pinned by another request.
	ErrCursorInUse = errors.New("cursor in use")

	// ErrTooManyCursors means the cursor registry is at capacity.
	ErrTooManyCursors = errors.New("too many open cursors")

	// ErrBadValue means a request field failed validation.
	ErrBadValue = errors.New("bad value")

	ErrCollectionExists = errors.New("collection already exists")
	ErrIndexExists      = errors.New("index already exists")
	ErrIndexNotFound    = errors.New("index not found")
)
