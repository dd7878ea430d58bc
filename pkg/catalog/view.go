package catalog

import (
	"fmt"

	"github.com/stashdb/stashdb/pkg/domain"
)

// CollectionView is a snapshot-token-bound read handle on one collection,
// valid only inside the Catalog.View closure that produced it. Every read
// validates the token; a conflicting write invalidates the snapshot and the
// read fails with ErrWriteConflict. The token is refreshed on conflict, so a
// caller that retries from scratch (see WriteConflictRetry) reads against
// the new snapshot.
type CollectionView struct {
	catalog *Catalog
	entry   *collectionEntry
	token   uint64
}

// Name returns the collection name.
func (v *CollectionView) Name() string {
	return v.entry.name
}

// Namespace returns the full "<db>.<collection>" namespace.
func (v *CollectionView) Namespace() string {
	return v.catalog.Namespace(v.entry.name)
}

// UUID returns the collection UUID as a string.
func (v *CollectionView) UUID() string {
	return v.entry.uuid.String()
}

// IndexNames lists index names in creation order. Indexes still being built
// are included only when includeBuilds is set.
func (v *CollectionView) IndexNames(includeBuilds bool) ([]string, error) {
	if err := v.snapshotRead("indexNames"); err != nil {
		return nil, err
	}
	var names []string
	for _, idx := range v.entry.indexes {
		if !idx.ready && !includeBuilds {
			continue
		}
		names = append(names, idx.spec["name"].(string))
	}
	return names, nil
}

// IndexSpec returns a copy of the stored spec for the named index.
func (v *CollectionView) IndexSpec(name string) (domain.Document, error) {
	if err := v.snapshotRead("indexSpec"); err != nil {
		return nil, err
	}
	idx := v.entry.findIndex(name)
	if idx == nil {
		return nil, fmt.Errorf("index %s on %s: %w", name, v.Namespace(), domain.ErrIndexNotFound)
	}
	return idx.spec.Copy(), nil
}

// IsIndexReady reports whether the named index has finished building.
func (v *CollectionView) IsIndexReady(name string) (bool, error) {
	if err := v.snapshotRead("isIndexReady"); err != nil {
		return false, err
	}
	idx := v.entry.findIndex(name)
	if idx == nil {
		return false, fmt.Errorf("index %s on %s: %w", name, v.Namespace(), domain.ErrIndexNotFound)
	}
	return idx.ready, nil
}

// BuildUUID returns the build identifier of an in-progress index, or the
// empty string for a ready one.
func (v *CollectionView) BuildUUID(name string) (string, error) {
	if err := v.snapshotRead("buildUUID"); err != nil {
		return "", err
	}
	idx := v.entry.findIndex(name)
	if idx == nil {
		return "", fmt.Errorf("index %s on %s: %w", name, v.Namespace(), domain.ErrIndexNotFound)
	}
	return idx.buildUUID, nil
}

// snapshotRead validates the view's snapshot token before a read. The
// conflict hook, when configured, injects transient conflicts ahead of the
// version check; tests use it to exercise retry paths deterministically.
func (v *CollectionView) snapshotRead(op string) error {
	if hook := v.catalog.conflictHook; hook != nil {
		if err := hook(op); err != nil {
			return fmt.Errorf("%s on %s: %v: %w", op, v.Namespace(), err, domain.ErrWriteConflict)
		}
	}
	if v.entry.version != v.token {
		v.token = v.entry.version
		return fmt.Errorf("%s on %s: snapshot invalidated by concurrent write: %w",
			op, v.Namespace(), domain.ErrWriteConflict)
	}
	return nil
}
