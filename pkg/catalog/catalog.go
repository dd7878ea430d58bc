package catalog

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/stashdb/stashdb/pkg/domain"
)

// SpecVersion is the version stamped into every index spec this catalog
// produces.
const SpecVersion = 2

// indexEntry is one index definition plus its build state. The spec document
// is owned by the catalog; views hand out copies.
type indexEntry struct {
	spec      domain.Document
	ready     bool
	buildUUID string // set while an index build is in progress
}

// collectionEntry holds the metadata of a single collection. version is
// bumped on every metadata write and is what snapshot reads validate
// against.
type collectionEntry struct {
	name    string
	uuid    uuid.UUID
	version uint64
	indexes []*indexEntry // creation order
}

// collectionLock provides per-collection concurrency control
type collectionLock struct {
	mu sync.RWMutex
}

// Catalog stores collection and index metadata. All state is resident in
// memory; SaveToFile/LoadFromFile provide optional persistence.
type Catalog struct {
	mu          sync.RWMutex
	collections map[string]*collectionEntry
	byUUID      map[uuid.UUID]string

	// Per-collection locks for snapshot-consistent metadata reads
	collectionLocks map[string]*collectionLock
	locksMu         sync.RWMutex

	dbName       string
	conflictHook func(op string) error
}

// NewCatalog creates an empty catalog
func NewCatalog(options ...Option) *Catalog {
	c := &Catalog{
		collections:     make(map[string]*collectionEntry),
		byUUID:          make(map[uuid.UUID]string),
		collectionLocks: make(map[string]*collectionLock),
		dbName:          "stash",
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// DatabaseName returns the database component of this catalog's namespaces.
func (c *Catalog) DatabaseName() string {
	return c.dbName
}

// Namespace returns the full "<db>.<collection>" namespace for a collection
// name.
func (c *Catalog) Namespace(collName string) string {
	return c.dbName + "." + collName
}

// Resolve turns a collection name or collection UUID into a canonical
// collection name. A UUID that matches no collection fails with
// ErrNamespaceNotFound; a plain name resolves unconditionally (existence is
// checked later, under the collection lock).
func (c *Catalog) Resolve(nameOrUUID string) (string, error) {
	id, err := uuid.Parse(nameOrUUID)
	if err != nil {
		return nameOrUUID, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.byUUID[id]
	if !ok {
		return "", fmt.Errorf("no collection with UUID %s: %w", id, domain.ErrNamespaceNotFound)
	}
	return name, nil
}

// getOrCreateCollectionLock gets or creates a lock for a collection
func (c *Catalog) getOrCreateCollectionLock(collName string) *collectionLock {
	c.locksMu.RLock()
	if lock, exists := c.collectionLocks[collName]; exists {
		c.locksMu.RUnlock()
		return lock
	}
	c.locksMu.RUnlock()

	c.locksMu.Lock()
	defer c.locksMu.Unlock()

	// Double-check in case another goroutine created it
	if lock, exists := c.collectionLocks[collName]; exists {
		return lock
	}

	lock := &collectionLock{}
	c.collectionLocks[collName] = lock
	return lock
}

// withCollectionWriteLock executes a function with a write lock on the
// specified collection.
func (c *Catalog) withCollectionWriteLock(collName string, fn func() error) error {
	lock := c.getOrCreateCollectionLock(collName)
	lock.mu.Lock()
	defer lock.mu.Unlock()
	return fn()
}

// View runs fn with a read lock held on the resolved collection. The lock is
// released when View returns, which makes the release point auditable:
// anything that must not run under the collection lock (cursor registration
// in particular) belongs after the View call, never inside fn.
func (c *Catalog) View(nameOrUUID string, fn func(*CollectionView) error) error {
	collName, err := c.Resolve(nameOrUUID)
	if err != nil {
		return err
	}

	lock := c.getOrCreateCollectionLock(collName)
	lock.mu.RLock()
	defer lock.mu.RUnlock()

	c.mu.RLock()
	entry, exists := c.collections[collName]
	c.mu.RUnlock()
	if !exists {
		return fmt.Errorf("ns does not exist: %s: %w", c.Namespace(collName), domain.ErrNamespaceNotFound)
	}

	view := &CollectionView{
		catalog: c,
		entry:   entry,
		token:   entry.version,
	}
	return fn(view)
}

// CreateCollection registers a new collection and its automatic _id_ index.
func (c *Catalog) CreateCollection(collName string) error {
	return c.withCollectionWriteLock(collName, func() error {
		c.mu.Lock()
		defer c.mu.Unlock()

		if _, exists := c.collections[collName]; exists {
			return fmt.Errorf("collection %s: %w", c.Namespace(collName), domain.ErrCollectionExists)
		}

		entry := &collectionEntry{
			name: collName,
			uuid: uuid.New(),
		}
		entry.indexes = append(entry.indexes, &indexEntry{
			spec:  c.buildIndexSpec(collName, "_id", "_id_"),
			ready: true,
		})
		c.collections[collName] = entry
		c.byUUID[entry.uuid] = collName
		return nil
	})
}

// DropCollection removes a collection and all its index metadata.
func (c *Catalog) DropCollection(collName string) error {
	return c.withCollectionWriteLock(collName, func() error {
		c.mu.Lock()
		defer c.mu.Unlock()

		entry, exists := c.collections[collName]
		if !exists {
			return fmt.Errorf("ns does not exist: %s: %w", c.Namespace(collName), domain.ErrNamespaceNotFound)
		}
		delete(c.byUUID, entry.uuid)
		delete(c.collections, collName)
		return nil
	})
}

// CollectionUUID returns the UUID of a collection.
func (c *Catalog) CollectionUUID(collName string) (uuid.UUID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, exists := c.collections[collName]
	if !exists {
		return uuid.Nil, fmt.Errorf("ns does not exist: %s: %w", c.Namespace(collName), domain.ErrNamespaceNotFound)
	}
	return entry.uuid, nil
}

// CreateIndex adds a ready index on field to a collection. If name is empty
// a default of "<field>_1" is used.
func (c *Catalog) CreateIndex(collName, field, name string) error {
	if name == "" {
		name = defaultIndexName(field)
	}
	return c.withCollectionWriteLock(collName, func() error {
		entry, err := c.writableEntry(collName)
		if err != nil {
			return err
		}
		if entry.findIndex(name) != nil {
			return fmt.Errorf("index %s on %s: %w", name, c.Namespace(collName), domain.ErrIndexExists)
		}
		entry.indexes = append(entry.indexes, &indexEntry{
			spec:  c.buildIndexSpec(collName, field, name),
			ready: true,
		})
		entry.version++
		return nil
	})
}

// BeginIndexBuild registers a not-yet-ready index on field. The build
// identifier is owned by the index-build subsystem: callers that already
// have one pass it in, otherwise one is minted here, once, and returned.
// Every listing of the in-progress index reports this same identifier.
func (c *Catalog) BeginIndexBuild(collName, field, name, buildID string) (string, error) {
	if name == "" {
		name = defaultIndexName(field)
	}
	if buildID == "" {
		buildID = uuid.NewString()
	}
	err := c.withCollectionWriteLock(collName, func() error {
		entry, err := c.writableEntry(collName)
		if err != nil {
			return err
		}
		if entry.findIndex(name) != nil {
			return fmt.Errorf("index %s on %s: %w", name, c.Namespace(collName), domain.ErrIndexExists)
		}
		entry.indexes = append(entry.indexes, &indexEntry{
			spec:      c.buildIndexSpec(collName, field, name),
			buildUUID: buildID,
		})
		entry.version++
		return nil
	})
	if err != nil {
		return "", err
	}
	return buildID, nil
}

// FinishIndexBuild marks an in-progress index as ready.
func (c *Catalog) FinishIndexBuild(collName, name string) error {
	return c.withCollectionWriteLock(collName, func() error {
		entry, err := c.writableEntry(collName)
		if err != nil {
			return err
		}
		idx := entry.findIndex(name)
		if idx == nil {
			return fmt.Errorf("index %s on %s: %w", name, c.Namespace(collName), domain.ErrIndexNotFound)
		}
		if idx.ready {
			return fmt.Errorf("index %s on %s is not being built: %w", name, c.Namespace(collName), domain.ErrBadValue)
		}
		idx.ready = true
		idx.buildUUID = ""
		entry.version++
		return nil
	})
}

// DropIndex removes an index from a collection. The _id_ index cannot be
// dropped.
func (c *Catalog) DropIndex(collName, name string) error {
	if name == "_id_" {
		return fmt.Errorf("cannot drop the _id_ index: %w", domain.ErrBadValue)
	}
	return c.withCollectionWriteLock(collName, func() error {
		entry, err := c.writableEntry(collName)
		if err != nil {
			return err
		}
		for i, idx := range entry.indexes {
			if idx.spec["name"] == name {
				entry.indexes = append(entry.indexes[:i], entry.indexes[i+1:]...)
				entry.version++
				return nil
			}
		}
		return fmt.Errorf("index %s on %s: %w", name, c.Namespace(collName), domain.ErrIndexNotFound)
	})
}

// writableEntry looks up a collection for a write op. Caller must hold the
// collection write lock.
func (c *Catalog) writableEntry(collName string) (*collectionEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, exists := c.collections[collName]
	if !exists {
		return nil, fmt.Errorf("ns does not exist: %s: %w", c.Namespace(collName), domain.ErrNamespaceNotFound)
	}
	return entry, nil
}

func (c *Catalog) buildIndexSpec(collName, field, name string) domain.Document {
	return domain.Document{
		"v":    SpecVersion,
		"key":  domain.Document{field: 1},
		"name": name,
		"ns":   c.Namespace(collName),
	}
}

func (e *collectionEntry) findIndex(name string) *indexEntry {
	for _, idx := range e.indexes {
		if idx.spec["name"] == name {
			return idx
		}
	}
	return nil
}

func defaultIndexName(field string) string {
	return field + "_1"
}
