package catalog

// Option configures a Catalog
type Option func(*Catalog)

// WithDatabaseName sets the database component of the catalog's namespaces
// (default "stash").
func WithDatabaseName(name string) Option {
	return func(c *Catalog) {
		c.dbName = name
	}
}

// WithConflictHook installs a hook that runs before every snapshot read. A
// non-nil return is reported as a transient write conflict. Tests use this
// to inject conflicts and exercise retry paths.
func WithConflictHook(hook func(op string) error) Option {
	return func(c *Catalog) {
		c.conflictHook = hook
	}
}
