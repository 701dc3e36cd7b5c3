// ABOUTME: Construction-time options for a Table handle
// ABOUTME: Immutable for the handle's lifetime once New returns

package sqlitehelper

// Options configures a Table handle. Start from DefaultOptions and override
// what you need; New fills empty string fields with the defaults.
type Options struct {
	// Table is the table name inside the database file.
	Table string
	// Dir is the directory holding the database file. Created if missing.
	Dir string
	// Filename is the database file name inside Dir.
	Filename string
	// Columns maps column names to their declared SQL types. Only consulted
	// when the table does not exist yet; required in that case.
	Columns map[string]string
	// Caching enables the in-process read cache.
	Caching bool
	// FetchAll pre-populates the cache with every row at construction time.
	// Requires Caching.
	FetchAll bool
	// WAL enables write-ahead-log journaling, applied before any other
	// statement at construction time.
	WAL bool
}

// DefaultOptions returns the default configuration: table "database" in
// ./data/sqlite.db with caching enabled.
func DefaultOptions() Options {
	return Options{
		Table:    "database",
		Dir:      "./data",
		Filename: "sqlite.db",
		Caching:  true,
	}
}

func (o *Options) applyDefaults() {
	def := DefaultOptions()
	if o.Table == "" {
		o.Table = def.Table
	}
	if o.Dir == "" {
		o.Dir = def.Dir
	}
	if o.Filename == "" {
		o.Filename = def.Filename
	}
}
