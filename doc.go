// Package sqlitehelper provides object-shaped access to a single SQLite
// table, with an optional in-process read cache.
//
// # Usage
//
// A Table handle is created once per table and database file:
//
//	opts := sqlitehelper.DefaultOptions()
//	opts.Table = "foods"
//	opts.Columns = map[string]string{"name": "text", "price": "int"}
//	table, err := sqlitehelper.New(opts)
//
// Rows are plain maps; writes are described by RowIntent values:
//
//	table.Set(ctx, sqlitehelper.Intent(sqlitehelper.Row{"name": "apple", "price": 3}))
//	table.Set(ctx, sqlitehelper.RowIntent{
//		Where:   sqlitehelper.Row{"name": "apple"},
//		Columns: sqlitehelper.Row{"price": 4},
//	})
//	row, err := table.Get(ctx, "name", "apple")
//
// Structured values (maps, slices) are stored as JSON text and decoded back
// on every read, so a stored []string comes back as a []any of strings.
//
// # Caching
//
// With caching enabled (the default), rows seen by Get and Set are mirrored
// in an in-process cache and later lookups are served from it without a
// store round trip. The cache is best-effort and process-local: it may be
// empty or partial at any time, and two handles never share cache state,
// even for the same file. Multi-row SetMany batches run in one transaction,
// and the cache is only touched after a successful commit, so it never
// reflects a write the store rejected.
//
// # Errors
//
//   - ErrNotFound: no row matched a lookup (a miss, not a failure)
//   - ErrSchemaRequired: table absent and no Columns given
//   - ErrConfigConflict: FetchAll without Caching
//   - ErrInvalidInput: malformed write payload
//
// # Concurrency
//
// A Table is designed for synchronous, single-goroutine use. There is no
// internal locking beyond SQLite's own transaction guarantees.
package sqlitehelper
