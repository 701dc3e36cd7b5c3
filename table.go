// ABOUTME: Table handle orchestrating statements, codec and cache over SQLite
// ABOUTME: Uses modernc.org/sqlite through database/sql

package sqlitehelper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "modernc.org/sqlite"
)

// Table is a handle to exactly one table in exactly one SQLite database
// file. Its configuration is immutable after New. A Table is meant for
// synchronous, single-goroutine use; two handles never share cache state,
// even when pointed at the same file.
type Table struct {
	db       *sql.DB
	name     string
	caching  bool
	cache    *rowCache
	onChange func(Row)
	logger   *slog.Logger
}

// New opens (or creates) the configured database file and table and returns
// a ready handle.
//
// When the table does not exist, opts.Columns is used to create it and
// ErrSchemaRequired is returned if it is empty. When opts.FetchAll is set,
// every existing row is decoded and loaded into the cache in table scan
// order; combining FetchAll with disabled caching fails with
// ErrConfigConflict.
func New(opts Options) (*Table, error) {
	opts.applyDefaults()

	if opts.FetchAll && !opts.Caching {
		return nil, fmt.Errorf("%w: fetch_all requires caching to be enabled", ErrConfigConflict)
	}

	logger := slog.Default().With("component", "table", "table", opts.Table)

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	path := filepath.Join(opts.Dir, opts.Filename)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Must run before any other statement since it affects subsequent
	// transaction semantics.
	if opts.WAL {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	t := &Table{
		db:      db,
		name:    opts.Table,
		caching: opts.Caching,
		cache:   newRowCache(),
		logger:  logger,
	}

	exists, err := t.tableExists()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("checking table existence: %w", err)
	}
	if !exists {
		if len(opts.Columns) == 0 {
			db.Close()
			return nil, fmt.Errorf("%w: table %s", ErrSchemaRequired, opts.Table)
		}
		if err := t.createTable(opts.Columns); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating table: %w", err)
		}
		logger.Info("created table", "columns", len(opts.Columns))
	}

	if opts.FetchAll {
		rows, err := t.GetAll(context.Background())
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("eager-loading rows: %w", err)
		}
		for _, row := range rows {
			t.cache.insert(row)
		}
		logger.Info("seeded cache", "rows", len(rows))
	}

	logger.Info("table initialized", "path", path, "caching", opts.Caching, "wal", opts.WAL)
	return t, nil
}

func (t *Table) tableExists() (bool, error) {
	var name string
	err := t.db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, t.name,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *Table) createTable(columns map[string]string) error {
	defs := make([]string, 0, len(columns))
	for _, col := range sortedColumnNames(columns) {
		defs = append(defs, col+" "+columns[col])
	}
	query := fmt.Sprintf("CREATE TABLE %s (%s)", t.name, strings.Join(defs, ", "))
	_, err := t.db.Exec(query)
	return err
}

// Get returns the first row whose column equals value, or ErrNotFound.
// With caching enabled the cache is consulted first; a hit never touches
// the backing store.
func (t *Table) Get(ctx context.Context, column string, value any) (Row, error) {
	if t.caching {
		if row, _, ok := t.cache.findByColumn(column, value); ok {
			t.logger.Debug("cache hit", "column", column)
			return row, nil
		}
	}

	row, err := t.queryOne(ctx, column, value)
	if err != nil {
		return nil, err
	}

	if t.caching {
		if _, i, ok := t.cache.findByColumn(column, value); ok {
			t.cache.replaceAt(i, row)
		} else {
			t.cache.insert(row)
		}
	}
	return row, nil
}

func (t *Table) queryOne(ctx context.Context, column string, value any) (Row, error) {
	bound, err := bindValue(value)
	if err != nil {
		return nil, fmt.Errorf("binding probe value: %w", err)
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ? LIMIT 1", t.name, column)
	rows, err := t.db.QueryContext(ctx, query, bound)
	if err != nil {
		return nil, fmt.Errorf("querying row: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("querying row: %w", err)
		}
		return nil, fmt.Errorf("%w: %s = %v", ErrNotFound, column, value)
	}
	row, err := scanRow(rows)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// GetAll returns every row in table scan order. It neither consults nor
// seeds the cache; cache population happens only at construction time and
// as a Get/Set side effect.
func (t *Table) GetAll(ctx context.Context) ([]Row, error) {
	rows, err := t.db.QueryContext(ctx, "SELECT * FROM "+t.name)
	if err != nil {
		return nil, fmt.Errorf("querying rows: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

// Set executes a single row intent and returns the merged row. See SetMany.
func (t *Table) Set(ctx context.Context, intent RowIntent) (Row, error) {
	merged, err := t.SetMany(ctx, []RowIntent{intent})
	if err != nil {
		return nil, err
	}
	return merged[0], nil
}

// SetMany executes every row intent inside one transaction: either all
// statements apply or none do, and a failure leaves both the store and the
// cache exactly as before the call.
//
// After the transaction commits, each intent's result is merged over the
// prior cached values matched by its Where predicate, decoded, pushed into
// the cache, and handed to the registered change callback. The merged rows
// are returned in intent order.
func (t *Table) SetMany(ctx context.Context, intents []RowIntent) ([]Row, error) {
	if len(intents) == 0 {
		return nil, fmt.Errorf("%w: no row intents given", ErrInvalidInput)
	}

	stmts := make([]queryDescriptor, 0, len(intents))
	for i, intent := range intents {
		qd, err := buildWrite(t.name, intent)
		if err != nil {
			return nil, fmt.Errorf("row intent %d: %w", i, err)
		}
		stmts = append(stmts, qd)
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	for _, qd := range stmts {
		if _, err := tx.ExecContext(ctx, qd.query, qd.args...); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("executing write: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing batch: %w", err)
	}

	merged := make([]Row, 0, len(intents))
	for _, intent := range intents {
		merged = append(merged, t.applyWrite(intent))
	}
	t.logger.Debug("set committed", "rows", len(intents))
	return merged, nil
}

// applyWrite performs the post-commit cache merge for one intent. For an
// update, the first cached entry matching each where-key is removed and its
// prior fields become the merge base, so unspecified fields of a partial
// update survive in the returned row.
func (t *Table) applyWrite(intent RowIntent) Row {
	base := Row{}
	if intent.Where != nil && t.caching {
		for _, col := range sortedKeys(intent.Where) {
			if prior, i, ok := t.cache.findByColumn(col, intent.Where[col]); ok {
				t.cache.removeAt(i)
				maps.Copy(base, prior)
			}
		}
	}
	maps.Copy(base, intent.Columns)

	row := decodeRow(base)
	if t.caching {
		t.cache.insert(row)
	}
	if t.onChange != nil {
		t.onChange(row)
	}
	return row
}

// Has reports whether Get finds a row for the column/value pair.
func (t *Table) Has(ctx context.Context, column string, value any) (bool, error) {
	_, err := t.Get(ctx, column, value)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Ensure returns the existing row matching column/value, or inserts ensure
// and returns the result. It does not check that ensure actually contains
// the probed column/value pair; that consistency is the caller's job.
func (t *Table) Ensure(ctx context.Context, column string, value any, ensure Row) (Row, error) {
	row, err := t.Get(ctx, column, value)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return t.Set(ctx, Intent(ensure))
}

// Delete removes every row whose column equals value and returns the count
// of rows affected. Matching cache entries are evicted by the same
// field-level rule Get uses for lookups.
func (t *Table) Delete(ctx context.Context, column string, value any) (int64, error) {
	bound, err := bindValue(value)
	if err != nil {
		return 0, fmt.Errorf("binding probe value: %w", err)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", t.name, column)
	res, err := t.db.ExecContext(ctx, query, bound)
	if err != nil {
		return 0, fmt.Errorf("deleting rows: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	if t.caching {
		evicted := t.cache.removeMatching(func(r Row) bool {
			v, ok := r[column]
			return ok && valueEqual(v, value)
		})
		t.logger.Debug("deleted rows", "affected", affected, "evicted", evicted)
	}
	return affected, nil
}

// Uncache evicts every cached entry whose column equals value and reports
// whether anything was removed. Always false when caching is disabled.
func (t *Table) Uncache(column string, value any) bool {
	if !t.caching {
		return false
	}
	return t.cache.removeMatching(func(r Row) bool {
		v, ok := r[column]
		return ok && valueEqual(v, value)
	}) > 0
}

// UncacheAll clears the whole cache and reports whether it is now empty.
// Always false when caching is disabled.
func (t *Table) UncacheAll() bool {
	if !t.caching {
		return false
	}
	t.cache.clear()
	return true
}

// Indexes returns the named column's value from every row, in table scan
// order. It bypasses the cache entirely.
func (t *Table) Indexes(ctx context.Context, column string) ([]any, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", column, t.name)
	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying column: %w", err)
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning value: %w", err)
		}
		out = append(out, decodeValue(normalizeScanned(v)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating values: %w", err)
	}
	return out, nil
}

// OnChange registers a callback invoked synchronously with each merged row
// after a Set commits. At most one callback is registered at a time; the
// last registration wins and nil unregisters.
func (t *Table) OnChange(fn func(Row)) {
	t.onChange = fn
}

// Close closes the underlying database connection.
func (t *Table) Close() error {
	t.logger.Debug("closing table")
	return t.db.Close()
}

// scanRow reads the current result row into materialized form.
func scanRow(rows *sql.Rows) (Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scanning row: %w", err)
	}

	row := make(Row, len(cols))
	for i, col := range cols {
		row[col] = normalizeScanned(values[i])
	}
	return decodeRow(row), nil
}

// normalizeScanned converts driver byte slices to strings so the codec sees
// TEXT columns uniformly.
func normalizeScanned(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// sortedColumnNames applies the same deterministic ordering the statement
// builder uses.
func sortedColumnNames(columns map[string]string) []string {
	return slices.Sorted(maps.Keys(columns))
}
