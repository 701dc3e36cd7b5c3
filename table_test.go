package sqlitehelper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFoodsTable creates a fresh foods table in a temporary directory.
func newFoodsTable(t *testing.T, opts Options) *Table {
	t.Helper()
	if opts.Table == "" {
		opts.Table = "foods"
	}
	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}
	if opts.Filename == "" {
		opts.Filename = "test.db"
	}
	if opts.Columns == nil {
		opts.Columns = map[string]string{"name": "text", "price": "int"}
	}

	table, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { table.Close() })
	return table
}

func TestNew_SchemaRequired(t *testing.T) {
	_, err := New(Options{Table: "foods", Dir: t.TempDir(), Filename: "test.db"})
	assert.ErrorIs(t, err, ErrSchemaRequired)
}

func TestNew_ConfigConflict(t *testing.T) {
	_, err := New(Options{
		Table:    "foods",
		Dir:      t.TempDir(),
		Filename: "test.db",
		Columns:  map[string]string{"name": "text"},
		Caching:  false,
		FetchAll: true,
	})
	assert.ErrorIs(t, err, ErrConfigConflict)
}

func TestNew_ReopenExistingTableWithoutSchema(t *testing.T) {
	dir := t.TempDir()
	first := newFoodsTable(t, Options{Dir: dir, Caching: true})
	require.NoError(t, first.Close())

	// Once the table exists, Columns is no longer required.
	second, err := New(Options{Table: "foods", Dir: dir, Filename: "test.db", Caching: true})
	require.NoError(t, err)
	second.Close()
}

func TestNew_WALMode(t *testing.T) {
	table := newFoodsTable(t, Options{Caching: true, WAL: true})

	var mode string
	require.NoError(t, table.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestTable_Scenario(t *testing.T) {
	table := newFoodsTable(t, Options{Caching: true})
	ctx := context.Background()

	row, err := table.Set(ctx, Intent(Row{"name": "apple", "price": 3}))
	require.NoError(t, err)
	assert.Equal(t, Row{"name": "apple", "price": 3}, row)

	got, err := table.Get(ctx, "name", "apple")
	require.NoError(t, err)
	assert.Equal(t, Row{"name": "apple", "price": 3}, got)

	updated, err := table.Set(ctx, RowIntent{
		Where:   Row{"name": "apple"},
		Columns: Row{"price": 4},
	})
	require.NoError(t, err)
	assert.Equal(t, Row{"name": "apple", "price": 4}, updated,
		"unspecified fields of a partial update are preserved")

	affected, err := table.Delete(ctx, "name", "apple")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	_, err = table.Get(ctx, "name", "apple")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTable_GetServedFromCache(t *testing.T) {
	table := newFoodsTable(t, Options{Caching: true})
	ctx := context.Background()

	_, err := table.Set(ctx, Intent(Row{"name": "apple", "price": 3}))
	require.NoError(t, err)

	// Remove the row behind the cache's back; a later Get must still be
	// answered from the cache without a store round trip.
	_, err = table.db.Exec("DELETE FROM foods")
	require.NoError(t, err)

	row, err := table.Get(ctx, "name", "apple")
	require.NoError(t, err)
	assert.Equal(t, Row{"name": "apple", "price": 3}, row)
}

func TestTable_CachingDisabledHitsStore(t *testing.T) {
	table := newFoodsTable(t, Options{Caching: false})
	ctx := context.Background()

	_, err := table.Set(ctx, Intent(Row{"name": "apple", "price": 3}))
	require.NoError(t, err)
	assert.Equal(t, 0, table.cache.len())

	row, err := table.Get(ctx, "name", "apple")
	require.NoError(t, err)
	assert.Equal(t, "apple", row["name"])
	assert.EqualValues(t, 3, row["price"])
	assert.Equal(t, 0, table.cache.len())
}

func TestTable_RoundTripStructuredValues(t *testing.T) {
	table := newFoodsTable(t, Options{
		Caching: false,
		Columns: map[string]string{"name": "text", "tags": "text"},
	})
	ctx := context.Background()

	_, err := table.Set(ctx, Intent(Row{"name": "stew", "tags": []string{"beef", "soup"}}))
	require.NoError(t, err)

	row, err := table.Get(ctx, "name", "stew")
	require.NoError(t, err)
	assert.Equal(t, []any{"beef", "soup"}, row["tags"], "tags must come back as an array, not a string")
}

func TestTable_SetMany(t *testing.T) {
	table := newFoodsTable(t, Options{Caching: true})
	ctx := context.Background()

	rows, err := table.SetMany(ctx, []RowIntent{
		Intent(Row{"name": "apple", "price": 3}),
		Intent(Row{"name": "banana", "price": 1}),
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "apple", rows[0]["name"])
	assert.Equal(t, "banana", rows[1]["name"])

	all, err := table.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTable_SetMany_Atomicity(t *testing.T) {
	table := newFoodsTable(t, Options{Caching: true})
	ctx := context.Background()

	_, err := table.Set(ctx, Intent(Row{"name": "apple", "price": 3}))
	require.NoError(t, err)
	cacheBefore := table.cache.len()

	// The second intent hits a column that does not exist; the whole batch
	// must roll back.
	_, err = table.SetMany(ctx, []RowIntent{
		Intent(Row{"name": "banana", "price": 1}),
		Intent(Row{"bogus": 1}),
	})
	require.Error(t, err)

	all, err := table.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "no intent of the failed batch may be committed")
	assert.Equal(t, cacheBefore, table.cache.len(), "cache must be unchanged after a failed batch")
}

func TestTable_Set_InvalidInput(t *testing.T) {
	table := newFoodsTable(t, Options{Caching: true})
	ctx := context.Background()

	_, err := table.Set(ctx, RowIntent{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = table.Set(ctx, RowIntent{Columns: Row{"price": 4}, Where: Row{}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = table.SetMany(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTable_SetWhere_NoMatchingRows(t *testing.T) {
	table := newFoodsTable(t, Options{Caching: true})
	ctx := context.Background()

	row, err := table.Set(ctx, RowIntent{
		Where:   Row{"name": "ghost"},
		Columns: Row{"price": 9},
	})
	require.NoError(t, err)
	assert.Equal(t, Row{"price": 9}, row, "merge has no prior base when nothing matched")
}

func TestTable_Has(t *testing.T) {
	table := newFoodsTable(t, Options{Caching: true})
	ctx := context.Background()

	found, err := table.Has(ctx, "name", "apple")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = table.Set(ctx, Intent(Row{"name": "apple", "price": 3}))
	require.NoError(t, err)

	found, err = table.Has(ctx, "name", "apple")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestTable_Ensure(t *testing.T) {
	table := newFoodsTable(t, Options{Caching: true})
	ctx := context.Background()

	inserts := 0
	table.OnChange(func(Row) { inserts++ })

	row, err := table.Ensure(ctx, "name", "banana", Row{"name": "banana", "price": 1})
	require.NoError(t, err)
	assert.Equal(t, Row{"name": "banana", "price": 1}, row)
	assert.Equal(t, 1, inserts)

	again, err := table.Ensure(ctx, "name", "banana", Row{"name": "banana", "price": 99})
	require.NoError(t, err)
	assert.Equal(t, row, again, "existing row is returned unchanged")
	assert.Equal(t, 1, inserts, "no second insert may be issued")
}

func TestTable_Delete_CountAndEviction(t *testing.T) {
	table := newFoodsTable(t, Options{Caching: true})
	ctx := context.Background()

	_, err := table.SetMany(ctx, []RowIntent{
		Intent(Row{"name": "apple", "price": 3}),
		Intent(Row{"name": "pear", "price": 3}),
		Intent(Row{"name": "cherry", "price": 5}),
	})
	require.NoError(t, err)

	affected, err := table.Delete(ctx, "price", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.Equal(t, 1, table.cache.len(), "every matching cache entry is evicted")

	_, err = table.Get(ctx, "name", "cherry")
	assert.NoError(t, err)
}

func TestTable_Uncache(t *testing.T) {
	table := newFoodsTable(t, Options{Caching: true})
	ctx := context.Background()

	_, err := table.Set(ctx, Intent(Row{"name": "apple", "price": 3}))
	require.NoError(t, err)

	assert.True(t, table.Uncache("name", "apple"))
	assert.False(t, table.Uncache("name", "apple"), "nothing left to remove")

	// The row is still in the store, so Get falls through and recaches.
	_, err = table.Get(ctx, "name", "apple")
	require.NoError(t, err)
	assert.Equal(t, 1, table.cache.len())
}

func TestTable_UncacheAll_Idempotent(t *testing.T) {
	table := newFoodsTable(t, Options{Caching: true})
	ctx := context.Background()

	_, err := table.Set(ctx, Intent(Row{"name": "apple", "price": 3}))
	require.NoError(t, err)

	assert.True(t, table.UncacheAll())
	assert.True(t, table.UncacheAll(), "second clear is a no-op but still true")
	assert.Equal(t, 0, table.cache.len())
}

func TestTable_Uncache_CachingDisabled(t *testing.T) {
	table := newFoodsTable(t, Options{Caching: false})

	assert.False(t, table.Uncache("name", "apple"))
	assert.False(t, table.UncacheAll())
}

func TestTable_GetAll_DoesNotSeedCache(t *testing.T) {
	table := newFoodsTable(t, Options{Caching: true})
	ctx := context.Background()

	_, err := table.SetMany(ctx, []RowIntent{
		Intent(Row{"name": "apple", "price": 3}),
		Intent(Row{"name": "banana", "price": 1}),
	})
	require.NoError(t, err)
	table.UncacheAll()

	all, err := table.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 0, table.cache.len(), "bulk reads do not populate the cache")
}

func TestTable_FetchAll(t *testing.T) {
	dir := t.TempDir()

	first := newFoodsTable(t, Options{Dir: dir, Caching: true})
	ctx := context.Background()
	_, err := first.SetMany(ctx, []RowIntent{
		Intent(Row{"name": "apple", "price": 3}),
		Intent(Row{"name": "banana", "price": 1}),
	})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newFoodsTable(t, Options{Dir: dir, Caching: true, FetchAll: true})
	assert.Equal(t, 2, second.cache.len(), "cache is seeded with every row in scan order")

	// Seeded entries are served without touching the store.
	_, err = second.db.Exec("DELETE FROM foods")
	require.NoError(t, err)
	row, err := second.Get(ctx, "name", "banana")
	require.NoError(t, err)
	assert.EqualValues(t, 1, row["price"])
}

func TestTable_Indexes(t *testing.T) {
	table := newFoodsTable(t, Options{Caching: true})
	ctx := context.Background()

	_, err := table.SetMany(ctx, []RowIntent{
		Intent(Row{"name": "apple", "price": 3}),
		Intent(Row{"name": "banana", "price": 1}),
	})
	require.NoError(t, err)

	names, err := table.Indexes(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, []any{"apple", "banana"}, names)
}

func TestTable_OnChange(t *testing.T) {
	table := newFoodsTable(t, Options{Caching: true})
	ctx := context.Background()

	var first, second []Row
	table.OnChange(func(r Row) { first = append(first, r) })
	table.OnChange(func(r Row) { second = append(second, r) })

	_, err := table.SetMany(ctx, []RowIntent{
		Intent(Row{"name": "apple", "price": 3}),
		Intent(Row{"name": "banana", "price": 1}),
	})
	require.NoError(t, err)

	assert.Empty(t, first, "last registration wins")
	require.Len(t, second, 2, "callback fires once per row intent")
	assert.Equal(t, "apple", second[0]["name"])
	assert.Equal(t, "banana", second[1]["name"])
}

func TestTable_CrossHandleCachesAreIndependent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	h1 := newFoodsTable(t, Options{Dir: dir, Caching: true})
	h2 := newFoodsTable(t, Options{Dir: dir, Caching: true})

	_, err := h1.Set(ctx, Intent(Row{"name": "apple", "price": 3}))
	require.NoError(t, err)
	assert.Equal(t, 0, h2.cache.len(), "handles never share cache state")

	// h2 materializes the row from the store and caches it.
	row, err := h2.Get(ctx, "name", "apple")
	require.NoError(t, err)
	assert.EqualValues(t, 3, row["price"])

	// A write through h1 leaves h2's cache stale; that is the documented
	// cross-handle contract.
	_, err = h1.Set(ctx, RowIntent{Where: Row{"name": "apple"}, Columns: Row{"price": 4}})
	require.NoError(t, err)

	stale, err := h2.Get(ctx, "name", "apple")
	require.NoError(t, err)
	assert.EqualValues(t, 3, stale["price"])
}
