// ABOUTME: In-memory ordered mirror of previously materialized rows
// ABOUTME: Best-effort only; losing it causes cache misses, never wrong results

package sqlitehelper

// rowCache holds materialized rows in insertion order. Lookup is a linear
// scan; the cache mirrors a single table's working set, not an index.
// It never touches the backing store.
type rowCache struct {
	entries []Row
}

func newRowCache() *rowCache {
	return &rowCache{}
}

// findByColumn returns the first entry whose named field matches value,
// along with its position.
func (c *rowCache) findByColumn(name string, value any) (Row, int, bool) {
	for i, row := range c.entries {
		if v, ok := row[name]; ok && valueEqual(v, value) {
			return row, i, true
		}
	}
	return nil, -1, false
}

// insert appends a row.
func (c *rowCache) insert(row Row) {
	c.entries = append(c.entries, row)
}

// replaceAt overwrites the entry at position i, preserving its position.
func (c *rowCache) replaceAt(i int, row Row) {
	c.entries[i] = row
}

// removeAt deletes the entry at position i.
func (c *rowCache) removeAt(i int) {
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
}

// removeMatching removes every entry for which pred holds and returns how
// many were removed.
func (c *rowCache) removeMatching(pred func(Row) bool) int {
	kept := c.entries[:0]
	removed := 0
	for _, row := range c.entries {
		if pred(row) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	for i := len(kept); i < len(c.entries); i++ {
		c.entries[i] = nil
	}
	c.entries = kept
	return removed
}

// clear empties the cache.
func (c *rowCache) clear() {
	c.entries = nil
}

func (c *rowCache) len() int {
	return len(c.entries)
}
