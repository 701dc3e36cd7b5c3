// ABOUTME: Row and RowIntent types plus value equality used by cache probes
// ABOUTME: Normalizes numeric types so int64 from SQLite matches float64 from JSON

package sqlitehelper

import "reflect"

// Row is a single table row, mapping column names to values. In materialized
// form, columns that were stored as JSON text hold the decoded value.
type Row map[string]any

// RowIntent describes one write: the columns to set and an optional match
// predicate. A nil Where means insert; a non-nil Where means update every row
// matching all of its column/value pairs.
type RowIntent struct {
	Columns Row
	Where   Row
}

// Intent wraps a bare row into an insert intent.
func Intent(columns Row) RowIntent {
	return RowIntent{Columns: columns}
}

// valueEqual reports whether two row values match for cache lookups. Numeric
// values are compared by magnitude regardless of Go type: SQLite scans
// integers as int64, JSON decodes numbers as float64, and callers usually
// probe with int.
func valueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
