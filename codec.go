// ABOUTME: Decodes stored rows back into materialized form
// ABOUTME: Textual values are JSON-parsed; parse failure keeps the scalar

package sqlitehelper

import "encoding/json"

// decodeRow returns a copy of row with every textual value run through
// decodeValue. It never fails and is idempotent: decoding an already
// materialized row is a no-op.
func decodeRow(row Row) Row {
	out := make(Row, len(row))
	for col, v := range row {
		out[col] = decodeValue(v)
	}
	return out
}

// decodeValue attempts to JSON-parse a textual value. Parse failure is the
// expected path for genuinely scalar columns and keeps the value unchanged.
func decodeValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return s
	}
	return parsed
}
