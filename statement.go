// ABOUTME: Builds parameterized INSERT/UPDATE statements from row intents
// ABOUTME: Pure functions, no database access

package sqlitehelper

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"time"
)

// queryDescriptor pairs a built SQL statement with its positional bound
// values. Ephemeral: built and consumed within a single call.
type queryDescriptor struct {
	query string
	args  []any
}

// buildWrite turns a row intent into exactly one parameterized statement.
// A nil Where produces an INSERT over the intent's columns; a non-nil Where
// produces an UPDATE whose WHERE clause ANDs every predicate pair.
//
// Columns and predicates are emitted in lexicographic key order so the
// generated SQL is deterministic.
func buildWrite(table string, intent RowIntent) (queryDescriptor, error) {
	if len(intent.Columns) == 0 {
		return queryDescriptor{}, fmt.Errorf("%w: columns must be a non-empty mapping", ErrInvalidInput)
	}
	if intent.Where != nil && len(intent.Where) == 0 {
		return queryDescriptor{}, fmt.Errorf("%w: where clause is present but empty", ErrInvalidInput)
	}

	cols := sortedKeys(intent.Columns)
	args := make([]any, 0, len(intent.Columns)+len(intent.Where))

	if intent.Where == nil {
		placeholders := make([]string, len(cols))
		for i, col := range cols {
			placeholders[i] = "?"
			bound, err := bindValue(intent.Columns[col])
			if err != nil {
				return queryDescriptor{}, fmt.Errorf("binding column %s: %w", col, err)
			}
			args = append(args, bound)
		}
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
		return queryDescriptor{query: query, args: args}, nil
	}

	assignments := make([]string, len(cols))
	for i, col := range cols {
		assignments[i] = col + " = ?"
		bound, err := bindValue(intent.Columns[col])
		if err != nil {
			return queryDescriptor{}, fmt.Errorf("binding column %s: %w", col, err)
		}
		args = append(args, bound)
	}

	whereCols := sortedKeys(intent.Where)
	predicates := make([]string, len(whereCols))
	for i, col := range whereCols {
		predicates[i] = col + " = ?"
		bound, err := bindValue(intent.Where[col])
		if err != nil {
			return queryDescriptor{}, fmt.Errorf("binding predicate %s: %w", col, err)
		}
		args = append(args, bound)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		table, strings.Join(assignments, ", "), strings.Join(predicates, " AND "))
	return queryDescriptor{query: query, args: args}, nil
}

// bindValue converts a row value into a driver-bindable form. Structured
// values (maps, slices, structs) are serialized to JSON text; scalars pass
// through unchanged.
func bindValue(v any) (any, error) {
	switch v.(type) {
	case nil, bool, string, []byte, time.Time,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v, nil
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Ptr:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("serializing value: %w", err)
		}
		return string(data), nil
	}
	return v, nil
}

func sortedKeys(m Row) []string {
	return slices.Sorted(maps.Keys(m))
}
