// Package ingest converts parsed telemetry payloads into relational tables.
//
// A payload carries one block per message type. Each block maps field names
// to column data in one of two shapes: a dense list of samples, or a sparse
// map from numeric sample index to value. Fields in any other shape are
// dropped. Columns are right-padded with nulls to the longest field so every
// table is rectangular.
package ingest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/store"
)

// normalizedBlock is a block flattened to rectangular column-major data with
// inferred storage types.
type normalizedBlock struct {
	Columns []store.Column
	Rows    [][]interface{}
}

// normalizeBlock flattens a message block into rectangular rows. Returns nil
// when no field survives normalization.
func normalizeBlock(block map[string]interface{}) (*normalizedBlock, error) {
	names := make([]string, 0, len(block))
	for name := range block {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		cols      []store.Column
		colValues [][]interface{}
		maxLen    int
	)
	for _, name := range names {
		values, ok := normalizeField(block[name])
		if !ok {
			continue
		}
		cols = append(cols, store.Column{Name: name})
		colValues = append(colValues, values)
		if len(values) > maxLen {
			maxLen = len(values)
		}
	}
	if len(cols) == 0 {
		return nil, nil
	}

	for i := range cols {
		for len(colValues[i]) < maxLen {
			colValues[i] = append(colValues[i], nil)
		}
		colType := inferType(colValues[i])
		cols[i].Type = colType
		for j, v := range colValues[i] {
			coerced, err := coerceValue(v, colType)
			if err != nil {
				return nil, fmt.Errorf("field %s sample %d: %w", cols[i].Name, j, err)
			}
			colValues[i][j] = coerced
		}
	}

	rows := make([][]interface{}, maxLen)
	for j := 0; j < maxLen; j++ {
		row := make([]interface{}, len(cols))
		for i := range cols {
			row[i] = colValues[i][j]
		}
		rows[j] = row
	}
	return &normalizedBlock{Columns: cols, Rows: rows}, nil
}

// normalizeField extracts a value sequence from a field. Dense lists pass
// through in order; sparse index-keyed maps are ordered by numeric key. Any
// other shape, including maps with non-numeric keys, reports ok=false.
func normalizeField(field interface{}) ([]interface{}, bool) {
	switch v := field.(type) {
	case []interface{}:
		return v, true
	case map[string]interface{}:
		type indexed struct {
			idx int
			val interface{}
		}
		entries := make([]indexed, 0, len(v))
		for key, val := range v {
			idx, err := strconv.Atoi(key)
			if err != nil {
				return nil, false
			}
			entries = append(entries, indexed{idx: idx, val: val})
		}
		// Numeric sort, not lexical: "10" sorts after "9".
		sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })
		values := make([]interface{}, len(entries))
		for i, e := range entries {
			values[i] = e.val
		}
		return values, true
	default:
		return nil, false
	}
}

// inferType picks the storage type from the first non-null sample. An
// all-null column stores as TEXT.
func inferType(values []interface{}) string {
	for _, v := range values {
		switch n := v.(type) {
		case nil:
			continue
		case bool:
			return "INTEGER"
		case json.Number:
			if _, err := n.Int64(); err == nil {
				return "INTEGER"
			}
			return "REAL"
		case string:
			return "TEXT"
		default:
			// Composite samples (nested objects, arrays) store as JSON text.
			return "TEXT"
		}
	}
	return "TEXT"
}

// coerceValue converts a decoded sample into its storage representation.
// Booleans store as 0/1, composites as their JSON encoding.
func coerceValue(v interface{}, colType string) (interface{}, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case json.Number:
		if colType == "INTEGER" {
			if i, err := val.Int64(); err == nil {
				return i, nil
			}
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", val.String())
		}
		return f, nil
	case string:
		return val, nil
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("encode composite value: %w", err)
		}
		return string(encoded), nil
	}
}
