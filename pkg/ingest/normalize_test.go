package ingest

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeBlock mirrors the pipeline's decoding so samples arrive as
// json.Number rather than float64.
func decodeBlock(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var block map[string]interface{}
	require.NoError(t, dec.Decode(&block))
	return block
}

func TestNormalizeFieldSparseNumericOrder(t *testing.T) {
	block := decodeBlock(t, `{"Alt": {"0": 10, "2": 12, "1": 11, "10": 20}}`)

	nb, err := normalizeBlock(block)
	require.NoError(t, err)
	require.NotNil(t, nb)
	require.Len(t, nb.Rows, 4)

	var got []int64
	for _, row := range nb.Rows {
		got = append(got, row[0].(int64))
	}
	assert.Equal(t, []int64{10, 11, 12, 20}, got)
}

func TestNormalizeBlockRaggedPadding(t *testing.T) {
	block := decodeBlock(t, `{
		"time_boot_ms": [100, 200, 300],
		"Roll": [1.5]
	}`)

	nb, err := normalizeBlock(block)
	require.NoError(t, err)
	require.NotNil(t, nb)

	assert.Equal(t, "Roll", nb.Columns[0].Name)
	assert.Equal(t, "REAL", nb.Columns[0].Type)
	assert.Equal(t, "time_boot_ms", nb.Columns[1].Name)
	assert.Equal(t, "INTEGER", nb.Columns[1].Type)

	require.Len(t, nb.Rows, 3)
	assert.Equal(t, 1.5, nb.Rows[0][0])
	assert.Nil(t, nb.Rows[1][0])
	assert.Nil(t, nb.Rows[2][0])
	assert.Equal(t, int64(300), nb.Rows[2][1])
}

func TestNormalizeBlockDropsUnrecognizedShapes(t *testing.T) {
	block := decodeBlock(t, `{
		"ok": [1, 2],
		"scalar": 42,
		"text": "nope",
		"mixed_keys": {"0": 1, "abc": 2}
	}`)

	nb, err := normalizeBlock(block)
	require.NoError(t, err)
	require.NotNil(t, nb)
	require.Len(t, nb.Columns, 1)
	assert.Equal(t, "ok", nb.Columns[0].Name)
}

func TestNormalizeBlockAllFieldsDropped(t *testing.T) {
	block := decodeBlock(t, `{"a": 1, "b": "x"}`)

	nb, err := normalizeBlock(block)
	require.NoError(t, err)
	assert.Nil(t, nb)
}

func TestCoercions(t *testing.T) {
	block := decodeBlock(t, `{
		"armed": [true, false, null],
		"pos": [{"lat": 1, "lng": 2}, null],
		"speed": [null, 3.25]
	}`)

	nb, err := normalizeBlock(block)
	require.NoError(t, err)
	require.NotNil(t, nb)

	byName := map[string]int{}
	for i, c := range nb.Columns {
		byName[c.Name] = i
	}

	assert.Equal(t, "INTEGER", nb.Columns[byName["armed"]].Type)
	assert.Equal(t, int64(1), nb.Rows[0][byName["armed"]])
	assert.Equal(t, int64(0), nb.Rows[1][byName["armed"]])
	assert.Nil(t, nb.Rows[2][byName["armed"]])

	assert.Equal(t, "TEXT", nb.Columns[byName["pos"]].Type)
	assert.JSONEq(t, `{"lat":1,"lng":2}`, nb.Rows[0][byName["pos"]].(string))

	// Type comes from the first non-null sample.
	assert.Equal(t, "REAL", nb.Columns[byName["speed"]].Type)
	assert.Equal(t, 3.25, nb.Rows[1][byName["speed"]])
}

func TestInferTypeAllNull(t *testing.T) {
	assert.Equal(t, "TEXT", inferType([]interface{}{nil, nil}))
}
