package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTableName(t *testing.T) {
	tests := []struct {
		fileID   string
		msgType  string
		expected string
	}{
		{"abc-123", "ATT", "log_abc_123_ATT"},
		{"f1", "GPS[0]", "log_f1_GPS_0_"},
		{"f1", "XKF1", "log_f1_XKF1"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, TableName(tt.fileID, tt.msgType))
	}
}

func TestCreateTableAndQuery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cols := []Column{
		{Name: "time_boot_ms", Type: "INTEGER"},
		{Name: "Roll", Type: "REAL"},
		{Name: "label", Type: "TEXT"},
	}
	rows := [][]interface{}{
		{int64(100), 1.5, "a"},
		{int64(200), nil, "b"},
	}
	require.NoError(t, s.CreateTable(ctx, "log_f1_ATT", cols, rows))

	result, err := s.Query(ctx, "SELECT time_boot_ms, Roll, label FROM log_f1_ATT ORDER BY time_boot_ms")
	require.NoError(t, err)
	assert.Equal(t, []string{"time_boot_ms", "Roll", "label"}, result.Columns)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, int64(100), result.Rows[0][0])
	assert.Equal(t, 1.5, result.Rows[0][1])
	assert.Nil(t, result.Rows[1][1])
	assert.Equal(t, "b", result.Rows[1][2])
}

func TestCreateTableDuplicateFails(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cols := []Column{{Name: "x", Type: "INTEGER"}}
	require.NoError(t, s.CreateTable(ctx, "log_f1_MODE", cols, nil))
	assert.Error(t, s.CreateTable(ctx, "log_f1_MODE", cols, nil))
}

func TestTablesPrefixFiltering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cols := []Column{{Name: "x", Type: "INTEGER"}}
	require.NoError(t, s.CreateTable(ctx, "log_f1_ATT", cols, nil))
	require.NoError(t, s.CreateTable(ctx, "log_f1_GPS", cols, nil))
	require.NoError(t, s.CreateTable(ctx, "log_f2_ATT", cols, nil))

	names, err := s.Tables(ctx, FilePrefix("f1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"log_f1_ATT", "log_f1_GPS"}, names)

	all, err := s.Tables(ctx, TablePrefix)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDescribe(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cols := []Column{
		{Name: "time_boot_ms", Type: "INTEGER"},
		{Name: "Mode", Type: "TEXT"},
	}
	require.NoError(t, s.CreateTable(ctx, "log_f1_MODE", cols, nil))

	info, err := s.Describe(ctx, "log_f1_MODE")
	require.NoError(t, err)
	assert.Equal(t, cols, info)

	_, err = s.Describe(ctx, "log_f1_NOPE")
	assert.Error(t, err)
}

func TestDropTables(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cols := []Column{{Name: "x", Type: "INTEGER"}}
	require.NoError(t, s.CreateTable(ctx, "log_f1_ATT", cols, nil))
	require.NoError(t, s.CreateTable(ctx, "log_f2_ATT", cols, nil))

	n, err := s.DropTables(ctx, TablePrefix)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	names, err := s.Tables(ctx, TablePrefix)
	require.NoError(t, err)
	assert.Empty(t, names)
}
