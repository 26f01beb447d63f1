package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/store"
)

func newTestPipeline(t *testing.T) (*Pipeline, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewPipeline(st), st
}

func TestIngestCreatesTablesAndSkipsFileBlock(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()

	raw := []byte(`{
		"messages": {
			"ATT": {"time_boot_ms": [100, 200], "Roll": [1.5, 2.5]},
			"FILE": {"name": ["flight.bin"]},
			"GPS[0]": {"time_boot_ms": {"0": 100}, "Lat": {"0": 47.6}}
		}
	}`)

	tables, err := p.Ingest(ctx, raw, "abc-123")
	require.NoError(t, err)
	assert.Equal(t, []string{"log_abc_123_ATT", "log_abc_123_GPS_0_"}, tables)

	result, err := st.Query(ctx, "SELECT time_boot_ms, Roll FROM log_abc_123_ATT ORDER BY time_boot_ms")
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, int64(100), result.Rows[0][0])
	assert.Equal(t, 1.5, result.Rows[0][1])

	cols, err := st.Describe(ctx, "log_abc_123_GPS_0_")
	require.NoError(t, err)
	assert.Equal(t, []store.Column{
		{Name: "Lat", Type: "REAL"},
		{Name: "time_boot_ms", Type: "INTEGER"},
	}, cols)
}

func TestIngestSkipsBlocksWithNoTabularFields(t *testing.T) {
	p, _ := newTestPipeline(t)

	raw := []byte(`{
		"messages": {
			"ATT": {"time_boot_ms": [100]},
			"META": {"version": 3}
		}
	}`)

	tables, err := p.Ingest(context.Background(), raw, "f1")
	require.NoError(t, err)
	assert.Equal(t, []string{"log_f1_ATT"}, tables)
}

func TestIngestRejectsMalformedPayload(t *testing.T) {
	p, _ := newTestPipeline(t)

	_, err := p.Ingest(context.Background(), []byte(`{"messages"`), "f1")
	assert.Error(t, err)

	_, err = p.Ingest(context.Background(), []byte(`{"messages": {}}`), "f1")
	assert.Error(t, err)
}

func TestIngestFailureLeavesNoTables(t *testing.T) {
	p, st := newTestPipeline(t)
	ctx := context.Background()

	// Pre-existing table collides with the second block, after the first
	// block has already been materialized.
	require.NoError(t, st.CreateTable(ctx, "log_f1_GPS",
		[]store.Column{{Name: "x", Type: "INTEGER"}}, nil))

	raw := []byte(`{
		"messages": {
			"ATT": {"time_boot_ms": [100]},
			"GPS": {"time_boot_ms": [100]}
		}
	}`)

	_, err := p.Ingest(ctx, raw, "f1")
	require.Error(t, err)

	names, err := st.Tables(ctx, store.FilePrefix("f1"))
	require.NoError(t, err)
	assert.Empty(t, names)
}
