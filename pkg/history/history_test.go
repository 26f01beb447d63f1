package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/store"
)

func newTestHistory(t *testing.T) *History {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	h, err := New(st.DB())
	require.NoError(t, err)
	return h
}

func TestAppendAndRecentOldestFirst(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	require.NoError(t, h.Append(ctx, "s1", "user", "what was the max altitude?"))
	require.NoError(t, h.Append(ctx, "s1", "assistant", "342.5 meters"))
	require.NoError(t, h.Append(ctx, "s2", "user", "other session"))

	turns, err := h.Recent(ctx, "s1", 20)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "what was the max altitude?", turns[0].Content)
	assert.Equal(t, "assistant", turns[1].Role)
}

func TestRecentLimitKeepsNewest(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, h.Append(ctx, "s1", "user", fmt.Sprintf("q%d", i)))
	}

	turns, err := h.Recent(ctx, "s1", 3)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	// The window keeps the newest turns but presents them oldest first.
	assert.Equal(t, "q2", turns[0].Content)
	assert.Equal(t, "q4", turns[2].Content)
}

func TestClear(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	require.NoError(t, h.Append(ctx, "s1", "user", "hello"))
	require.NoError(t, h.Append(ctx, "s2", "user", "hello"))

	require.NoError(t, h.Clear(ctx, "s1"))
	turns, err := h.Recent(ctx, "s1", 20)
	require.NoError(t, err)
	assert.Empty(t, turns)

	turns, err = h.Recent(ctx, "s2", 20)
	require.NoError(t, err)
	assert.Len(t, turns, 1)

	require.NoError(t, h.ClearAll(ctx))
	turns, err = h.Recent(ctx, "s2", 20)
	require.NoError(t, err)
	assert.Empty(t, turns)
}
