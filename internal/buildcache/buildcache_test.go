package buildcache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	st, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func Test_Key_stableForIdenticalInputs(t *testing.T) {
	a := Key("fn main() -> int { return 0 }", Options{Target: "object"})
	b := Key("fn main() -> int { return 0 }", Options{Target: "object"})
	assert.Equal(t, a, b)
}

func Test_Key_differsByOptions(t *testing.T) {
	src := "fn main() -> int { return 0 }"
	a := Key(src, Options{Target: "object"})
	b := Key(src, Options{Target: "other"})
	assert.NotEqual(t, a, b)
}

func Test_Store_missOnEmptyCache(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.Lookup(ctx, Key("x", Options{}))
	assert.ErrorIs(t, err, ErrNotFound)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func Test_Store_putThenLookupHits(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	key := Key("fn main() -> int { return 0 }", Options{Target: "object"})

	runID, err := st.Put(ctx, key, struct{ Nodes []string }{Nodes: []string{"n1", "n2"}}, "define i64 @main() { ret i64 0 }")
	require.NoError(t, err)
	assert.NotEqual(t, runID.String(), "00000000-0000-0000-0000-000000000000")

	entry, err := st.Lookup(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "define i64 @main() { ret i64 0 }", entry.Object)
	assert.Equal(t, runID, entry.RunID)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
}

func Test_Store_putOverwritesExistingKey(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	key := Key("x", Options{})

	_, err := st.Put(ctx, key, struct{}{}, "first")
	require.NoError(t, err)
	_, err = st.Put(ctx, key, struct{}{}, "second")
	require.NoError(t, err)

	entry, err := st.Lookup(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "second", entry.Object)
}
