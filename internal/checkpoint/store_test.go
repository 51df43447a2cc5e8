package checkpoint_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsScanner/internal/checkpoint"
)

func TestStore_LoadMissingFile(t *testing.T) {
	t.Parallel()

	store := checkpoint.NewStore(t.TempDir(), "diplomatique", nil)

	set, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestStore_MarkDoneRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	store := checkpoint.NewStore(dir, "diplomatique", nil)

	require.NoError(t, store.MarkDone(ctx, "milicia"))
	require.NoError(t, store.MarkDone(ctx, "trafico"))
	require.NoError(t, store.MarkDone(ctx, "milicia"))

	assert.Equal(t, filepath.Join(dir, "completed_keywords_diplomatique.yaml"), store.Path())

	reloaded := checkpoint.NewStore(dir, "diplomatique", nil)
	completed, err := reloaded.Completed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"milicia", "trafico"}, completed)

	set, err := reloaded.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.Contains(t, set, "trafico")
}

func TestStore_FileIsYAMLList(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := checkpoint.NewStore(dir, "g1", nil)
	require.NoError(t, store.MarkDone(context.Background(), "faccao"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "- faccao\n", string(raw))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestStore_LoadMappingForm(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, checkpoint.FileName("g1"))
	require.NoError(t, os.WriteFile(path, []byte("completed_keywords:\n  - pcc\n  - milicia\n"), 0o600))

	set, err := checkpoint.NewStore(dir, "g1", nil).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"pcc": {}, "milicia": {}}, set)
}

func TestStore_LoadEmptyFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, checkpoint.FileName("g1")), nil, 0o600))

	set, err := checkpoint.NewStore(dir, "g1", nil).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestStore_MalformedFile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, checkpoint.FileName("cartacapital"))
	require.NoError(t, os.WriteFile(path, []byte("just a scalar"), 0o600))

	store := checkpoint.NewStore(dir, "cartacapital", nil)
	set, err := store.Load(ctx)
	require.ErrorIs(t, err, checkpoint.ErrMalformed)
	assert.Empty(t, set)

	require.NoError(t, store.MarkDone(ctx, "cartel"))

	completed, err := store.Completed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cartel"}, completed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var backups int
	for _, e := range entries {
		if strings.Contains(e.Name(), ".corrupt-") {
			backups++
		}
	}
	assert.Equal(t, 1, backups)
}

func TestStore_MarkDoneCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := checkpoint.NewStore(t.TempDir(), "g1", nil)
	require.ErrorIs(t, store.MarkDone(ctx, "pcc"), context.Canceled)

	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}
