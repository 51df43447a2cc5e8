package storage_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsScanner/internal/infrastructure/storage"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestJSONLStore_SplitsByVerdict(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewJSONLStore(dir, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.SaveArticle(ctx, sampleArticle("https://g1.globo.com/a", true)))
	require.NoError(t, store.SaveArticle(ctx, sampleArticle("https://g1.globo.com/b", false)))
	require.NoError(t, store.SaveArticle(ctx, sampleArticle("https://g1.globo.com/c", true)))

	approved := readLines(t, filepath.Join(dir, "approved_items.jsonl"))
	rejected := readLines(t, filepath.Join(dir, "rejected_items.jsonl"))
	require.Len(t, approved, 2)
	require.Len(t, rejected, 1)

	assert.Equal(t, "comando vermelho - tiroteio", approved[0]["accepted_by"])
	assert.Equal(t, []any{"comando vermelho"}, approved[0]["gangs"])
	assert.Equal(t, []any{}, rejected[0]["gangs"])
	assert.Equal(t, "01-02-2024", rejected[0]["publication_date"])
}

func TestJSONLStore_History(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewJSONLStore(dir, nil)
	require.NoError(t, err)

	ctx := context.Background()
	urls, err := store.SeenURLs(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, urls, "missing history file is an empty history")

	require.NoError(t, store.RecordSeenURL(ctx, "https://g1.globo.com/a", "g1"))
	require.NoError(t, store.RecordSeenURL(ctx, "https://www.cartacapital.com.br/x", "cartacapital"))
	require.NoError(t, store.RecordSeenURL(ctx, "https://g1.globo.com/b", "g1"))

	// a torn line from an interrupted run is skipped
	f, err := os.OpenFile(filepath.Join(dir, "visited_urls.jsonl"), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{\"url\": \"https://g1\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	urls, err = store.SeenURLs(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://g1.globo.com/a", "https://g1.globo.com/b"}, urls)
}

func TestJSONLStore_AcceptedURLs(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewJSONLStore(dir, nil)
	require.NoError(t, err)

	ctx := context.Background()
	urls, err := store.AcceptedURLs(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, urls)

	other := sampleArticle("https://www.cartacapital.com.br/x", true)
	other.Newspaper = "cartacapital"
	require.NoError(t, store.SaveArticle(ctx, sampleArticle("https://g1.globo.com/a", true)))
	require.NoError(t, store.SaveArticle(ctx, sampleArticle("https://g1.globo.com/b", false)))
	require.NoError(t, store.SaveArticle(ctx, other))
	require.NoError(t, store.RecordSeenURL(ctx, "https://g1.globo.com/b", "g1"))

	urls, err = store.AcceptedURLs(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://g1.globo.com/a"}, urls, "rejected and foreign articles are not listed")
}
