package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, key := range []string{"NEWSSCANNER_CONFIG", "NEWSSCANNER_OUTPUT", "MONGO_URI", "DATABASE_DSN", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID"} {
		t.Setenv(key, "")
	}
	return dir
}

func TestSourcesCommand(t *testing.T) {
	isolate(t)

	out, err := run(t, "sources")
	require.NoError(t, err)
	for _, name := range []string{"diplomatique", "diplomatique_feed", "cartacapital", "correio_do_povo", "laprensa", "g1"} {
		assert.Contains(t, out, name)
	}
}

func TestStatusCommand(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "completed_keywords_g1.yaml"), []byte("- PCC\n- milícia\n"), 0o644))

	out, err := run(t, "status", "--source", "g1", "--checkpoint-dir", dir)
	require.NoError(t, err)
	out = strings.ToLower(out)
	assert.Contains(t, out, "pcc")
	assert.Contains(t, out, "2/10 done")
}

func TestCrawlCommand_Validation(t *testing.T) {
	isolate(t)

	_, err := run(t, "crawl", "--source", "unknown")
	assert.Error(t, err)

	_, err = run(t, "crawl", "--year", "2024", "--from", "2024-01-01", "--to", "2024-01-02")
	assert.Error(t, err, "year and from are mutually exclusive")

	_, err = run(t, "crawl", "--from", "2024-01-01")
	assert.Error(t, err, "from needs to")

	_, err = run(t, "crawl", "--recheck", "--resume-from", "pcc")
	assert.Error(t, err, "recheck and resume-from are mutually exclusive")

	_, err = run(t, "crawl", "--output", "kafka")
	assert.Error(t, err)
}
