package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/bastiangx/sentserve/pkg/server"
	"github.com/bastiangx/sentserve/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
[corpus]
paths = ["corpus", "missing"]
split_sentences = true

[store]
backend = "file"
path = "snap/trie.msgpack"

[fallback]
provider = "none"
`

const testDialogue = `{"Issues": [{"Messages": [
  {"Text": "Hello there. How can I help you today?"},
  {"Text": "What is your order number?"}
]}]}`

func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "corpus"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corpus", "chats.json"), []byte(testDialogue), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corpus", "extra.txt"), []byte("How are you?\n"), 0o644))
	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfig), 0o644))
	return cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(bytes.NewReader(nil))
	rootCmd.SetArgs(args)
	defer func() {
		queryLimit, replLimit = 10, 10
		queryCmd.Flags().Lookup("limit").Changed = false
	}()
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBuildThenQuery(t *testing.T) {
	cfgPath := setupWorkspace(t)

	out, err := execute(t, "build", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "sentences:")
	assert.FileExists(t, filepath.Join(filepath.Dir(cfgPath), "snap", "trie.msgpack"))

	out, err = execute(t, "query", "How", "--config", cfgPath)
	require.NoError(t, err)
	var resp server.AutocompleteResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"How can I help you today?", "How are you?"}, resp.Completions)

	out, err = execute(t, "query", "How", "-n", "1", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, `{"Completions":["How can I help you today?"]}`+"\n", out)
}

func TestQueryLoadsSnapshot(t *testing.T) {
	cfgPath := setupWorkspace(t)
	_, err := execute(t, "build", "--config", cfgPath)
	require.NoError(t, err)

	// the corpus is gone, so results must come from the snapshot
	require.NoError(t, os.RemoveAll(filepath.Join(filepath.Dir(cfgPath), "corpus")))

	out, err := execute(t, "query", "What", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, `{"Completions":["What is your order number?"]}`+"\n", out)

	snap := store.NewFileStore(filepath.Join(filepath.Dir(cfgPath), "snap", "trie.msgpack"))
	tr, err := store.LoadTrie(context.Background(), snap)
	require.NoError(t, err)
	assert.True(t, tr.Contains("Hello there."))
	assert.True(t, tr.Contains("Hello there. How can I help you today?"))
}

func TestQueryMiss(t *testing.T) {
	cfgPath := setupWorkspace(t)
	out, err := execute(t, "query", "Zebra", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, `{"Completions":[]}`+"\n", out)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}
