package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bastiangx/sentserve/pkg/suggest"
	"github.com/bastiangx/sentserve/pkg/trie"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func newCompleter(t *testing.T) *suggest.Completer {
	t.Helper()
	tr := trie.New(0)
	for _, s := range []string{"Where is my parcel?", "Where is the store?", "Thanks!"} {
		require.NoError(t, tr.Insert(s))
	}
	return suggest.NewCompleter(tr)
}

func run(t *testing.T, input string, limit int) string {
	t.Helper()
	var out bytes.Buffer
	h := NewInputHandlerWithIO(newCompleter(t), strings.NewReader(input), &out, 2, 20, limit)
	require.NoError(t, h.Start(context.Background()))
	return out.String()
}

func TestREPLCompletes(t *testing.T) {
	out := run(t, "Where is\n\n", 5)
	assert.Contains(t, out, "2 completions for 'Where is'")
	assert.Contains(t, out, " 1. Where is my parcel?")
	assert.Contains(t, out, " 2. Where is the store?")
	assert.NotContains(t, out, "> ", "no prompt without a terminal")
}

func TestREPLValidation(t *testing.T) {
	out := run(t, "W\n"+strings.Repeat("x", 21)+"\nZebra\n", 5)
	assert.Contains(t, out, "prefix too short (min 2 characters)")
	assert.Contains(t, out, "prefix too long (max 20 characters)")
	assert.Contains(t, out, "no completions for 'Zebra'")
}

func TestREPLCommands(t *testing.T) {
	out := run(t, ":stats\n:quit\nWhere\n", 5)
	assert.Contains(t, out, "sentences")
	assert.NotContains(t, out, "completions for 'Where'", "input after :quit is ignored")
}

func TestREPLLimit(t *testing.T) {
	out := run(t, "Where\n", 1)
	assert.Contains(t, out, "1 completions for 'Where'")
	assert.NotContains(t, out, "the store")
}

func TestFit(t *testing.T) {
	h := &InputHandler{width: 20}
	assert.Equal(t, "short", h.fit("short"))
	got := h.fit("a sentence that is much too long")
	assert.Equal(t, 15, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}
