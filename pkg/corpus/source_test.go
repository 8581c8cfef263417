package corpus

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

const dialogueJSON = `{
  "Issues": [
    {"Messages": [
      {"Text": "Hi. What is your order number?"},
      {"Text": "  "},
      {"Text": "It is 1234"}
    ]},
    {"Messages": [
      {"Text": "Thanks for contacting us!"}
    ]}
  ]
}`

// splits on ". " only
type dotSplitter struct{}

func (dotSplitter) Split(text string) []string {
	parts := strings.SplitAfter(text, ". ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDialogueSource(t *testing.T) {
	path := writeFile(t, t.TempDir(), "chats.json", dialogueJSON)

	src := &DialogueSource{Path: path, Segmenter: dotSplitter{}}
	got, err := src.Sentences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Hi. What is your order number?",
		"Hi.",
		"What is your order number?",
		"It is 1234",
		"Thanks for contacting us!",
	}, got)

	plain := &DialogueSource{Path: path}
	got, err = plain.Sentences(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestDialogueSourceBadJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.json", `{"Issues": [`)
	_, err := (&DialogueSource{Path: path}).Sentences(context.Background())
	assert.Error(t, err)
}

func TestPunktSegmenter(t *testing.T) {
	seg, err := NewPunktSegmenter()
	require.NoError(t, err)

	got := seg.Split("Hello there. How can I help you today?")
	assert.Equal(t, []string{"Hello there.", "How can I help you today?"}, got)
	assert.Empty(t, seg.Split("   "))
}

func TestTextSource(t *testing.T) {
	path := writeFile(t, t.TempDir(), "lines.txt", "first line\n\n  second line  \r\nthird\n")
	got, err := (&TextSource{Path: path}).Sentences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first line", "second line", "third"}, got)
}

func TestSQLSource(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE messages (id INTEGER PRIMARY KEY, text TEXT)`)
	require.NoError(t, err)
	for _, text := range []any{"Where is my parcel?", nil, "  ", "Can I get a refund?"} {
		_, err = db.Exec(`INSERT INTO messages (text) VALUES (?)`, text)
		require.NoError(t, err)
	}

	src := &SQLSource{DB: db, Query: `SELECT text FROM messages ORDER BY id`}
	got, err := src.Sentences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Where is my parcel?", "Can I get a refund?"}, got)

	_, err = (&SQLSource{DB: db, Query: `SELECT nope FROM missing`}).Sentences(context.Background())
	assert.Error(t, err)
}

type failingSource struct{ err error }

func (f failingSource) Sentences(context.Context) ([]string, error) { return nil, f.err }

func TestLoadAll(t *testing.T) {
	got, err := LoadAll(context.Background(),
		Static{"a", " b ", ""},
		Static{"c"},
		Static{},
		Static{"d", "e"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got)

	boom := errors.New("disk on fire")
	_, err = LoadAll(context.Background(), Static{"a"}, failingSource{boom})
	assert.ErrorIs(t, err, boom)
}

func TestFileSourceAndDetect(t *testing.T) {
	dir := t.TempDir()
	jsonPath := writeFile(t, dir, "a.json", dialogueJSON)
	txtPath := writeFile(t, dir, "b.txt", "one\n")
	snapPath := writeFile(t, dir, "trie.msgpack", "\x80")
	emptyPath := writeFile(t, dir, "empty.txt", "")
	writeFile(t, dir, "notes.md", "# ignored")

	format, err := DetectFileFormat(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, FormatDialogue, format)

	src, err := FileSource(jsonPath, nil)
	require.NoError(t, err)
	assert.IsType(t, &DialogueSource{}, src)

	src, err = FileSource(txtPath, nil)
	require.NoError(t, err)
	assert.IsType(t, &TextSource{}, src)

	_, err = FileSource(snapPath, nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = DetectFileFormat(emptyPath)
	assert.Error(t, err, "empty files are rejected")

	_, err = DetectFileFormat(filepath.Join(dir, "notes.md"))
	assert.Error(t, err)

	files, err := FindCorpusFiles([]string{dir, txtPath})
	require.NoError(t, err)
	assert.Equal(t, []string{jsonPath, txtPath, emptyPath, txtPath}, files)
}
