package server

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func encodeRequests(t *testing.T, reqs ...any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	for _, r := range reqs {
		require.NoError(t, enc.Encode(r))
	}
	return &buf
}

func intPtr(n int) *int { return &n }

func TestIPCComplete(t *testing.T) {
	in := encodeRequests(t,
		CompletionRequest{ID: "req_001", Prefix: "How can", Limit: intPtr(5)},
		CompletionRequest{ID: "req_002", Prefix: "Zebra"},
		CompletionRequest{ID: "req_003", Prefix: "H"},
	)
	var out bytes.Buffer
	s := NewIPCServer(testCompleter(t), testServerConfig(), in, &out)
	require.NoError(t, s.Start(context.Background()))

	dec := msgpack.NewDecoder(&out)

	var first CompletionResponse
	require.NoError(t, dec.Decode(&first))
	assert.Equal(t, "req_001", first.ID)
	assert.Equal(t, []string{"How can I help you today?", "How can I help?"}, first.Suggestions)
	assert.Equal(t, 2, first.Count)
	assert.Equal(t, "trie", first.Source)

	var miss CompletionResponse
	require.NoError(t, dec.Decode(&miss))
	assert.Equal(t, "req_002", miss.ID)
	assert.Empty(t, miss.Suggestions)
	assert.Equal(t, "none", miss.Source)

	var def CompletionResponse
	require.NoError(t, dec.Decode(&def))
	assert.Len(t, def.Suggestions, 2, "default limit applies when l is absent")

	var rest CompletionResponse
	assert.ErrorIs(t, dec.Decode(&rest), io.EOF)
}

func TestIPCErrorsAndActions(t *testing.T) {
	in := encodeRequests(t,
		CompletionRequest{ID: "e1"},
		CompletionRequest{ID: "e2", Prefix: "How", Limit: intPtr(-3)},
		map[string]any{"id": "e3", "p": 42},
		CompletionRequest{ID: "a1", Action: "health"},
		CompletionRequest{ID: "a2", Action: "stats"},
		CompletionRequest{ID: "a3", Action: "reticulate"},
	)
	var out bytes.Buffer
	s := NewIPCServer(testCompleter(t), testServerConfig(), in, &out)
	require.NoError(t, s.Start(context.Background()))

	dec := msgpack.NewDecoder(&out)
	for _, id := range []string{"e1", "e2"} {
		var e CompletionError
		require.NoError(t, dec.Decode(&e))
		assert.Equal(t, id, e.ID)
		assert.Equal(t, 400, e.Code)
		assert.NotEmpty(t, e.Error)
	}

	var bad CompletionError
	require.NoError(t, dec.Decode(&bad))
	assert.Equal(t, "Invalid msgpack request", bad.Error)

	var health StatusResponse
	require.NoError(t, dec.Decode(&health))
	assert.Equal(t, StatusResponse{ID: "a1", Status: "ok"}, health)

	var stats StatusResponse
	require.NoError(t, dec.Decode(&stats))
	assert.Equal(t, len(sentences), stats.Stats["sentences"])

	var unknown CompletionError
	require.NoError(t, dec.Decode(&unknown))
	assert.Equal(t, "a3", unknown.ID)
	assert.Contains(t, unknown.Error, "reticulate")
}

func TestIPCCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewIPCServer(testCompleter(t), testServerConfig(), bytes.NewReader(nil), io.Discard)
	assert.ErrorIs(t, s.Start(ctx), context.Canceled)
}

func TestLimitsResolve(t *testing.T) {
	l := Limits{MaxLimit: 10, DefaultLimit: 4, MinPrefix: 2, MaxPrefix: 5}

	n, err := l.resolve("héllo", -1)
	require.NoError(t, err)
	assert.Equal(t, 4, n, "prefix length counts runes")

	n, err = l.resolve("ab", 99)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = l.resolve("a", 1)
	assert.ErrorIs(t, err, ErrPrefixLength)
	_, err = l.resolve("abcdef", 1)
	assert.ErrorIs(t, err, ErrPrefixLength)
}
