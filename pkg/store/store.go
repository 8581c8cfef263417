/*
Package store persists trie snapshots so a server can start without rebuilding
from the corpus.

Snapshots are msgpack encoded. FileStore keeps one file on disk and RedisStore
keeps one key in Redis. Both validate the arena on Load through
trie.FromSnapshot, so a damaged snapshot surfaces as trie.ErrCorruptSnapshot.
*/
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bastiangx/sentserve/pkg/trie"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned by Load when no snapshot has been saved.
var ErrNotFound = errors.New("store: snapshot not found")

// Store saves and loads trie snapshots.
type Store interface {
	Save(ctx context.Context, s *trie.Snapshot) error
	Load(ctx context.Context) (*trie.Snapshot, error)
}

// Encode serializes a snapshot to msgpack.
func Encode(s *trie.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses msgpack bytes into a snapshot. It does not validate the arena.
func Decode(data []byte) (*trie.Snapshot, error) {
	var s trie.Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", trie.ErrCorruptSnapshot, err)
	}
	return &s, nil
}

// LoadTrie loads a snapshot from st and rebuilds the trie.
func LoadTrie(ctx context.Context, st Store) (*trie.Trie, error) {
	snap, err := st.Load(ctx)
	if err != nil {
		return nil, err
	}
	return trie.FromSnapshot(snap)
}

// SaveTrie stores a snapshot of t.
func SaveTrie(ctx context.Context, st Store, t *trie.Trie) error {
	return st.Save(ctx, t.Snapshot())
}

// BuildFunc builds a fresh trie, usually from the corpus.
type BuildFunc func(ctx context.Context) (*trie.Trie, error)

// LoadOrBuild returns the stored trie when one exists. Otherwise it calls build
// and saves the result. loaded reports which path was taken. A failed save is
// logged and does not fail the call.
func LoadOrBuild(ctx context.Context, st Store, build BuildFunc) (t *trie.Trie, loaded bool, err error) {
	start := time.Now()
	t, err = LoadTrie(ctx, st)
	switch {
	case err == nil:
		log.Debugf("Loaded trie snapshot: %d sentences in [ %v ]", t.Len(), time.Since(start))
		return t, true, nil
	case errors.Is(err, ErrNotFound):
		log.Debug("No trie snapshot found, building from corpus")
	case errors.Is(err, trie.ErrCorruptSnapshot):
		log.Warnf("Ignoring corrupt snapshot: %v", err)
	default:
		return nil, false, err
	}

	t, err = build(ctx)
	if err != nil {
		return nil, false, err
	}
	if err := SaveTrie(ctx, st, t); err != nil {
		log.Warnf("Failed to save trie snapshot: %v", err)
	}
	return t, false, nil
}
