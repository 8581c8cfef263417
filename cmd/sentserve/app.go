package main

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bastiangx/sentserve/internal/utils"
	"github.com/bastiangx/sentserve/pkg/config"
	"github.com/bastiangx/sentserve/pkg/corpus"
	"github.com/bastiangx/sentserve/pkg/fallback"
	"github.com/bastiangx/sentserve/pkg/store"
	"github.com/bastiangx/sentserve/pkg/suggest"
	"github.com/bastiangx/sentserve/pkg/trie"
	"github.com/charmbracelet/log"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// app holds everything a command needs after config is loaded.
type app struct {
	cfg     *config.Config
	cfgPath string
	store   store.Store
	closers []func() error
}

// loadApp reads config, resolves paths and opens the snapshot store.
func loadApp(path string) (*app, error) {
	cfg, usedPath, err := config.LoadConfigWithPriority(path)
	if err != nil {
		return nil, err
	}
	if usedPath != "" {
		cfg.ResolvePaths(filepath.Dir(usedPath))
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(usedPath))

	a := &app{cfg: cfg, cfgPath: usedPath}
	switch strings.ToLower(cfg.Store.Backend) {
	case "", "none":
	case "file":
		a.store = store.NewFileStore(cfg.Store.Path)
	case "redis":
		rs := store.NewRedisStore(store.RedisOptions{
			Addr: cfg.Store.RedisAddr,
			DB:   cfg.Store.RedisDB,
			Key:  cfg.Store.RedisKey,
		})
		a.store = rs
		a.closers = append(a.closers, rs.Close)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Warnf("Close failed: %v", err)
		}
	}
}

// sources turns the corpus config into sources. The returned cleanup closes any
// database handle.
func (a *app) sources() ([]corpus.Source, func(), error) {
	var seg corpus.Segmenter
	if a.cfg.Corpus.SplitSentences {
		p, err := corpus.NewPunktSegmenter()
		if err != nil {
			return nil, nil, err
		}
		seg = p
	}

	paths := make([]string, 0, len(a.cfg.Corpus.Paths))
	for _, p := range a.cfg.Corpus.Paths {
		if !utils.FileExists(p) {
			log.Warnf("Corpus path %s not found", p)
			continue
		}
		paths = append(paths, p)
	}
	files, err := corpus.FindCorpusFiles(paths)
	if err != nil {
		return nil, nil, err
	}
	srcs := make([]corpus.Source, 0, len(files)+1)
	for _, f := range files {
		src, err := corpus.FileSource(f, seg)
		if err != nil {
			log.Warnf("Skipping corpus file: %v", err)
			continue
		}
		srcs = append(srcs, src)
	}

	cleanup := func() {}
	if a.cfg.Corpus.SQLDriver != "" {
		db, err := sql.Open(a.cfg.Corpus.SQLDriver, a.cfg.Corpus.SQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open corpus database: %w", err)
		}
		srcs = append(srcs, &corpus.SQLSource{DB: db, Query: a.cfg.Corpus.SQLQuery})
		cleanup = func() { db.Close() }
	}
	if len(srcs) == 0 {
		log.Warn("No corpus sources found, starting with an empty trie")
	}
	return srcs, cleanup, nil
}

// build constructs a fresh trie from the corpus.
func (a *app) build(ctx context.Context) (*trie.Trie, error) {
	srcs, cleanup, err := a.sources()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	t, stats, err := corpus.BuildTrie(ctx, a.cfg.Trie.MaxSentenceLen, srcs...)
	if err != nil {
		return nil, err
	}
	log.Infof("Built trie from %d sources: %d sentences, %d skipped, took [ %v ]",
		len(srcs), t.Len(), stats.Skipped, stats.Took)
	return t, nil
}

// rebuild builds from the corpus and saves the snapshot when a store is set.
func (a *app) rebuild(ctx context.Context) (*trie.Trie, error) {
	t, err := a.build(ctx)
	if err != nil {
		return nil, err
	}
	if a.store != nil {
		if err := store.SaveTrie(ctx, a.store, t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// loadTrie loads the stored snapshot, building and saving one when missing.
func (a *app) loadTrie(ctx context.Context) (*trie.Trie, error) {
	if a.store == nil {
		return a.build(ctx)
	}
	t, _, err := store.LoadOrBuild(ctx, a.store, a.build)
	return t, err
}

// completer wires the trie and the configured fallback together.
func (a *app) completer(t *trie.Trie) (*suggest.Completer, error) {
	fb := a.cfg.Fallback
	gen, err := fallback.New(fallback.Options{
		Provider: fb.Provider,
		Model:    fb.Model,
		Endpoint: fb.Endpoint,
		APIKey:   fb.APIKey(),
		Timeout:  fb.Timeout,
		MaxChars: fb.MaxChars,
	})
	if err != nil {
		return nil, err
	}

	var opts []suggest.Option
	if gen != nil {
		log.Debugf("Fallback provider: %s", fb.Provider)
		opts = append(opts, suggest.WithFallback(gen), suggest.WithCache(fb.CacheSize))
	}
	return suggest.NewCompleter(t, opts...), nil
}
