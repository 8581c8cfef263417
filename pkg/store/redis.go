package store

import (
	"context"
	"fmt"

	"github.com/bastiangx/sentserve/pkg/trie"
	"github.com/charmbracelet/log"
	"github.com/go-redis/redis"
)

// DefaultRedisKey is the key snapshots are stored under when none is set.
const DefaultRedisKey = "sentserve:snapshot"

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisStore keeps the snapshot as msgpack bytes under a single key.
type RedisStore struct {
	conn *redis.Client
	key  string
}

// NewRedisStore connects to Redis. The connection is lazy; errors show up on
// the first Save or Load.
func NewRedisStore(opts RedisOptions) *RedisStore {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:6379"
	}
	if opts.Key == "" {
		opts.Key = DefaultRedisKey
	}
	client := redis.NewClient(&redis.Options{
		Network:      "tcp",
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     4,
		MinIdleConns: 1,
	})
	return &RedisStore{conn: client, key: opts.Key}
}

// Save writes the snapshot under the store key with no expiry.
func (r *RedisStore) Save(ctx context.Context, s *trie.Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := r.conn.WithContext(ctx).Set(r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot to redis key %s: %w", r.key, err)
	}
	log.Debugf("Saved snapshot (%d bytes) to redis key %s", len(data), r.key)
	return nil
}

// Load reads the snapshot. A missing key gives ErrNotFound.
func (r *RedisStore) Load(ctx context.Context) (*trie.Snapshot, error) {
	data, err := r.conn.WithContext(ctx).Get(r.key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot from redis key %s: %w", r.key, err)
	}
	return Decode(data)
}

// Close releases the connection pool.
func (r *RedisStore) Close() error {
	return r.conn.Close()
}
