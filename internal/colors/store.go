package colors

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourorg/staking-dashboard/internal/errs"
	"github.com/yourorg/staking-dashboard/internal/model"
)

// StorageKey is the single key the color map lives under, both in the JSON
// file backend and in Redis.
const StorageKey = "wallet-colors"

// Storage persists the wallet color map. Load returns an empty map (not an
// error) when nothing has been stored yet.
type Storage interface {
	Load() (model.ColorMap, error)
	Save(model.ColorMap) error
}

// FileStore keeps the color map in a local JSON file, the backend used when
// no Redis address is configured.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed storage at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the color map from disk. A missing file means a fresh start;
// unreadable or corrupt content is a storage error and the caller starts
// empty.
func (f *FileStore) Load() (model.ColorMap, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.ColorMap{}, nil
		}
		return model.ColorMap{}, errs.New(errs.KindStorage, "colors.FileStore.Load", err)
	}

	var state map[string]model.ColorMap
	if err := json.Unmarshal(data, &state); err != nil {
		return model.ColorMap{}, errs.New(errs.KindStorage, "colors.FileStore.Load", err)
	}
	if state[StorageKey] == nil {
		return model.ColorMap{}, nil
	}
	return state[StorageKey], nil
}

// Save writes the color map to disk.
func (f *FileStore) Save(m model.ColorMap) error {
	data, err := json.Marshal(map[string]model.ColorMap{StorageKey: m})
	if err != nil {
		return errs.New(errs.KindStorage, "colors.FileStore.Save", err)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return errs.New(errs.KindStorage, "colors.FileStore.Save", err)
	}
	return nil
}

// RedisStore keeps the color map under a single Redis key, for deployments
// that share the preference across instances.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisStore creates a Redis-backed storage using the given client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, timeout: 2 * time.Second}
}

// Load fetches and decodes the stored map; a missing key means fresh start.
func (r *RedisStore) Load() (model.ColorMap, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	data, err := r.client.Get(ctx, StorageKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.ColorMap{}, nil
		}
		return model.ColorMap{}, errs.New(errs.KindStorage, "colors.RedisStore.Load", err)
	}

	var m model.ColorMap
	if err := json.Unmarshal(data, &m); err != nil {
		return model.ColorMap{}, errs.New(errs.KindStorage, "colors.RedisStore.Load", err)
	}
	if m == nil {
		m = model.ColorMap{}
	}
	return m, nil
}

// Save serialises and stores the map without expiry.
func (r *RedisStore) Save(m model.ColorMap) error {
	data, err := json.Marshal(m)
	if err != nil {
		return errs.New(errs.KindStorage, "colors.RedisStore.Save", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, StorageKey, data, 0).Err(); err != nil {
		return errs.New(errs.KindStorage, "colors.RedisStore.Save", err)
	}
	return nil
}
