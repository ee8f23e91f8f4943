package config

import (
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/lock"
)

// Backend is an opened checkpoint store together with the thread locker
// that matches it.
type Backend struct {
	Store  checkpoint.Store
	Locker lock.Locker
}

// Close releases the store.
func (b *Backend) Close() error {
	return b.Store.Close()
}

// Open opens the configured checkpoint backend. The redis backend shares
// one client between the store and a Redis thread locker so several
// processes can serve the same threads; the others lock in-process.
func (c Config) Open() (*Backend, error) {
	switch c.Store.Backend {
	case BackendMemory:
		return &Backend{Store: checkpoint.NewMemoryStore(), Locker: lock.NewLocal()}, nil
	case BackendSQLite:
		store, err := checkpoint.NewSQLiteStore(c.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: store, Locker: lock.NewLocal()}, nil
	case BackendRedis:
		client := backend.NewClient(&backend.Options{
			Addr:     c.Store.RedisAddr,
			Password: c.Store.RedisPassword,
			DB:       c.Store.RedisDB,
		})
		var opts []checkpoint.RedisOption
		if c.Store.RedisTTL > 0 {
			opts = append(opts, checkpoint.WithTTL(c.Store.RedisTTL))
		}
		if c.Store.RedisPrefix != "" {
			opts = append(opts, checkpoint.WithPrefix(c.Store.RedisPrefix))
		}
		return &Backend{
			Store:  checkpoint.NewRedisStoreFromClient(client, opts...),
			Locker: lock.NewRedis(client, lock.WithLockPrefix(c.Store.RedisPrefix+"lock:")),
		}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
}
