package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// RedisStore persists checkpoints to Redis so several processes can share
// threads. Each checkpoint is a JSON string; a sorted set per thread
// indexes steps and a global sorted set records thread creation order.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	closed atomic.Bool
}

// putScript writes a checkpoint and its index entries in one step. The
// checkpoint key is written last and never overwritten, so a failed or
// repeated put leaves no unindexed checkpoint behind.
//
// KEYS: checkpoint, thread steps, threads. ARGV: data, ttl ms, step,
// creation score, thread ID.
var putScript = backend.NewScript(`
	if redis.call("exists", KEYS[1]) == 1 then
		return 0
	end
	local ttl = tonumber(ARGV[2])
	redis.call("zadd", KEYS[3], "NX", ARGV[4], ARGV[5])
	redis.call("zadd", KEYS[2], ARGV[3], ARGV[3])
	if ttl > 0 then
		redis.call("pexpire", KEYS[2], ttl)
		redis.call("set", KEYS[1], ARGV[1], "PX", ttl)
	else
		redis.call("set", KEYS[1], ARGV[1])
	end
	return 1
`)

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL expires a thread's checkpoints ttl after its last write.
// Zero (the default) keeps checkpoints forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix. Default: "stategraph:".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore connects to the Redis server at address.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(rdb, opts...)
}

// NewRedisStoreFromClient creates a store on an existing client.
// Close closes the client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		prefix: "stategraph:",
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *RedisStore) key(threadID string, step int) string {
	return s.prefix + "cp:" + threadID + ":" + strconv.Itoa(step)
}

func (s *RedisStore) stepsKey(threadID string) string {
	return s.prefix + "steps:" + threadID
}

func (s *RedisStore) threadsKey() string {
	return s.prefix + "threads"
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, cp *Checkpoint) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}

	data, err := cp.Marshal()
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	keys := []string{s.key(cp.ThreadID, cp.Step), s.stepsKey(cp.ThreadID), s.threadsKey()}
	created, err := putScript.Run(ctx, s.client, keys,
		data, s.ttl.Milliseconds(), cp.Step, time.Now().UnixNano(), cp.ThreadID).Int()
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	if created == 0 {
		return fmt.Errorf("%w: thread %s step %d", ErrConflict, cp.ThreadID, cp.Step)
	}
	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, threadID string, step int) (*Checkpoint, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	data, err := s.client.Get(ctx, s.key(threadID, step)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return Unmarshal(data)
}

// Latest implements Store.
func (s *RedisStore) Latest(ctx context.Context, threadID string) (*Checkpoint, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	steps, err := s.client.ZRevRange(ctx, s.stepsKey(threadID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("load latest step: %w", err)
	}
	if len(steps) == 0 {
		return nil, ErrNotFound
	}
	step, err := strconv.Atoi(steps[0])
	if err != nil {
		return nil, fmt.Errorf("parse step %q: %w", steps[0], err)
	}
	return s.Get(ctx, threadID, step)
}

// List implements Store.
func (s *RedisStore) List(ctx context.Context, threadID string) ([]Info, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	threads := []string{threadID}
	if threadID == "" {
		var err error
		threads, err = s.client.ZRange(ctx, s.threadsKey(), 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("list threads: %w", err)
		}
	}

	infos := []Info{}
	for _, id := range threads {
		steps, err := s.client.ZRange(ctx, s.stepsKey(id), 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("list checkpoints: %w", err)
		}
		if len(steps) == 0 {
			continue
		}

		keys := make([]string, len(steps))
		for i, step := range steps {
			keys[i] = s.prefix + "cp:" + id + ":" + step
		}
		values, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("load checkpoints: %w", err)
		}

		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				// Expired between the index read and the fetch.
				continue
			}
			cp, err := Unmarshal([]byte(raw))
			if err != nil {
				return nil, fmt.Errorf("decode checkpoint %s: %w", keys[i], err)
			}
			infos = append(infos, cp.Info(int64(len(raw))))
		}
	}

	return infos, nil
}

// DeleteThread implements Store.
func (s *RedisStore) DeleteThread(ctx context.Context, threadID string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}

	steps, err := s.client.ZRange(ctx, s.stepsKey(threadID), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("list checkpoints: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, step := range steps {
		pipe.Del(ctx, s.prefix+"cp:"+threadID+":"+step)
	}
	pipe.Del(ctx, s.stepsKey(threadID))
	pipe.ZRem(ctx, s.threadsKey(), threadID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete thread checkpoints: %w", err)
	}
	return nil
}

// Close closes the redis client. Closing twice is a no-op.
func (s *RedisStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.client.Close()
}
