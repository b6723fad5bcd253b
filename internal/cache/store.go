package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a JSON cache over Redis. A nil Store, or one without a client,
// misses every lookup and ignores writes.
type Store struct {
	rdb *redis.Client
}

// NewStore wraps rdb.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) enabled() bool {
	return s != nil && s.rdb != nil
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !s.enabled() {
		return false, nil
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !s.enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, b, ttl).Err()
}

// Delete removes keys.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if !s.enabled() || len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

// Aside tries Redis first and on a miss calls fetch, which must populate dest,
// then stores dest with ttl. Cache errors never fail the read.
func (s *Store) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if found, err := s.GetJSON(ctx, key, dest); err == nil && found {
		return nil
	}
	if err := fetch(); err != nil {
		return err
	}
	_ = s.SetJSON(ctx, key, dest, ttl)
	return nil
}

// Generation returns the current generation of a view path, zero when the
// path was never invalidated.
func (s *Store) Generation(ctx context.Context, path string) (int64, error) {
	if !s.enabled() {
		return 0, nil
	}
	raw, err := s.rdb.Get(ctx, generationKey(path)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

// BumpGenerations advances the generation of every path in one round trip
// and returns the new generations in order.
func (s *Store) BumpGenerations(ctx context.Context, paths ...string) ([]int64, error) {
	if !s.enabled() || len(paths) == 0 {
		return nil, nil
	}
	cmds := make([]*redis.IntCmd, len(paths))
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, p := range paths {
			cmds[i] = pipe.Incr(ctx, generationKey(p))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	gens := make([]int64, len(cmds))
	for i, cmd := range cmds {
		gens[i] = cmd.Val()
	}
	return gens, nil
}

// View serves the data of a view path through Aside, keyed by the path's
// current generation. A fill computed before an invalidation lands under the
// old generation, so it is never read back once the generation has moved.
func (s *Store) View(ctx context.Context, path string, dest any, fetch func() error) error {
	gen, err := s.Generation(ctx, path)
	if err != nil {
		return fetch()
	}
	return s.Aside(ctx, ViewKey(path, gen), dest, ViewTTL, fetch)
}
