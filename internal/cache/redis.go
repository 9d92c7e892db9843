package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// putScript inserts into the entries hash and the order list in one step.
// KEYS[1] hash, KEYS[2] list; ARGV[1] field, ARGV[2] value, ARGV[3] capacity.
var putScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
  redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
  return 0
end
local cap = tonumber(ARGV[3])
local evicted = 0
while redis.call('LLEN', KEYS[2]) >= cap do
  local oldest = redis.call('LPOP', KEYS[2])
  if not oldest then break end
  redis.call('HDEL', KEYS[1], oldest)
  evicted = evicted + 1
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('RPUSH', KEYS[2], ARGV[1])
return evicted
`)

// Redis is a FIFO cache shared by every process pointed at the same server.
type Redis struct {
	client   *redis.Client
	capacity int
	hashKey  string
	listKey  string
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// NewRedis connects to url and checks the connection. Keys live under prefix.
func NewRedis(ctx context.Context, url, prefix string, capacity int) (*Redis, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}
	return newRedis(client, prefix, capacity), nil
}

func newRedis(client *redis.Client, prefix string, capacity int) *Redis {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if prefix == "" {
		prefix = "mcq"
	}
	return &Redis{
		client:   client,
		capacity: capacity,
		hashKey:  prefix + ":entries",
		listKey:  prefix + ":order",
	}
}

func (r *Redis) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := r.client.HGet(ctx, r.hashKey, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading cache entry: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decoding cache entry: %w", err)
	}
	return e, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := putScript.Run(ctx, r.client, []string{r.hashKey, r.listKey}, key, raw, r.capacity).Err(); err != nil {
		return fmt.Errorf("storing cache entry: %w", err)
	}
	return nil
}

func (r *Redis) Len(ctx context.Context) (int, error) {
	n, err := r.client.HLen(ctx, r.hashKey).Result()
	if err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return int(n), nil
}

// Clear removes every entry under the prefix.
func (r *Redis) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.hashKey, r.listKey).Err()
}

// Close shuts down the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
