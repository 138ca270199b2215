package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

const keyPrefix = "steelart:list:"

// ListCache keeps rendered collection listings in process memory and, when a
// memcached client is configured, in memcached shared by every instance.
// Delete clears memcached and the local copy of the calling instance only;
// other instances keep theirs until EvictLocal or LocalTTL.
type ListCache struct {
	local  *cache.Cache
	mc     *memcache.Client
	ttl    time.Duration
	remote int32
}

type Options struct {
	LocalTTL  time.Duration
	RemoteTTL time.Duration
}

// New returns a ListCache. mc may be nil.
func New(mc *memcache.Client, opts Options) *ListCache {
	if opts.LocalTTL <= 0 {
		opts.LocalTTL = 5 * time.Second
	}
	if opts.RemoteTTL <= 0 {
		opts.RemoteTTL = time.Minute
	}
	return &ListCache{
		local:  cache.New(opts.LocalTTL, 2*opts.LocalTTL),
		mc:     mc,
		ttl:    opts.LocalTTL,
		remote: int32(opts.RemoteTTL / time.Second),
	}
}

func (c *ListCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if raw, ok := c.local.Get(key); ok {
		return true, json.Unmarshal(raw.([]byte), dst)
	}

	if c.mc == nil {
		return false, nil
	}

	item, err := c.mc.Get(keyPrefix + key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "memcache get")
	}

	if err := json.Unmarshal(item.Value, dst); err != nil {
		return false, errors.Wrap(err, "decode cached listing")
	}
	c.local.Set(key, item.Value, c.ttl)
	return true, nil
}

func (c *ListCache) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "encode listing")
	}

	c.local.Set(key, raw, c.ttl)

	if c.mc == nil {
		return nil
	}
	err = c.mc.Set(&memcache.Item{Key: keyPrefix + key, Value: raw, Expiration: c.remote})
	return errors.Wrap(err, "memcache set")
}

func (c *ListCache) Delete(ctx context.Context, key string) error {
	c.local.Delete(key)

	if c.mc == nil {
		return nil
	}
	err := c.mc.Delete(keyPrefix + key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return errors.Wrap(err, "memcache delete")
}

// EvictLocal drops the in-process copy of key and leaves memcached alone.
func (c *ListCache) EvictLocal(key string) {
	c.local.Delete(key)
}
