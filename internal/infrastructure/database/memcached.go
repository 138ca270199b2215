package database

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// NewMemcached returns a client for the shared listing cache. An empty server
// list yields nil so callers can run with the local cache only.
func NewMemcached(servers ...string) *memcache.Client {
	if len(servers) == 0 || servers[0] == "" {
		return nil
	}
	mc := memcache.New(servers...)
	mc.Timeout = 200 * time.Millisecond
	return mc
}
