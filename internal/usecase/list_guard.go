package usecase

import (
	"context"
	"sync"
)

// listGuard orders read-through fills against invalidations. A fill started
// before an invalidation is dropped instead of restoring the old listing.
type listGuard struct {
	mu          sync.Mutex
	generations map[string]uint64
}

func (g *listGuard) generation(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generations[key]
}

// fill stores value unless key was invalidated after gen was taken.
func (g *listGuard) fill(ctx context.Context, cache ListCache, key string, gen uint64, value any) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.generations[key] != gen {
		return false, nil
	}
	return true, cache.Set(ctx, key, value)
}

func (g *listGuard) invalidate(ctx context.Context, cache ListCache, key string) error {
	g.mu.Lock()
	if g.generations == nil {
		g.generations = map[string]uint64{}
	}
	g.generations[key]++
	g.mu.Unlock()

	return cache.Delete(ctx, key)
}
