package rate

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter es la variante en proceso del fixed window, para despliegues
// de un solo nodo sin redis. Las ventanas vencidas las limpia go-cache.
type MemoryLimiter struct {
	Max    int64
	Window time.Duration

	mu    sync.Mutex
	hits  *gocache.Cache
	clock func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		Max:    int64(max),
		Window: window,
		hits:   gocache.New(window, 2*window),
		clock:  time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.clock().UTC()
	k, start := windowKey("", key, l.Window, now)
	ttl := start.Add(l.Window).Sub(now)

	l.mu.Lock()
	defer l.mu.Unlock()

	var hits int64 = 1
	if v, ok := l.hits.Get(k); ok {
		hits = v.(int64) + 1
	}
	l.hits.Set(k, hits, ttl)
	return decide(hits, l.Max, ttl, l.Window), nil
}
