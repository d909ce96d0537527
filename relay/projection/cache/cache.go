// Package cache memoizes rendered projection views keyed on platform content
// version. Values put into a cache are treated as immutable: they are
// marshaled into responses, never written to. Clock and decision substates
// must not be stored here, the host overlays those on every response.
package cache

import (
	"context"
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opencensus.io/trace"
)

// ErrAlreadyInProgress is returned by MarkInProgress when another computation
// for the same key is running.
var ErrAlreadyInProgress = errors.New("already a computation in progress")

const defaultSize = 20

// Delay parameters for waiting out an in-progress computation.
var (
	minDelay    = float64(10)        // 10 nanoseconds
	maxDelay    = float64(100000000) // 0.1 second
	delayFactor = 1.1
)

var (
	viewCacheHit = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projection_cache_hit_total",
		Help: "The total number of projection cache hits, per projection.",
	}, []string{"projection"})
	viewCacheMiss = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projection_cache_miss_total",
		Help: "The total number of projection cache misses, per projection.",
	}, []string{"projection"})
)

// Every cache registers itself here so one operational call can drop all
// memoized views at once, for example after a translation reload.
var (
	registryLock sync.Mutex
	registry     []*ViewCache
)

// ClearAll evicts every entry from every registered cache.
func ClearAll() {
	registryLock.Lock()
	defer registryLock.Unlock()
	for _, c := range registry {
		c.Clear()
	}
}

// ViewCache memoizes one projection's rendered output.
type ViewCache struct {
	lru                         *lru.Cache[string, interface{}]
	promCacheHit, promCacheMiss prometheus.Counter

	lock       sync.RWMutex
	inProgress map[string]bool
}

// NewViewCache creates a cache for one projection and registers it for
// ClearAll.
func NewViewCache(projection string, size int) (*ViewCache, error) {
	if size < 1 {
		size = defaultSize
	}
	c, err := lru.New[string, interface{}](size)
	if err != nil {
		return nil, err
	}
	vc := &ViewCache{
		lru:           c,
		promCacheHit:  viewCacheHit.WithLabelValues(projection),
		promCacheMiss: viewCacheMiss.WithLabelValues(projection),
		inProgress:    make(map[string]bool),
	}
	registryLock.Lock()
	registry = append(registry, vc)
	registryLock.Unlock()
	return vc, nil
}

// Get waits for any in progress computation of the same key to complete
// before returning the cached view, or nil on a miss.
func (c *ViewCache) Get(ctx context.Context, key string) (interface{}, error) {
	ctx, span := trace.StartSpan(ctx, "viewCache.Get")
	defer span.End()

	delay := minDelay
	inProgress := false
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.lock.RLock()
		if !c.inProgress[key] {
			c.lock.RUnlock()
			break
		}
		inProgress = true
		c.lock.RUnlock()

		// Increasing backoff while waiting for the in progress flag to flip.
		time.Sleep(time.Duration(delay) * time.Nanosecond)
		delay *= delayFactor
		delay = math.Min(delay, maxDelay)
	}
	span.AddAttributes(trace.BoolAttribute("inProgress", inProgress))

	if v, ok := c.lru.Get(key); ok {
		c.promCacheHit.Inc()
		span.AddAttributes(trace.BoolAttribute("hit", true))
		return v, nil
	}
	c.promCacheMiss.Inc()
	span.AddAttributes(trace.BoolAttribute("hit", false))
	return nil, nil
}

// MarkInProgress flags a key so identical requests block on Get until
// MarkNotInProgress is called.
func (c *ViewCache) MarkInProgress(key string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.inProgress[key] {
		return ErrAlreadyInProgress
	}
	c.inProgress[key] = true
	return nil
}

// MarkNotInProgress releases a key flagged by MarkInProgress.
func (c *ViewCache) MarkNotInProgress(key string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.inProgress, key)
}

// Put stores a rendered view.
func (c *ViewCache) Put(key string, view interface{}) {
	c.lru.Add(key, view)
}

// Clear drops every cached view.
func (c *ViewCache) Clear() {
	c.lru.Purge()
}

// Len returns the number of cached views.
func (c *ViewCache) Len() int {
	return c.lru.Len()
}
