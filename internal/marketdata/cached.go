package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/crosscheck/internal/metrics"
	"github.com/yourusername/crosscheck/internal/models"
)

// barsCacheKey represents a unique key for caching bar series
type barsCacheKey struct {
	Ticker    string
	StartDate string
	EndDate   string
}

// String returns string representation of cache key
func (k barsCacheKey) String() string {
	return fmt.Sprintf("bars:%s:%s:%s", k.Ticker, k.StartDate, k.EndDate)
}

// CachedProvider wraps a Provider with an in-memory TTL cache for bar series.
// Cache hits are re-tagged with cache provenance so downstream consumers can
// tell the two apart. Quotes are never cached; a stale quote is worse than no
// quote.
type CachedProvider struct {
	inner   Provider
	cache   *cache.Cache
	ttl     time.Duration
	maxSize int

	mu        sync.RWMutex
	hitCount  uint64
	missCount uint64
}

// NewCachedProvider creates a caching wrapper around a provider
func NewCachedProvider(inner Provider, ttl time.Duration, maxSize int) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// FetchDailyBars returns cached bars when available, fetching on miss
func (cp *CachedProvider) FetchDailyBars(ctx context.Context, ticker string, startDate, endDate time.Time) (*models.BarSeries, error) {
	key := barsCacheKey{
		Ticker:    ticker,
		StartDate: startDate.Format("2006-01-02"),
		EndDate:   endDate.Format("2006-01-02"),
	}

	if series := cp.get(key); series != nil {
		cp.publishHitRatio()
		return series, nil
	}
	cp.publishHitRatio()

	series, err := cp.inner.FetchDailyBars(ctx, ticker, startDate, endDate)
	if err != nil {
		return nil, err
	}

	cp.set(key, series)
	return series, nil
}

// FetchQuote delegates to the wrapped provider
func (cp *CachedProvider) FetchQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	return cp.inner.FetchQuote(ctx, ticker)
}

// Name returns the wrapped provider name
func (cp *CachedProvider) Name() string {
	return cp.inner.Name()
}

// IsEnabled returns whether the wrapped provider is enabled
func (cp *CachedProvider) IsEnabled() bool {
	return cp.inner.IsEnabled()
}

func (cp *CachedProvider) get(key barsCacheKey) *models.BarSeries {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if entry, found := cp.cache.Get(key.String()); found {
		if series, ok := entry.(*models.BarSeries); ok {
			cp.hitCount++
			// Copy so the cached original keeps provider provenance
			hit := &models.BarSeries{
				Ticker: series.Ticker,
				Bars:   series.Bars,
				Source: models.ProvenanceCache,
			}
			return hit
		}
	}

	cp.missCount++
	return nil
}

// publishHitRatio pushes the current hit ratio to the metrics gauge.
func (cp *CachedProvider) publishHitRatio() {
	_, _, ratio := cp.Stats()
	metrics.UpdateBarCacheHitRatio(ratio)
}

func (cp *CachedProvider) set(key barsCacheKey, series *models.BarSeries) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cp.cache.ItemCount() >= cp.maxSize {
		cp.cache.DeleteExpired()
	}

	cp.cache.Set(key.String(), series, cp.ttl)
}

// Stats returns cache statistics
func (cp *CachedProvider) Stats() (hits, misses uint64, ratio float64) {
	cp.mu.RLock()
	defer cp.mu.RUnlock()

	hits = cp.hitCount
	misses = cp.missCount
	total := hits + misses
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// Clear flushes the entire cache
func (cp *CachedProvider) Clear() {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	cp.cache.Flush()
	cp.hitCount = 0
	cp.missCount = 0
}
