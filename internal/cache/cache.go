// Package cache memoizes computed reports in process.
package cache

import (
	"context"
	"time"
)

// Cache is the subset of LRU behavior the services depend on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Purge()
	CleanExpired() int
	Stats() Stats
}

// Stats counts lookups since the cache was created.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

// Cleaner is anything holding entries that can expire.
type Cleaner interface {
	CleanExpired() int
}

// RunCleanup drops expired entries from every cleaner on each tick until ctx
// is done. onClean, when set, receives the number of entries removed by a
// tick that removed any.
func RunCleanup(ctx context.Context, interval time.Duration, onClean func(int), cleaners ...Cleaner) {
	if interval <= 0 || len(cleaners) == 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			total := 0
			for _, c := range cleaners {
				total += c.CleanExpired()
			}
			if total > 0 && onClean != nil {
				onClean(total)
			}
		case <-ctx.Done():
			return
		}
	}
}
