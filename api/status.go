package api

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"
)

const latestHeightKey = "latest-height"

// DefaultStatusCacheTTL is used when no positive ttl is configured. ttlcache
// never expires entries with a zero ttl.
const DefaultStatusCacheTTL = 5 * time.Second

type HeightFetcher interface {
	FetchLatestHeight(ctx context.Context) (uint64, error)
}

type ProgressProvider interface {
	LastProcessedHeight() uint64
}

// StatusCache keeps the latest sealed height for a short time so that status
// requests do not hit the access node each time.
type StatusCache struct {
	fetcher      HeightFetcher
	progress     ProgressProvider
	fetchTimeout time.Duration
	heightCache  *ttlcache.Cache[string, uint64]
	heightLock   sync.Mutex
}

func NewStatusCache(fetcher HeightFetcher, progress ProgressProvider, ttl, fetchTimeout time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = DefaultStatusCacheTTL
	}
	return &StatusCache{
		fetcher:      fetcher,
		progress:     progress,
		fetchTimeout: fetchTimeout,
		heightCache: ttlcache.New[string, uint64](
			ttlcache.WithTTL[string, uint64](ttl),
			ttlcache.WithDisableTouchOnHit[string, uint64](),
		),
	}
}

func (s *StatusCache) LastProcessedHeight() uint64 {
	return s.progress.LastProcessedHeight()
}

func (s *StatusCache) LatestHeight(ctx context.Context) (uint64, error) {
	s.heightLock.Lock() // one fetch at a time when the entry expired
	defer s.heightLock.Unlock()

	if item := s.heightCache.Get(latestHeightKey); item != nil {
		return item.Value(), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	height, err := s.fetcher.FetchLatestHeight(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "fetching latest height")
	}
	s.heightCache.Set(latestHeightKey, height, ttlcache.DefaultTTL)
	return height, nil
}
