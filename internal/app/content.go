package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/nayzeok/tourist-tour-back/internal/adapters/observability"
	"github.com/nayzeok/tourist-tour-back/internal/domain"
)

const contentKeyPrefix = "content:"

func contentKey(id int64) string { return contentKeyPrefix + strconv.FormatInt(id, 10) }

// contentEntry is the cached shape. The redis TTL is the retention window;
// freshness is judged against FetchedAt, so an entry can outlive its
// freshness and still back the stale-on-error fallback.
type contentEntry struct {
	Content   domain.PropertyContent `json:"content"`
	FetchedAt time.Time              `json:"fetchedAt"`
}

// ContentService caches slow-changing property content with a stale-on-error
// fallback: a failed refresh serves the previous value marked stale instead
// of failing, as long as any previous value exists.
type ContentService struct {
	api       domain.InventoryClient
	cache     domain.Cache
	ttl       time.Duration
	retention time.Duration
	fetchWin  int64
}

func NewContentService(api domain.InventoryClient, cache domain.Cache, ttl, retention time.Duration, fetchWindow int) *ContentService {
	if fetchWindow <= 0 {
		fetchWindow = 10
	}
	if retention < ttl {
		retention = ttl
	}
	return &ContentService{api: api, cache: cache, ttl: ttl, retention: retention, fetchWin: int64(fetchWindow)}
}

// Get returns content for one property. refresh forces an upstream fetch
// even when a fresh cached entry exists.
func (s *ContentService) Get(ctx context.Context, id int64, refresh bool) (domain.ContentResult, error) {
	key := contentKey(id)
	var ent contentEntry
	ok, err := s.cache.Get(ctx, key, &ent)
	if err != nil {
		log.Warn().Err(err).Int64("property", id).Msg("content cache read failed")
		ok = false
	}
	if ok && !refresh && time.Since(ent.FetchedAt) < s.ttl {
		observability.ObserveCache("content", "hit")
		return domain.ContentResult{Content: ent.Content, Origin: domain.OriginCache, FetchedAt: ent.FetchedAt}, nil
	}

	fetched, ferr := s.api.GetPropertyContent(ctx, id)
	if ferr != nil {
		if ok {
			// degraded but available beats hard failure
			observability.ObserveCache("content", "stale")
			log.Warn().Err(ferr).Int64("property", id).Msg("content fetch failed, serving stale")
			return domain.ContentResult{Content: ent.Content, Origin: domain.OriginStale, FetchedAt: ent.FetchedAt}, nil
		}
		observability.ObserveCache("content", "miss")
		return domain.ContentResult{}, fmt.Errorf("%w: property %d: %v", domain.ErrContentUnavailable, id, ferr)
	}

	now := time.Now()
	if err := s.cache.Set(ctx, key, contentEntry{Content: fetched, FetchedAt: now}, int(s.retention.Seconds())); err != nil {
		log.Warn().Err(err).Int64("property", id).Msg("content cache write failed")
	}
	return domain.ContentResult{Content: fetched, Origin: domain.OriginFetched, FetchedAt: now}, nil
}

// GetMany hydrates content for a batch of ids: cached-fresh entries are
// served directly, misses are fetched under a bounded concurrency window.
// An id whose fetch fails is omitted from the result, never fatal.
func (s *ContentService) GetMany(ctx context.Context, ids []int64) map[int64]domain.ContentResult {
	out := make(map[int64]domain.ContentResult, len(ids))
	var misses []int64
	for _, id := range ids {
		var ent contentEntry
		ok, err := s.cache.Get(ctx, contentKey(id), &ent)
		if err == nil && ok && time.Since(ent.FetchedAt) < s.ttl {
			observability.ObserveCache("content", "hit")
			out[id] = domain.ContentResult{Content: ent.Content, Origin: domain.OriginCache, FetchedAt: ent.FetchedAt}
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return out
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = semaphore.NewWeighted(s.fetchWin)
	)
	for _, id := range misses {
		if err := sem.Acquire(ctx, 1); err != nil {
			break // context gone; return what we have
		}
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			defer sem.Release(1)
			res, err := s.Get(ctx, id, false)
			if err != nil {
				log.Warn().Err(err).Int64("property", id).Msg("content hydration miss")
				return
			}
			mu.Lock()
			out[id] = res
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return out
}

// CachedPropertyIDs enumerates every property that currently has cached
// content. The sync job uses it to know what to refresh.
func (s *ContentService) CachedPropertyIDs(ctx context.Context) ([]int64, error) {
	keys, err := s.cache.Keys(ctx, contentKeyPrefix+"*")
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(keys))
	for _, k := range keys {
		id, err := strconv.ParseInt(strings.TrimPrefix(k, contentKeyPrefix), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
