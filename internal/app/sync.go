package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nayzeok/tourist-tour-back/internal/adapters/observability"
)

// ImageWarmer pre-fetches one remote image into the local image cache.
type ImageWarmer interface {
	Warm(ctx context.Context, url string) error
}

// Syncer keeps the caches warm: on a fixed schedule it refreshes the
// geography snapshot, force-refreshes every property with cached content
// in small paced batches, and pre-warms the image cache. A run that is
// triggered while another is in progress is a logged no-op.
type Syncer struct {
	content   *ContentService
	geo       *GeoService
	images    ImageWarmer
	countries []string

	interval  time.Duration
	batch     int
	pause     time.Duration
	imagesPer int

	running atomic.Bool
}

func NewSyncer(content *ContentService, geo *GeoService, images ImageWarmer, countries []string, interval time.Duration, batch int, pause time.Duration, imagesPer int) *Syncer {
	if batch <= 0 {
		batch = 5
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Syncer{
		content:   content,
		geo:       geo,
		images:    images,
		countries: countries,
		interval:  interval,
		batch:     batch,
		pause:     pause,
		imagesPer: imagesPer,
	}
}

// Run blocks, triggering a sync every interval until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.RunOnce(ctx); err != nil {
				log.Error().Err(err).Msg("scheduled sync failed")
			}
		}
	}
}

// RunOnce performs one sync pass. Per-item failures are counted and
// logged, never fatal; the in-progress guard clears on every exit path.
func (s *Syncer) RunOnce(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		log.Info().Msg("sync already in progress, trigger ignored")
		observability.SyncRuns.WithLabelValues("skipped").Inc()
		return nil
	}
	defer s.running.Store(false)

	start := time.Now()
	var failures int

	for _, country := range s.countries {
		if _, err := s.geo.Refresh(ctx, country); err != nil {
			failures++
			observability.SyncItemFailures.Inc()
			log.Warn().Err(err).Str("country", country).Msg("geography refresh failed")
		}
	}

	ids, err := s.content.CachedPropertyIDs(ctx)
	if err != nil {
		observability.SyncRuns.WithLabelValues("error").Inc()
		return err
	}

	refreshed := 0
	for batchStart := 0; batchStart < len(ids); batchStart += s.batch {
		if ctx.Err() != nil {
			break
		}
		end := batchStart + s.batch
		if end > len(ids) {
			end = len(ids)
		}

		var (
			wg sync.WaitGroup
			mu sync.Mutex
		)
		for _, id := range ids[batchStart:end] {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				res, err := s.content.Get(ctx, id, true)
				if err != nil || res.Stale() {
					mu.Lock()
					failures++
					mu.Unlock()
					observability.SyncItemFailures.Inc()
					log.Warn().Err(err).Int64("property", id).Msg("content refresh failed")
					return
				}
				mu.Lock()
				refreshed++
				mu.Unlock()
				s.warmImages(ctx, res.Content.Images)
			}(id)
		}
		wg.Wait()

		// pace the upstream between batches
		if end < len(ids) && s.pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.pause):
			}
		}
	}

	observability.SyncRuns.WithLabelValues("ok").Inc()
	log.Info().
		Int("properties", len(ids)).
		Int("refreshed", refreshed).
		Int("failures", failures).
		Dur("took", time.Since(start)).
		Msg("sync completed")
	return nil
}

// warmImages opportunistically caches the first few images; failures are
// skipped, not surfaced.
func (s *Syncer) warmImages(ctx context.Context, urls []string) {
	if s.images == nil {
		return
	}
	n := s.imagesPer
	if n <= 0 {
		return
	}
	if n > len(urls) {
		n = len(urls)
	}
	for _, u := range urls[:n] {
		if err := s.images.Warm(ctx, u); err != nil {
			log.Debug().Err(err).Str("url", u).Msg("image pre-warm skipped")
		}
	}
}
