package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/nayzeok/tourist-tour-back/internal/adapters/observability"
	"github.com/nayzeok/tourist-tour-back/internal/domain"
)

const pricingKeyPrefix = "pricing:"

type cachedOffers struct {
	Offers []domain.RoomStayOffer `json:"offers"`
}

// Deduplicator coalesces identical concurrent pricing lookups for a single
// property. A short-TTL cached result is served directly; otherwise
// late callers attach to the in-flight fetch and share its outcome. The
// in-flight registry entry is removed when the fetch settles, success or
// not, so the next call starts fresh.
type Deduplicator struct {
	api   domain.InventoryClient
	cache domain.Cache
	ttl   time.Duration
	sf    singleflight.Group
}

func NewDeduplicator(api domain.InventoryClient, cache domain.Cache, ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Deduplicator{api: api, cache: cache, ttl: ttl}
}

func (d *Deduplicator) RoomStays(ctx context.Context, propertyID int64, stay domain.StayQuery) ([]domain.RoomStayOffer, error) {
	fp := stay.Fingerprint(propertyID)
	key := pricingKeyPrefix + fp

	var hit cachedOffers
	if ok, err := d.cache.Get(ctx, key, &hit); err == nil && ok {
		observability.CoalescedCalls.WithLabelValues("cache").Inc()
		return hit.Offers, nil
	}

	leader := false
	v, err, shared := d.sf.Do(fp, func() (any, error) {
		leader = true
		offers, err := d.fetch(ctx, propertyID, stay)
		if err != nil {
			return nil, err
		}
		if cerr := d.cache.Set(ctx, key, cachedOffers{Offers: offers}, int(d.ttl.Seconds())); cerr != nil {
			log.Warn().Err(cerr).Str("fingerprint", fp).Msg("pricing cache write failed")
		}
		return offers, nil
	})
	// shared is true for the leader too; only followers avoided a call
	if shared && !leader {
		observability.CoalescedCalls.WithLabelValues("inflight").Inc()
	}
	if err != nil {
		return nil, err
	}
	return v.([]domain.RoomStayOffer), nil
}

// fetch tries the lightweight parameterized query first and falls back to
// the richer search shape only when the first call dies at the transport
// level. An upstream-reported failure or an empty result is final.
func (d *Deduplicator) fetch(ctx context.Context, propertyID int64, stay domain.StayQuery) ([]domain.RoomStayOffer, error) {
	offers, err := d.api.PropertyRoomStays(ctx, propertyID, stay)
	if err == nil {
		return offers, nil
	}
	if !transportLevel(err) {
		return nil, err
	}
	log.Warn().Err(err).Int64("property", propertyID).Msg("room-stays call failed in transit, trying search shape")
	offers, ferr := d.api.PropertyRoomStaysSearch(ctx, propertyID, stay)
	if ferr != nil {
		return nil, fmt.Errorf("%w: property %d: %v", domain.ErrPricingUnavailable, propertyID, ferr)
	}
	return offers, nil
}

// transportLevel reports whether err looks like a network failure rather
// than an answer the upstream actually gave.
func transportLevel(err error) bool {
	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		return false
	}
	if errors.Is(err, domain.ErrUpstreamAuth) || errors.Is(err, domain.ErrAuthUnavailable) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
