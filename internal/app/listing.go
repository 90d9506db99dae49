package app

import (
	"context"

	"github.com/nayzeok/tourist-tour-back/internal/domain"
)

// ListingService glues the read path together: city → property ids →
// content batch + cheapest-offer index → cards, and the per-property
// offer page through the deduplicated pricing fetch.
type ListingService struct {
	api     domain.InventoryClient
	content *ContentService
	search  *SearchAggregator
	dedup   *Deduplicator
	builder *OfferBuilder
}

func NewListingService(api domain.InventoryClient, content *ContentService, search *SearchAggregator, dedup *Deduplicator, builder *OfferBuilder) *ListingService {
	return &ListingService{api: api, content: content, search: search, dedup: dedup, builder: builder}
}

// CardsForCity builds the city listing. Properties that lack content or a
// priced offer for the requested stay are silently excluded.
func (s *ListingService) CardsForCity(ctx context.Context, cityID int64, stay domain.StayQuery) ([]domain.PropertyCard, error) {
	ids, err := s.api.ListPropertyIDs(ctx, cityID)
	if err != nil {
		return nil, err
	}
	contents := s.content.GetMany(ctx, ids)
	cheapest, err := s.search.CheapestByPropertyIDs(ctx, ids, stay)
	if err != nil {
		return nil, err
	}
	return s.builder.Cards(contents, cheapest, stay), nil
}

// OfferPage builds the offer page for one property. Content may come back
// stale; pricing goes through the deduplicator.
func (s *ListingService) OfferPage(ctx context.Context, propertyID int64, stay domain.StayQuery) (domain.OfferPage, error) {
	res, err := s.content.Get(ctx, propertyID, false)
	if err != nil {
		return domain.OfferPage{}, err
	}
	offers, err := s.dedup.RoomStays(ctx, propertyID, stay)
	if err != nil {
		return domain.OfferPage{}, err
	}
	return s.builder.Page(res.Content, offers, stay), nil
}
