package domain

import "context"

// Cache is the shared key-value collaborator (Redis in production,
// miniredis in tests). Values go through JSON unless the raw variants are
// used. Keys scans a glob pattern; the sync job uses it to discover which
// properties already have cached content.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	GetRaw(ctx context.Context, key string) (string, bool, error)
	SetRaw(ctx context.Context, key, v string, ttlSec int) error
	Del(ctx context.Context, key string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// InventoryClient is the authorized upstream surface the services consume.
type InventoryClient interface {
	// ListCities returns the geography snapshot for one country.
	ListCities(ctx context.Context, countryCode string) ([]City, error)

	// GetPropertyContent fetches the full content payload for one property.
	GetPropertyContent(ctx context.Context, propertyID int64) (PropertyContent, error)

	// ListPropertyIDs enumerates bookable property ids in a city.
	ListPropertyIDs(ctx context.Context, cityID int64) ([]int64, error)

	// SearchRoomStays runs one batched pricing query over many properties.
	SearchRoomStays(ctx context.Context, propertyIDs []int64, stay StayQuery) ([]RoomStayOffer, error)

	// PropertyRoomStays lists available room stays for one property using
	// the lightweight parameterized query shape.
	PropertyRoomStays(ctx context.Context, propertyID int64, stay StayQuery) ([]RoomStayOffer, error)

	// PropertyRoomStaysSearch is the richer-body alternate shape, used when
	// the lightweight call fails at the transport level.
	PropertyRoomStaysSearch(ctx context.Context, propertyID int64, stay StayQuery) ([]RoomStayOffer, error)
}
