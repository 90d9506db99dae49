package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/nayzeok/tourist-tour-back/internal/app"
	"github.com/nayzeok/tourist-tour-back/internal/domain"
)

func newListing(inv *fakeInventory) *app.ListingService {
	cache := newFakeCache()
	content := app.NewContentService(inv, cache, 24*time.Hour, 7*24*time.Hour, 10)
	search := app.NewSearchAggregator(inv, 200)
	dedup := app.NewDeduplicator(inv, cache, 5*time.Minute)
	return app.NewListingService(inv, content, search, dedup, app.NewOfferBuilder(nil))
}

func TestCardsForCity_PropertyWithoutOfferSilentlyOmitted(t *testing.T) {
	inv := newFakeInventory()
	inv.propertyIDs[100] = []int64{1, 2}
	inv.content[1] = contentFor(1, "Волга")
	inv.content[2] = contentFor(2, "Ривьера")
	inv.searchFn = func(ids []int64, stay domain.StayQuery) ([]domain.RoomStayOffer, error) {
		// only P1 has availability for these dates
		return []domain.RoomStayOffer{offer(1, 10000, "cs-1")}, nil
	}

	cards, err := newListing(inv).CardsForCity(context.Background(), 100, testStay())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected exactly one card, got %d", len(cards))
	}
	if cards[0].PropertyID != 1 || cards[0].PerNight != 5000 {
		t.Fatalf("unexpected card: %+v", cards[0])
	}
}

func TestOfferPage_EndToEnd(t *testing.T) {
	inv := newFakeInventory()
	inv.content[1] = contentFor(1, "Волга")
	inv.roomStaysFn = func(id int64, stay domain.StayQuery) ([]domain.RoomStayOffer, error) {
		return []domain.RoomStayOffer{
			offer(id, 4000, "cs-a"),
			offer(id, 6000, "cs-b"),
		}, nil
	}

	page, err := newListing(inv).OfferPage(context.Background(), 1, testStay())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(page.Offers) != 2 {
		t.Fatalf("expected two offers, got %d", len(page.Offers))
	}
	if page.Offers[0].PerNight != 2000 || page.Offers[1].PerNight != 3000 {
		t.Fatalf("per-night values wrong: %+v", page.Offers)
	}
	if page.Header.MinPrice != 2000 {
		t.Fatalf("header min price wrong: %v", page.Header.MinPrice)
	}
}
