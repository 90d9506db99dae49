package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nayzeok/tourist-tour-back/internal/app"
	"github.com/nayzeok/tourist-tour-back/internal/domain"
)

func TestCheapest_FirstMinimumWins(t *testing.T) {
	inv := newFakeInventory()
	inv.searchFn = func(ids []int64, stay domain.StayQuery) ([]domain.RoomStayOffer, error) {
		return []domain.RoomStayOffer{
			offer(1, 100, "cs-a"),
			offer(1, 90, "cs-b"),
			offer(1, 90, "cs-c"),
		}, nil
	}
	agg := app.NewSearchAggregator(inv, 200)

	best, err := agg.CheapestByPropertyIDs(context.Background(), []int64{1}, testStay())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	got, ok := best[1]
	if !ok {
		t.Fatal("no offer for property 1")
	}
	if got.Checksum != "cs-b" {
		t.Fatalf("expected first occurrence of the minimum (cs-b), got %s", got.Checksum)
	}
}

func TestCheapest_PreTaxPreferredOverPostTax(t *testing.T) {
	inv := newFakeInventory()
	a := offer(1, 0, "cs-posttax")
	a.PriceBeforeTax = nil
	a.PriceAfterTax = pf(80)
	b := offer(1, 85, "cs-pretax")
	inv.searchFn = func(ids []int64, stay domain.StayQuery) ([]domain.RoomStayOffer, error) {
		return []domain.RoomStayOffer{b, a}, nil
	}
	agg := app.NewSearchAggregator(inv, 200)

	best, _ := agg.CheapestByPropertyIDs(context.Background(), []int64{1}, testStay())
	if best[1].Checksum != "cs-posttax" {
		t.Fatalf("expected the cheaper post-tax offer to win, got %s", best[1].Checksum)
	}
}

func TestCheapest_UnpricedOfferNeverBeatsPriced(t *testing.T) {
	inv := newFakeInventory()
	unpriced := offer(1, 0, "cs-unpriced")
	unpriced.PriceBeforeTax = nil
	unpriced.PriceAfterTax = nil
	inv.searchFn = func(ids []int64, stay domain.StayQuery) ([]domain.RoomStayOffer, error) {
		return []domain.RoomStayOffer{unpriced, offer(1, 500, "cs-priced")}, nil
	}
	agg := app.NewSearchAggregator(inv, 200)

	best, _ := agg.CheapestByPropertyIDs(context.Background(), []int64{1}, testStay())
	if best[1].Checksum != "cs-priced" {
		t.Fatalf("expected priced offer, got %s", best[1].Checksum)
	}
}

func TestCheapest_ChunkFailureIsolated(t *testing.T) {
	inv := newFakeInventory()
	call := 0
	inv.searchFn = func(ids []int64, stay domain.StayQuery) ([]domain.RoomStayOffer, error) {
		call++
		if call == 1 {
			return nil, errors.New("chunk exploded")
		}
		out := make([]domain.RoomStayOffer, 0, len(ids))
		for _, id := range ids {
			out = append(out, offer(id, 100*float64(id), "cs"))
		}
		return out, nil
	}
	agg := app.NewSearchAggregator(inv, 2)

	best, err := agg.CheapestByPropertyIDs(context.Background(), []int64{1, 2, 3, 4}, testStay())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if inv.searchCalls != 2 {
		t.Fatalf("expected 2 chunk calls, got %d", inv.searchCalls)
	}
	if len(best) != 2 {
		t.Fatalf("expected offers only from the surviving chunk, got %v", best)
	}
	if _, ok := best[3]; !ok {
		t.Fatal("property 3 missing from surviving chunk")
	}
}
