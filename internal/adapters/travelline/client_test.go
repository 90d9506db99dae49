package travelline_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nayzeok/tourist-tour-back/internal/adapters/travelline"
	"github.com/nayzeok/tourist-tour-back/internal/domain"
)

func newTestClient(t *testing.T, apiURL string) (*travelline.Client, *int32) {
	t.Helper()
	var tokenHits int32
	ts := httptest.NewServer(tokenEndpoint(&tokenHits, 3600))
	t.Cleanup(ts.Close)

	tm, err := travelline.NewTokenManager(ts.URL, "client-1", "secret-1", 2*time.Minute, newSharedCache(t))
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	cl, err := travelline.NewClient(apiURL, tm, 100) // high rps for tests
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return cl, &tokenHits
}

func stay() domain.StayQuery {
	return domain.StayQuery{
		Arrival:   time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		Departure: time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
		Adults:    2,
		Currency:  "RUB",
	}
}

func TestClient_RefreshAndReplayOn401(t *testing.T) {
	var apiHits int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&apiHits, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"roomStays": []map[string]any{{"propertyId": 7.0, "checksum": "cs-1"}},
		})
	}))
	defer api.Close()

	cl, tokenHits := newTestClient(t, api.URL)
	offers, err := cl.PropertyRoomStays(context.Background(), 7, stay())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(offers) != 1 || offers[0].PropertyID != 7 || offers[0].Checksum != "cs-1" {
		t.Fatalf("unexpected offers: %+v", offers)
	}
	if got := atomic.LoadInt32(&apiHits); got != 2 {
		t.Fatalf("expected exactly one replay, got %d api calls", got)
	}
	// initial grant + one forced refresh
	if got := atomic.LoadInt32(tokenHits); got != 2 {
		t.Fatalf("expected 2 token requests, got %d", got)
	}
}

func TestClient_SecondAuthFailureSurfaces(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer api.Close()

	cl, _ := newTestClient(t, api.URL)
	_, err := cl.GetPropertyContent(context.Background(), 7)
	if !errors.Is(err, domain.ErrUpstreamAuth) {
		t.Fatalf("expected ErrUpstreamAuth, got %v", err)
	}
}

func TestClient_UpstreamErrorCarriesMessages(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"arrivalDate is in the past"}]}`))
	}))
	defer api.Close()

	cl, _ := newTestClient(t, api.URL)
	_, err := cl.SearchRoomStays(context.Background(), []int64{1, 2}, stay())
	var ue *domain.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Status != 400 || len(ue.Messages) != 1 || ue.Messages[0] != "arrivalDate is in the past" {
		t.Fatalf("unexpected error detail: %+v", ue)
	}
}

func TestClient_RetriesTransient5xx(t *testing.T) {
	var apiHits int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&apiHits, 1) {
		case 1, 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"id": 5.0, "name": "Казань", "countryCode": "ru"},
			})
		}
	}))
	defer api.Close()

	cl, _ := newTestClient(t, api.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cities, err := cl.ListCities(ctx, "RU")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(cities) != 1 || cities[0].Name != "Казань" || cities[0].Country != "RU" {
		t.Fatalf("unexpected cities: %+v", cities)
	}
	if atomic.LoadInt32(&apiHits) < 3 {
		t.Fatalf("expected retries before success, got %d calls", apiHits)
	}
}

func TestClient_SearchRequestBody(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			PropertyIDs   []int64 `json:"propertyIds"`
			ArrivalDate   string  `json:"arrivalDate"`
			DepartureDate string  `json:"departureDate"`
			Adults        int     `json:"adults"`
			Currency      string  `json:"currency"`
			PriceRange    *struct {
				Min float64 `json:"min"`
				Max float64 `json:"max"`
			} `json:"priceRange"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if len(req.PropertyIDs) != 2 || req.ArrivalDate != "2026-09-10" ||
			req.DepartureDate != "2026-09-12" || req.Adults != 2 ||
			req.Currency != "RUB" || req.PriceRange == nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"roomStays": []any{}})
	}))
	defer api.Close()

	cl, _ := newTestClient(t, api.URL)
	offers, err := cl.SearchRoomStays(context.Background(), []int64{1, 2}, stay())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(offers) != 0 {
		t.Fatalf("expected empty result, got %+v", offers)
	}
}
