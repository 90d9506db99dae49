package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nayzeok/tourist-tour-back/internal/domain"
)

// ---- fakes shared by the app tests ----

type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{store: map[string][]byte{}} }

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	b, ok := c.store[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.store[key] = b
	c.mu.Unlock()
	return nil
}

func (c *fakeCache) GetRaw(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	return string(b), ok, nil
}

func (c *fakeCache) SetRaw(ctx context.Context, key, v string, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = []byte(v)
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

func (c *fakeCache) Keys(ctx context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []string
	for k := range c.store {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

type fakeInventory struct {
	mu sync.Mutex

	cities       []domain.City
	citiesErr    error
	citiesCalls  int
	propertyIDs  map[int64][]int64
	content      map[int64]domain.PropertyContent
	contentErr   map[int64]error
	contentCalls map[int64]int

	searchFn    func(ids []int64, stay domain.StayQuery) ([]domain.RoomStayOffer, error)
	searchCalls int

	roomStaysFn          func(id int64, stay domain.StayQuery) ([]domain.RoomStayOffer, error)
	roomStaysCalls       int
	roomStaysSearchFn    func(id int64, stay domain.StayQuery) ([]domain.RoomStayOffer, error)
	roomStaysSearchCalls int

	gate chan struct{} // when set, content fetches block until closed
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{
		propertyIDs:  map[int64][]int64{},
		content:      map[int64]domain.PropertyContent{},
		contentErr:   map[int64]error{},
		contentCalls: map[int64]int{},
	}
}

func (f *fakeInventory) ListCities(ctx context.Context, country string) ([]domain.City, error) {
	f.mu.Lock()
	f.citiesCalls++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.cities, f.citiesErr
}

func (f *fakeInventory) GetPropertyContent(ctx context.Context, id int64) (domain.PropertyContent, error) {
	f.mu.Lock()
	f.contentCalls[id]++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err := f.contentErr[id]; err != nil {
		return domain.PropertyContent{}, err
	}
	c, ok := f.content[id]
	if !ok {
		return domain.PropertyContent{}, fmt.Errorf("no content for %d", id)
	}
	return c, nil
}

func (f *fakeInventory) ListPropertyIDs(ctx context.Context, cityID int64) ([]int64, error) {
	return f.propertyIDs[cityID], nil
}

func (f *fakeInventory) SearchRoomStays(ctx context.Context, ids []int64, stay domain.StayQuery) ([]domain.RoomStayOffer, error) {
	f.mu.Lock()
	f.searchCalls++
	f.mu.Unlock()
	if f.searchFn == nil {
		return nil, nil
	}
	return f.searchFn(ids, stay)
}

func (f *fakeInventory) PropertyRoomStays(ctx context.Context, id int64, stay domain.StayQuery) ([]domain.RoomStayOffer, error) {
	f.mu.Lock()
	f.roomStaysCalls++
	f.mu.Unlock()
	if f.roomStaysFn == nil {
		return nil, nil
	}
	return f.roomStaysFn(id, stay)
}

func (f *fakeInventory) PropertyRoomStaysSearch(ctx context.Context, id int64, stay domain.StayQuery) ([]domain.RoomStayOffer, error) {
	f.mu.Lock()
	f.roomStaysSearchCalls++
	f.mu.Unlock()
	if f.roomStaysSearchFn == nil {
		return nil, nil
	}
	return f.roomStaysSearchFn(id, stay)
}

// ---- small builders ----

func pf(f float64) *float64 { return &f }

func testStay() domain.StayQuery {
	return domain.StayQuery{
		Arrival:   time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		Departure: time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
		Adults:    2,
		Currency:  "RUB",
	}
}

func offer(propertyID int64, total float64, checksum string) domain.RoomStayOffer {
	return domain.RoomStayOffer{
		PropertyID:     propertyID,
		RoomTypeID:     "rt-1",
		RoomTypeName:   "Стандарт",
		RatePlanID:     "rp-1",
		PriceBeforeTax: pf(total),
		Currency:       "RUB",
		Available:      3,
		Checksum:       checksum,
	}
}

func contentFor(id int64, name string) domain.PropertyContent {
	return domain.PropertyContent{
		ID:      id,
		Name:    name,
		Stars:   4,
		Address: domain.Address{Line: "ул. Ленина, 1", City: "Казань"},
		Images:  []string{"https://cdn.example.com/" + name + ".jpg"},
		RoomTypes: []domain.RoomTypeContent{
			{ID: "rt-1", Name: "Стандарт", Images: []string{"https://cdn.example.com/rt1.jpg"}},
		},
	}
}
