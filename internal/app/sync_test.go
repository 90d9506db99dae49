package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nayzeok/tourist-tour-back/internal/app"
	"github.com/nayzeok/tourist-tour-back/internal/domain"
)

type fakeWarmer struct {
	mu   sync.Mutex
	urls []string
}

func (w *fakeWarmer) Warm(ctx context.Context, url string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.urls = append(w.urls, url)
	return nil
}

func newSyncer(inv *fakeInventory, cache *fakeCache, warmer app.ImageWarmer) (*app.Syncer, *app.ContentService) {
	content := app.NewContentService(inv, cache, 24*time.Hour, 7*24*time.Hour, 10)
	geo := app.NewGeoService(inv, cache, 48*time.Hour)
	return app.NewSyncer(content, geo, warmer, []string{"RU"}, 24*time.Hour, 2, time.Millisecond, 1), content
}

func TestRunOnce_RefreshesEveryCachedProperty(t *testing.T) {
	inv := newFakeInventory()
	inv.cities = []domain.City{{ID: 5, Name: "Казань", Country: "RU"}}
	for id := int64(1); id <= 3; id++ {
		inv.content[id] = contentFor(id, "H")
	}
	cache := newFakeCache()
	warmer := &fakeWarmer{}
	syncer, content := newSyncer(inv, cache, warmer)
	ctx := context.Background()

	// seed the cache so the scan has properties to discover
	for id := int64(1); id <= 3; id++ {
		if _, err := content.Get(ctx, id, false); err != nil {
			t.Fatalf("seed %d: %v", id, err)
		}
	}

	if err := syncer.RunOnce(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	// one seed fetch + one forced refresh per property
	for id := int64(1); id <= 3; id++ {
		if got := inv.contentCalls[id]; got != 2 {
			t.Fatalf("property %d: expected 2 fetches, got %d", id, got)
		}
	}
	if inv.citiesCalls != 1 {
		t.Fatalf("geography refresh expected once, got %d", inv.citiesCalls)
	}
	// first image of each property pre-warmed
	warmer.mu.Lock()
	defer warmer.mu.Unlock()
	if len(warmer.urls) != 3 {
		t.Fatalf("expected 3 pre-warmed images, got %v", warmer.urls)
	}
}

func TestRunOnce_PerItemFailureDoesNotAbortRun(t *testing.T) {
	inv := newFakeInventory()
	inv.content[1] = contentFor(1, "A")
	inv.content[2] = contentFor(2, "B")
	cache := newFakeCache()
	syncer, content := newSyncer(inv, cache, &fakeWarmer{})
	ctx := context.Background()

	for id := int64(1); id <= 2; id++ {
		if _, err := content.Get(ctx, id, false); err != nil {
			t.Fatalf("seed %d: %v", id, err)
		}
	}
	// make one property fail on its forced refresh; served stale, counted,
	// but the run continues
	delete(inv.content, 1)
	inv.contentErr[1] = context.DeadlineExceeded

	if err := syncer.RunOnce(ctx); err != nil {
		t.Fatalf("run must not fail on a per-item error: %v", err)
	}
	if got := inv.contentCalls[2]; got != 2 {
		t.Fatalf("healthy property skipped: %d fetches", got)
	}
}

func TestRunOnce_ConcurrentTriggerIsNoOp(t *testing.T) {
	inv := newFakeInventory()
	inv.cities = []domain.City{{ID: 5, Name: "Казань", Country: "RU"}}
	inv.gate = make(chan struct{}) // hold the first run open
	cache := newFakeCache()
	syncer, _ := newSyncer(inv, cache, &fakeWarmer{})

	done := make(chan error, 1)
	go func() { done <- syncer.RunOnce(context.Background()) }()

	// wait until the first run is inside the geography refresh
	deadline := time.After(2 * time.Second)
	for {
		inv.mu.Lock()
		started := inv.citiesCalls > 0
		inv.mu.Unlock()
		if started {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first run never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// second trigger while the first is running
	if err := syncer.RunOnce(context.Background()); err != nil {
		t.Fatalf("overlapping trigger must be a no-op, got %v", err)
	}
	inv.mu.Lock()
	calls := inv.citiesCalls
	inv.mu.Unlock()
	if calls != 1 {
		t.Fatalf("overlapping trigger issued upstream calls: %d", calls)
	}

	close(inv.gate)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}
