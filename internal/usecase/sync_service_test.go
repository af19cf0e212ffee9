package usecase

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/scentsync/backend/internal/domain"
)

// fakeCatalog is an in-memory storefront: mutations applied through the
// CatalogAPI surface change its state, so a second run sees the result of
// the first.
type fakeCatalog struct {
	products  []domain.Product
	collects  map[string][]domain.CollectionMembership
	inventory map[string]int

	rejectSetTags bool
	nextCollectID int

	tagWrites     int
	collectWrites int
}

func newFakeCatalog(products []domain.Product) *fakeCatalog {
	return &fakeCatalog{
		products:  products,
		collects:  make(map[string][]domain.CollectionMembership),
		inventory: make(map[string]int),
	}
}

func (f *fakeCatalog) ListAllProducts(ctx context.Context) ([]domain.Product, error) {
	out := make([]domain.Product, len(f.products))
	copy(out, f.products)
	return out, nil
}

func (f *fakeCatalog) SetInventoryLevel(ctx context.Context, inventoryItemID string, quantity int) error {
	f.inventory[inventoryItemID] = quantity
	return nil
}

func (f *fakeCatalog) SetTags(ctx context.Context, productID string, tags []string) error {
	if f.rejectSetTags {
		return fmt.Errorf("%w: status 422", domain.ErrAPIRejected)
	}
	for i := range f.products {
		if f.products[i].ID == productID {
			f.products[i].Tags = tags
			f.tagWrites++
			return nil
		}
	}
	return fmt.Errorf("%w: status 404", domain.ErrAPIRejected)
}

func (f *fakeCatalog) ListCollects(ctx context.Context, productID string) ([]domain.CollectionMembership, error) {
	return f.collects[productID], nil
}

func (f *fakeCatalog) AddCollect(ctx context.Context, productID, collectionID string) error {
	f.nextCollectID++
	f.collects[productID] = append(f.collects[productID], domain.CollectionMembership{
		MembershipID: "c" + strconv.Itoa(f.nextCollectID),
		CollectionID: collectionID,
	})
	f.collectWrites++
	return nil
}

func (f *fakeCatalog) DeleteCollect(ctx context.Context, membershipID string) error {
	for pid, memberships := range f.collects {
		kept := memberships[:0]
		for _, m := range memberships {
			if m.MembershipID != membershipID {
				kept = append(kept, m)
			}
		}
		f.collects[pid] = kept
	}
	f.collectWrites++
	return nil
}

type fakeCache struct {
	entries map[string][]string
	upserts int
}

func (f *fakeCache) GetAll(ctx context.Context) (map[string][]string, error) {
	out := make(map[string][]string, len(f.entries))
	for k, v := range f.entries {
		out[k] = v
	}
	return out, nil
}

func (f *fakeCache) Upsert(ctx context.Context, productID string, tags []string) error {
	if f.entries == nil {
		f.entries = make(map[string][]string)
	}
	f.entries[productID] = tags
	f.upserts++
	return nil
}

type fakeFeed struct {
	rows []domain.FeedRow
}

func (f *fakeFeed) Rows(ctx context.Context) ([]domain.FeedRow, error) {
	return f.rows, nil
}

func testServiceConfig() SyncServiceConfig {
	return SyncServiceConfig{
		PrimaryCollections:   testCollections,
		SecondaryCollections: map[string]string{"men": "201", "bestsellers": "204"},
		ExcludeTitles:        []string{"sample"},
	}
}

func TestSyncServiceRestockRun(t *testing.T) {
	primary := newFakeCatalog([]domain.Product{
		{
			ID:       "1",
			Title:    "Eau de Parfum 149",
			Tags:     []string{"floral"},
			Variants: []domain.Variant{{ID: "v1", InventoryItemID: "inv1"}},
		},
	})
	cache := &fakeCache{entries: map[string][]string{"1": {"male", "bestseller"}}}
	feed := &fakeFeed{rows: []domain.FeedRow{{Number: "149", Count: "4"}}}

	svc := NewSyncService(primary, nil, cache, feed, testServiceConfig())
	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.ProductsMatched != 1 {
		t.Errorf("ProductsMatched = %d, want 1", summary.ProductsMatched)
	}
	if primary.inventory["inv1"] != 4 {
		t.Errorf("inventory[inv1] = %d, want 4", primary.inventory["inv1"])
	}
	wantTags := []string{"floral", "male", "bestseller"}
	if got := primary.products[0].Tags; len(got) != len(wantTags) {
		t.Errorf("tags = %v, want %v", got, wantTags)
	}
	if len(primary.collects["1"]) != 2 {
		t.Errorf("memberships = %v, want men + bestsellers", primary.collects["1"])
	}
	if svc.LastRun() == nil {
		t.Error("LastRun() = nil after a completed run")
	}
}

func TestSyncServiceOutOfStockRun(t *testing.T) {
	primary := newFakeCatalog([]domain.Product{
		{
			ID:       "1",
			Title:    "Eau de Parfum 149",
			Tags:     []string{"floral", "male", "BEST SELLER"},
			Variants: []domain.Variant{{ID: "v1", InventoryItemID: "inv1"}},
		},
	})
	primary.collects["1"] = []domain.CollectionMembership{
		{MembershipID: "m1", CollectionID: "101"},
		{MembershipID: "m2", CollectionID: "104"},
		{MembershipID: "m9", CollectionID: "999"}, // merchant's own, untouchable
	}
	cache := &fakeCache{entries: map[string][]string{"1": {"male", "bestseller"}}}
	feed := &fakeFeed{rows: []domain.FeedRow{{Number: "149", Count: "0"}}}

	svc := NewSyncService(primary, nil, cache, feed, testServiceConfig())
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if primary.inventory["inv1"] != 0 {
		t.Errorf("inventory[inv1] = %d, want 0", primary.inventory["inv1"])
	}
	if got := primary.products[0].Tags; len(got) != 1 || got[0] != "floral" {
		t.Errorf("tags = %v, want [floral]", got)
	}
	remaining := primary.collects["1"]
	if len(remaining) != 1 || remaining[0].MembershipID != "m9" {
		t.Errorf("memberships = %v, want only the merchant's own", remaining)
	}
}

// TestSyncServiceIdempotence runs twice against the same state and expects
// the second run to emit no tag or collection mutations.
func TestSyncServiceIdempotence(t *testing.T) {
	primary := newFakeCatalog([]domain.Product{
		{
			ID:       "1",
			Title:    "Eau de Parfum 149",
			Tags:     []string{"floral"},
			Variants: []domain.Variant{{ID: "v1", InventoryItemID: "inv1"}},
		},
	})
	cache := &fakeCache{entries: map[string][]string{"1": {"male", "bestseller"}}}
	feed := &fakeFeed{rows: []domain.FeedRow{{Number: "149", Count: "4"}}}

	svc := NewSyncService(primary, nil, cache, feed, testServiceConfig())
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	firstTagWrites := primary.tagWrites
	firstCollectWrites := primary.collectWrites

	second, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if primary.tagWrites != firstTagWrites {
		t.Errorf("second run wrote tags (%d -> %d)", firstTagWrites, primary.tagWrites)
	}
	if primary.collectWrites != firstCollectWrites {
		t.Errorf("second run wrote collects (%d -> %d)", firstCollectWrites, primary.collectWrites)
	}
	if second.TagUpdates != 0 || second.CollectionUpdates != 0 {
		t.Errorf("second run summary: tags=%d collections=%d, want 0/0",
			second.TagUpdates, second.CollectionUpdates)
	}
	// Quantity stays an absolute set, re-applied every run.
	if second.InventoryUpdates != 1 {
		t.Errorf("second run InventoryUpdates = %d, want 1", second.InventoryUpdates)
	}
}

func TestSyncServiceBootstrapsCache(t *testing.T) {
	primary := newFakeCatalog([]domain.Product{
		{
			ID:       "1",
			Title:    "Eau de Parfum 149",
			Tags:     []string{"floral", "MALE", "BEST SELLER"},
			Variants: []domain.Variant{{ID: "v1", InventoryItemID: "inv1"}},
		},
	})
	cache := &fakeCache{}
	feed := &fakeFeed{rows: nil}

	svc := NewSyncService(primary, nil, cache, feed, testServiceConfig())
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got, ok := cache.entries["1"]
	if !ok {
		t.Fatal("no cache entry bootstrapped for first-seen product")
	}
	if len(got) != 2 || got[0] != "male" || got[1] != "bestseller" {
		t.Errorf("bootstrapped tags = %v, want [male bestseller]", got)
	}
}

func TestSyncServiceSecondaryStore(t *testing.T) {
	newPrimary := func() *fakeCatalog {
		return newFakeCatalog([]domain.Product{
			{
				ID:       "1",
				Title:    "Eau de Parfum 149",
				Tags:     []string{"floral"},
				Variants: []domain.Variant{{ID: "v1", InventoryItemID: "inv1"}},
			},
		})
	}
	cacheEntries := map[string][]string{"1": {"male"}}
	feed := &fakeFeed{rows: []domain.FeedRow{{Number: "149", Count: "2"}}}

	t.Run("counterpart is reconciled from the primary cache entry", func(t *testing.T) {
		secondary := newFakeCatalog([]domain.Product{
			{
				ID:       "77",
				Title:    "EAU DE PARFUM 149",
				Tags:     []string{"nordic"},
				Variants: []domain.Variant{{ID: "sv1", InventoryItemID: "sinv1"}},
			},
		})
		svc := NewSyncService(newPrimary(), secondary, &fakeCache{entries: cacheEntries}, feed, testServiceConfig())

		summary, err := svc.Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if summary.SecondarySkipped != 0 {
			t.Errorf("SecondarySkipped = %d, want 0", summary.SecondarySkipped)
		}
		if secondary.inventory["sinv1"] != 2 {
			t.Errorf("secondary inventory = %d, want 2", secondary.inventory["sinv1"])
		}
		tags := secondary.products[0].Tags
		if len(tags) != 2 || tags[0] != "nordic" || tags[1] != "male" {
			t.Errorf("secondary tags = %v, want [nordic male]", tags)
		}
		memberships := secondary.collects["77"]
		if len(memberships) != 1 || memberships[0].CollectionID != "201" {
			t.Errorf("secondary memberships = %v, want the secondary men collection", memberships)
		}
	})

	t.Run("missing counterpart only skips the secondary store", func(t *testing.T) {
		primary := newPrimary()
		secondary := newFakeCatalog([]domain.Product{
			{ID: "88", Title: "Something Else"},
		})
		svc := NewSyncService(primary, secondary, &fakeCache{entries: cacheEntries}, feed, testServiceConfig())

		summary, err := svc.Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if summary.SecondarySkipped != 1 {
			t.Errorf("SecondarySkipped = %d, want 1", summary.SecondarySkipped)
		}
		if primary.inventory["inv1"] != 2 {
			t.Errorf("primary inventory = %d, want 2 (primary must still proceed)", primary.inventory["inv1"])
		}
		if len(secondary.inventory) != 0 || secondary.tagWrites != 0 {
			t.Error("secondary store was mutated despite the miss")
		}
	})
}

func TestSyncServiceAbandonsRejectedMutation(t *testing.T) {
	primary := newFakeCatalog([]domain.Product{
		{
			ID:       "1",
			Title:    "Eau de Parfum 149",
			Tags:     []string{"floral"},
			Variants: []domain.Variant{{ID: "v1", InventoryItemID: "inv1"}},
		},
	})
	primary.rejectSetTags = true
	cache := &fakeCache{entries: map[string][]string{"1": {"male"}}}
	feed := &fakeFeed{rows: []domain.FeedRow{{Number: "149", Count: "4"}}}

	svc := NewSyncService(primary, nil, cache, feed, testServiceConfig())
	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, want nil (rejection must not abort the run)", err)
	}

	if summary.MutationsAbandoned != 1 {
		t.Errorf("MutationsAbandoned = %d, want 1", summary.MutationsAbandoned)
	}
	if summary.InventoryUpdates != 1 {
		t.Errorf("InventoryUpdates = %d, want 1 (run continues past the rejection)", summary.InventoryUpdates)
	}
}

func TestSyncServiceSkipsUnmatchedProducts(t *testing.T) {
	primary := newFakeCatalog([]domain.Product{
		{ID: "1", Title: "Eau de Parfum 149", Variants: []domain.Variant{{ID: "v1", InventoryItemID: "inv1"}}},
		{ID: "2", Title: "Velvet Oud"}, // no catalog number
		{ID: "3", Title: "Noir 33", Variants: []domain.Variant{{ID: "v3", InventoryItemID: "inv3"}}},
	})
	cache := &fakeCache{}
	// Feed only covers 149; 33 is absent from the feed.
	feed := &fakeFeed{rows: []domain.FeedRow{{Number: "149", Count: "1"}}}

	svc := NewSyncService(primary, nil, cache, feed, testServiceConfig())
	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.ProductsMatched != 1 {
		t.Errorf("ProductsMatched = %d, want 1", summary.ProductsMatched)
	}
	if _, touched := primary.inventory["inv3"]; touched {
		t.Error("product absent from feed had its inventory touched")
	}
}
