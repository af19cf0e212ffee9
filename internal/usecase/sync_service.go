package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scentsync/backend/internal/domain"
)

// SyncServiceConfig holds the reconciliation settings the service needs
// beyond its collaborators.
type SyncServiceConfig struct {
	Rules                *domain.Rules
	PrimaryCollections   map[string]string
	SecondaryCollections map[string]string
	ExcludeTitles        []string
}

// SyncService runs one full reconciliation: feed in, catalogs in, minimal
// mutations out. Processing is fully sequential; the shared pacing inside
// the catalog clients is the only throttle.
type SyncService struct {
	primary   domain.CatalogAPI
	secondary domain.CatalogAPI // nil in single-store mode
	cache     domain.TagCache
	feed      domain.FeedSource

	rules                *domain.Rules
	primaryCollections   map[string]string
	secondaryCollections map[string]string
	excludeTitles        []string

	runMu  sync.Mutex
	lastMu sync.RWMutex
	last   *domain.RunSummary
}

// NewSyncService creates a sync service. secondary may be nil.
func NewSyncService(
	primary, secondary domain.CatalogAPI,
	cache domain.TagCache,
	feed domain.FeedSource,
	config SyncServiceConfig,
) *SyncService {
	rules := config.Rules
	if rules == nil {
		rules = domain.DefaultRules()
	}

	return &SyncService{
		primary:              primary,
		secondary:            secondary,
		cache:                cache,
		feed:                 feed,
		rules:                rules,
		primaryCollections:   config.PrimaryCollections,
		secondaryCollections: config.SecondaryCollections,
		excludeTitles:        config.ExcludeTitles,
	}
}

// LastRun returns the summary of the most recent completed run, or nil.
func (s *SyncService) LastRun() *domain.RunSummary {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.last
}

// Run executes one reconciliation. Only one run may be in flight at a time;
// a concurrent call gets ErrRunInProgress. Mutations already applied when an
// error stops the run stay applied; there is no rollback.
func (s *SyncService) Run(ctx context.Context) (*domain.RunSummary, error) {
	if !s.runMu.TryLock() {
		return nil, domain.ErrRunInProgress
	}
	defer s.runMu.Unlock()

	summary := &domain.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	log.Printf("[sync] run %s started", summary.RunID)

	cached, err := s.cache.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tag cache: %w", err)
	}

	primaryIdx, err := s.fetchIndex(ctx, s.primary, "primary")
	if err != nil {
		return nil, err
	}
	summary.ProductsSeen = len(primaryIdx.ByID)

	s.bootstrapCache(ctx, primaryIdx, cached)

	var resolver *Resolver
	if s.secondary != nil {
		secondaryIdx, err := s.fetchIndex(ctx, s.secondary, "secondary")
		if err != nil {
			return nil, err
		}
		resolver = NewResolver(secondaryIdx)
	}

	rows, err := s.feed.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read quantity feed: %w", err)
	}
	quantities := ParseQuantities(rows)
	log.Printf("[sync] run %s: %d feed rows, %d usable quantities", summary.RunID, len(rows), len(quantities))

	for _, num := range primaryIdx.Numbers() {
		quantity, ok := quantities[num]
		if !ok {
			continue
		}
		product := primaryIdx.ByNumber[num]
		summary.ProductsMatched++
		log.Printf("[sync] number %v -> %q (id=%s), quantity=%d", num, product.Title, product.ID, quantity)

		cachedManaged := cached[product.ID]
		if err := s.reconcileProduct(ctx, s.primary, product, quantity, cachedManaged, s.primaryCollections, summary); err != nil {
			return summary, err
		}

		if resolver == nil {
			continue
		}
		counterpart, err := resolver.Resolve(product)
		if err != nil {
			log.Printf("[sync] %v, skipping secondary", err)
			summary.SecondarySkipped++
			continue
		}
		// Desired state for the secondary store derives from the same
		// cache entry, keyed by the primary product id.
		if err := s.reconcileProduct(ctx, s.secondary, counterpart, quantity, cachedManaged, s.secondaryCollections, summary); err != nil {
			return summary, err
		}
	}

	summary.Duration = time.Since(summary.StartedAt)
	log.Printf("[sync] run %s done in %s: matched=%d inventory=%d tags=%d collections=%d abandoned=%d",
		summary.RunID, summary.Duration, summary.ProductsMatched,
		summary.InventoryUpdates, summary.TagUpdates, summary.CollectionUpdates, summary.MutationsAbandoned)

	s.lastMu.Lock()
	s.last = summary
	s.lastMu.Unlock()

	return summary, nil
}

// fetchIndex lists one store's catalog and indexes it. A mid-fetch failure
// degrades to whatever was collected; only an empty result is fatal.
func (s *SyncService) fetchIndex(ctx context.Context, api domain.CatalogAPI, name string) (*CatalogIndex, error) {
	products, err := api.ListAllProducts(ctx)
	if err != nil {
		if len(products) == 0 {
			return nil, fmt.Errorf("fetch %s catalog: %w", name, err)
		}
		log.Printf("[sync] %s catalog fetch incomplete (%d products collected): %v", name, len(products), err)
	}
	log.Printf("[sync] %s catalog: %d products", name, len(products))
	return BuildCatalogIndex(products, s.excludeTitles), nil
}

// bootstrapCache records the live managed tags of products the cache has
// never seen, so a later out-of-stock strip can be undone. Products already
// cached are left alone: the cache, not the live state, is authoritative.
func (s *SyncService) bootstrapCache(ctx context.Context, idx *CatalogIndex, cached map[string][]string) {
	for id, product := range idx.ByID {
		if _, ok := cached[id]; ok {
			continue
		}
		managed := s.rules.ManagedSubset(product.Tags)
		if managed == nil {
			managed = []string{}
		}
		if err := s.cache.Upsert(ctx, id, managed); err != nil {
			log.Printf("[sync] cache bootstrap for %s failed: %v", id, err)
			continue
		}
		cached[id] = managed
	}
}

// reconcileProduct plans and applies mutations for one product in one store.
// Rejected mutations are logged and abandoned; only cancellation or an
// unreachable API stops the run.
func (s *SyncService) reconcileProduct(
	ctx context.Context,
	api domain.CatalogAPI,
	product *domain.Product,
	quantity int,
	cachedManaged []string,
	collections map[string]string,
	summary *domain.RunSummary,
) error {
	in := PlannerInput{
		Product:       product,
		Quantity:      quantity,
		CachedManaged: cachedManaged,
		Collections:   collections,
	}

	// Membership state must be read before the add/remove decision. With
	// no collections configured there is nothing to diff against.
	if len(collections) > 0 {
		memberships, err := api.ListCollects(ctx, product.ID)
		if err != nil {
			if stop := s.checkMutationErr(err, "list collects", product.ID, summary); stop != nil {
				return stop
			}
		} else {
			in.Memberships = memberships
			in.MembershipsKnown = true
		}
	}

	plan := BuildPlan(in, s.rules)

	for _, m := range plan.Inventory {
		if err := api.SetInventoryLevel(ctx, m.InventoryItemID, m.Quantity); err != nil {
			if stop := s.checkMutationErr(err, "set inventory", product.ID, summary); stop != nil {
				return stop
			}
			continue
		}
		summary.InventoryUpdates++
	}

	if plan.Tags != nil {
		if err := api.SetTags(ctx, product.ID, plan.Tags.Tags); err != nil {
			if stop := s.checkMutationErr(err, "set tags", product.ID, summary); stop != nil {
				return stop
			}
		} else {
			summary.TagUpdates++
		}
	}

	for _, collectionID := range plan.AddCollections {
		if err := api.AddCollect(ctx, product.ID, collectionID); err != nil {
			if stop := s.checkMutationErr(err, "add collect", product.ID, summary); stop != nil {
				return stop
			}
			continue
		}
		summary.CollectionUpdates++
	}
	for _, membershipID := range plan.RemoveMemberships {
		if err := api.DeleteCollect(ctx, membershipID); err != nil {
			if stop := s.checkMutationErr(err, "delete collect", product.ID, summary); stop != nil {
				return stop
			}
			continue
		}
		summary.CollectionUpdates++
	}

	return nil
}

// checkMutationErr classifies a failed call. Application-level rejections
// abandon the one mutation and let the run continue; cancellation and
// exhausted retries propagate and end the run.
func (s *SyncService) checkMutationErr(err error, op, productID string, summary *domain.RunSummary) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, domain.ErrAPIUnavailable) {
		return err
	}
	log.Printf("[sync] %s for product %s abandoned: %v", op, productID, err)
	summary.MutationsAbandoned++
	return nil
}
