package usecase

import (
	"sort"

	"github.com/scentsync/backend/internal/domain"
)

// PlannerInput is everything the planner needs to know about one product in
// one storefront: its live remote state, its target quantity, and the cached
// managed tags it should carry when in stock.
type PlannerInput struct {
	Product       *domain.Product
	Quantity      int
	CachedManaged []string

	// Memberships is the product's current collection state, fetched
	// before planning. MembershipsKnown is false when that fetch failed;
	// collection reconciliation is then skipped for this product.
	Memberships      []domain.CollectionMembership
	MembershipsKnown bool

	// Collections maps series names to this store's collection ids.
	Collections map[string]string
}

// BuildPlan computes the minimal mutation set moving one product's remote
// state to its desired state. Desired state is derived purely from the
// inputs, then diffed against observed remote state, so every emitted
// mutation is idempotent: planning again after applying yields an empty
// plan.
func BuildPlan(in PlannerInput, rules *domain.Rules) *domain.Plan {
	plan := &domain.Plan{ProductID: in.Product.ID}

	// Quantity is an absolute set per variant, always emitted. Variants
	// without an inventory item id cannot be reconciled.
	for _, v := range in.Product.Variants {
		if v.InventoryItemID == "" {
			continue
		}
		plan.Inventory = append(plan.Inventory, domain.InventoryMutation{
			InventoryItemID: v.InventoryItemID,
			Quantity:        in.Quantity,
		})
	}

	plan.Tags = planTags(in.Product.Tags, in.CachedManaged, in.Quantity, rules)

	if in.MembershipsKnown {
		plan.AddCollections, plan.RemoveMemberships = planCollections(in, rules)
	}

	return plan
}

// planTags computes the target tag list and returns a mutation only when it
// differs from the live list. Out of stock strips every managed tag; in
// stock restores any cached managed tag the live set is missing. Tags
// outside the managed vocabulary pass through untouched in either case.
func planTags(current, cachedManaged []string, quantity int, rules *domain.Rules) *domain.TagMutation {
	if quantity == 0 {
		target := make([]string, 0, len(current))
		for _, t := range current {
			if !rules.IsManaged(t) {
				target = append(target, t)
			}
		}
		if len(target) == len(current) {
			return nil
		}
		return &domain.TagMutation{Tags: target}
	}

	// All comparisons happen on canonical forms so a live "BEST SELLER"
	// satisfies a cached "bestseller" without a spurious diff.
	have := make(map[string]bool, len(current))
	for _, t := range current {
		have[domain.Canonical(t)] = true
	}

	target := append([]string(nil), current...)
	changed := false
	for _, t := range cachedManaged {
		c := domain.Canonical(t)
		if !have[c] {
			target = append(target, c)
			have[c] = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return &domain.TagMutation{Tags: target}
}

// planCollections computes the membership set difference, restricted to the
// collections this system is configured for. Memberships in collections
// outside that universe are never touched, mirroring the non-managed-tag
// preservation rule.
func planCollections(in PlannerInput, rules *domain.Rules) (add []string, remove []string) {
	configured := make(map[string]bool, len(in.Collections))
	for _, id := range in.Collections {
		configured[id] = true
	}

	wanted := make(map[string]bool)
	if in.Quantity > 0 {
		for _, t := range in.CachedManaged {
			series, ok := rules.SeriesFor(t)
			if !ok {
				continue
			}
			// Series without a configured collection id are dropped
			// silently.
			if id, ok := in.Collections[series]; ok {
				wanted[id] = true
			}
		}
	}

	existing := make(map[string]bool)
	for _, m := range in.Memberships {
		if !configured[m.CollectionID] {
			continue
		}
		existing[m.CollectionID] = true
		if !wanted[m.CollectionID] {
			remove = append(remove, m.MembershipID)
		}
	}
	for id := range wanted {
		if !existing[id] {
			add = append(add, id)
		}
	}

	sort.Strings(add)
	sort.Strings(remove)
	return add, remove
}
