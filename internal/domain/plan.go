package domain

import "time"

// InventoryMutation sets the available quantity for one inventory item.
// It is an absolute set, not a delta, so re-applying it is harmless.
type InventoryMutation struct {
	InventoryItemID string `json:"inventoryItemId"`
	Quantity        int    `json:"quantity"`
}

// TagMutation replaces the product's full tag string. The catalog API has no
// partial-update primitive for tags, so the planner always emits the complete
// target list.
type TagMutation struct {
	Tags []string `json:"tags"`
}

// Plan is the minimal mutation set for one product in one storefront.
// It is ephemeral: recomputed from scratch every run, never persisted.
type Plan struct {
	ProductID string `json:"productId"`

	Inventory []InventoryMutation `json:"inventory,omitempty"`

	// Tags is nil when the live tag set already matches the target.
	Tags *TagMutation `json:"tags,omitempty"`

	// AddCollections holds collection ids the product should join;
	// RemoveMemberships holds membership ids to delete. Both are exact
	// set differences against current remote state.
	AddCollections    []string `json:"addCollections,omitempty"`
	RemoveMemberships []string `json:"removeMemberships,omitempty"`
}

// Empty reports whether the plan carries no mutations at all.
func (p *Plan) Empty() bool {
	return len(p.Inventory) == 0 && p.Tags == nil &&
		len(p.AddCollections) == 0 && len(p.RemoveMemberships) == 0
}

// RunSummary describes the outcome of one reconciliation run.
type RunSummary struct {
	RunID     string        `json:"runId"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`

	ProductsSeen       int `json:"productsSeen"`
	ProductsMatched    int `json:"productsMatched"`
	InventoryUpdates   int `json:"inventoryUpdates"`
	TagUpdates         int `json:"tagUpdates"`
	CollectionUpdates  int `json:"collectionUpdates"`
	MutationsAbandoned int `json:"mutationsAbandoned"`
	SecondarySkipped   int `json:"secondarySkipped"`
}
