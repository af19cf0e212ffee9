package domain

// Product is a catalog product as observed in one storefront. The remote
// catalog owns it; this system only reads it and emits mutations against it.
type Product struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Tags     []string  `json:"tags"`
	Variants []Variant `json:"variants"`
}

// Variant belongs to exactly one product and carries the inventory item id
// used for quantity mutations. A variant without one cannot have its stock
// reconciled and is skipped.
type Variant struct {
	ID              string `json:"id"`
	InventoryItemID string `json:"inventoryItemId"`
}

// CollectionMembership is one join record between a product and a collection.
// Additions go through the collection id, removals through the membership id.
type CollectionMembership struct {
	MembershipID string `json:"membershipId"`
	CollectionID string `json:"collectionId"`
}

// FeedRow is one raw row from the quantity feed. Both fields are free text
// exactly as they appeared in the source; parsing happens in the usecase layer.
type FeedRow struct {
	Number string
	Count  string
}
