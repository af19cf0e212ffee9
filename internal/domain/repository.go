package domain

import "context"

// CatalogAPI is the narrow surface of one storefront's catalog API. One
// implementation instance is bound to one store (domain, credential,
// location).
type CatalogAPI interface {
	// ListAllProducts follows pagination until exhausted. On a mid-fetch
	// failure it returns the products collected so far together with the
	// error; callers decide whether the partial result is usable.
	ListAllProducts(ctx context.Context) ([]Product, error)

	SetInventoryLevel(ctx context.Context, inventoryItemID string, quantity int) error

	// SetTags replaces the product's full tag string.
	SetTags(ctx context.Context, productID string, tags []string) error

	ListCollects(ctx context.Context, productID string) ([]CollectionMembership, error)
	AddCollect(ctx context.Context, productID, collectionID string) error
	DeleteCollect(ctx context.Context, membershipID string) error
}

// TagCache is the persisted record of the managed tags each product should
// carry when in stock. Keyed by the primary catalog's product id.
type TagCache interface {
	GetAll(ctx context.Context) (map[string][]string, error)
	Upsert(ctx context.Context, productID string, tags []string) error
}

// FeedSource yields the raw quantity feed rows in source order.
type FeedSource interface {
	Rows(ctx context.Context) ([]FeedRow, error)
}
