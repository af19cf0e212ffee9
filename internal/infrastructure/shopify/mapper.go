package shopify

import (
	"strconv"
	"strings"

	"github.com/scentsync/backend/internal/domain"
)

// Wire types mirror the admin REST payloads. Numeric ids stay int64 on the
// wire and become opaque strings in the domain.

type productsResponse struct {
	Products []wireProduct `json:"products"`
}

type wireProduct struct {
	ID       int64         `json:"id"`
	Title    string        `json:"title"`
	Tags     string        `json:"tags"`
	Variants []wireVariant `json:"variants"`
}

type wireVariant struct {
	ID              int64 `json:"id"`
	InventoryItemID int64 `json:"inventory_item_id"`
}

type collectsResponse struct {
	Collects []wireCollect `json:"collects"`
}

type wireCollect struct {
	ID           int64 `json:"id"`
	CollectionID int64 `json:"collection_id"`
	ProductID    int64 `json:"product_id"`
}

type inventoryLevelSet struct {
	LocationID      int64 `json:"location_id"`
	InventoryItemID int64 `json:"inventory_item_id"`
	Available       int   `json:"available"`
}

type productUpdate struct {
	Product productTags `json:"product"`
}

type productTags struct {
	ID   int64  `json:"id"`
	Tags string `json:"tags"`
}

type collectCreate struct {
	Collect collectBody `json:"collect"`
}

type collectBody struct {
	CollectionID int64 `json:"collection_id"`
	ProductID    int64 `json:"product_id"`
}

func (w wireProduct) toDomain() domain.Product {
	p := domain.Product{
		ID:    strconv.FormatInt(w.ID, 10),
		Title: w.Title,
		Tags:  splitTags(w.Tags),
	}
	for _, v := range w.Variants {
		variant := domain.Variant{ID: strconv.FormatInt(v.ID, 10)}
		if v.InventoryItemID != 0 {
			variant.InventoryItemID = strconv.FormatInt(v.InventoryItemID, 10)
		}
		p.Variants = append(p.Variants, variant)
	}
	return p
}

func (w wireCollect) toDomain() domain.CollectionMembership {
	return domain.CollectionMembership{
		MembershipID: strconv.FormatInt(w.ID, 10),
		CollectionID: strconv.FormatInt(w.CollectionID, 10),
	}
}

// splitTags turns the API's comma-joined tag string into a list, trimming
// whitespace and dropping empties.
func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// nextPageURL extracts the rel="next" cursor from a Link header, e.g.
//
//	<https://x.myshopify.com/admin/api/2023-07/products.json?page_info=abc>; rel="next"
//
// Returns "" when there is no next page.
func nextPageURL(linkHeader string) string {
	for _, part := range strings.Split(linkHeader, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}
	return ""
}
