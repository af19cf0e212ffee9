package usecase

import (
	"fmt"

	"github.com/scentsync/backend/internal/domain"
)

// Resolver maps a primary-catalog product to its counterpart in the
// secondary catalog. Identifiers differ per catalog, so matching is by
// exact case-insensitive title equality.
type Resolver struct {
	secondary *CatalogIndex
}

// NewResolver creates a resolver over the secondary catalog's index.
func NewResolver(secondary *CatalogIndex) *Resolver {
	return &Resolver{secondary: secondary}
}

// Resolve returns the secondary-catalog product with the same title, or
// ErrNoMatch when the secondary store does not carry it. A miss only skips
// the secondary store; primary reconciliation proceeds regardless.
func (r *Resolver) Resolve(primary *domain.Product) (*domain.Product, error) {
	match, ok := r.secondary.ByTitle[NormalizeTitle(primary.Title)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrNoMatch, primary.Title)
	}
	return match, nil
}
