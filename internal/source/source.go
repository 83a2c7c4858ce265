// Package source reads the product catalog that a rollout indexes.
package source

import (
	"context"
	"fmt"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/pkg/validator"
)

// ProductSource lists every product to index.
type ProductSource interface {
	Products(ctx context.Context) ([]domain.Product, error)
}

func validateProducts(products []domain.Product) error {
	seen := make(map[string]struct{}, len(products))
	for i, p := range products {
		if err := validator.Validate(p); err != nil {
			return fmt.Errorf("product %d (id=%q): %w", i, p.ID, err)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("product %d: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}
