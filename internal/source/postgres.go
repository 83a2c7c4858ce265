package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/pkg/database"
)

const listProductsSQL = `SELECT id, product_name, category, category_id, description, price
FROM products
ORDER BY id`

// Postgres reads products from the catalog database.
type Postgres struct {
	db     database.Querier
	logger *slog.Logger
}

var _ ProductSource = (*Postgres)(nil)

// NewPostgres creates a source over db, usually a *pgxpool.Pool.
func NewPostgres(db database.Querier, logger *slog.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

// Products lists the catalog ordered by id.
func (p *Postgres) Products(ctx context.Context) (products []domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, p.logger, "postgresql", "ListProducts", listProductsSQL)
	defer func() { end(err) }()

	rows, err := p.db.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var prod domain.Product
		if err := rows.Scan(&prod.ID, &prod.ProductName, &prod.Category, &prod.CategoryID, &prod.Description, &prod.Price); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, prod)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	if err := validateProducts(products); err != nil {
		return nil, err
	}
	return products, nil
}
