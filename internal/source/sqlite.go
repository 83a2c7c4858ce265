package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/pkg/database"
)

// SQLiteDriver is the database/sql driver name registered by modernc.org/sqlite.
const SQLiteDriver = "sqlite"

// SQLite reads products from a local SQLite catalog, handy for running a
// rollout without a database server.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ ProductSource = (*SQLite)(nil)

// OpenSQLite opens the catalog at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	db, err := sql.Open(SQLiteDriver, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite catalog %s: %w", path, err)
	}
	return NewSQLite(db, logger), nil
}

// NewSQLite creates a source over an open handle.
func NewSQLite(db *sql.DB, logger *slog.Logger) *SQLite {
	return &SQLite{db: db, logger: logger}
}

// Products lists the catalog ordered by id.
func (s *SQLite) Products(ctx context.Context) (products []domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, s.logger, "sqlite", "ListProducts", listProductsSQL)
	defer func() { end(err) }()

	rows, err := s.db.QueryContext(ctx, listProductsSQL)
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

// Close closes the handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}
