package source

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/pkg/database"
	apperrors "github.com/utafrali/aisearch/pkg/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFile_Products(t *testing.T) {
	path := writeFile(t, `[
		{"id":"1","productName":"사과 과일칩","category":"과일/간식","categoryId":4,"description":"바삭한 사과칩","price":3500},
		{"id":"2","productName":"비건 만두","category":"비건식품","categoryId":9,"description":"","price":6900}
	]`)

	products, err := NewFile(path).Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "사과 과일칩", products[0].ProductName)
	assert.Equal(t, 9, products[1].CategoryID)
}

func TestFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `{`},
		{"missing name", `[{"id":"1","price":1}]`},
		{"negative price", `[{"id":"1","productName":"x","price":-1}]`},
		{"duplicate id", `[{"id":"1","productName":"a"},{"id":"1","productName":"b"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFile(writeFile(t, tt.content)).Products(context.Background())
			assert.Error(t, err)
		})
	}

	_, err := NewFile(filepath.Join(t.TempDir(), "missing.json")).Products(context.Background())
	assert.Error(t, err)
}

func TestFile_ValidationErrorIsClientError(t *testing.T) {
	_, err := NewFile(writeFile(t, `[{"id":"","productName":"a"}]`)).Products(context.Background())
	assert.True(t, apperrors.IsValidation(err))
}

func productColumns() []string {
	return []string{"id", "product_name", "category", "category_id", "description", "price"}
}

func TestPostgres_Products(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(listProductsSQL)).
		WillReturnRows(pgxmock.NewRows(productColumns()).
			AddRow("1", "사과 과일칩", "과일/간식", 4, "바삭한 사과칩", int64(3500)).
			AddRow("71", "손질 고등어", "수산물", 5, "노르웨이산", int64(8900)))

	products, err := NewPostgres(mock, discardLogger()).Products(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Product{
		{ID: "1", ProductName: "사과 과일칩", Category: "과일/간식", CategoryID: 4, Description: "바삭한 사과칩", Price: 3500},
		{ID: "71", ProductName: "손질 고등어", Category: "수산물", CategoryID: 5, Description: "노르웨이산", Price: 8900},
	}, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_QueryError(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(listProductsSQL)).WillReturnError(errors.New("connection reset"))

	_, err = NewPostgres(mock, discardLogger()).Products(context.Background())
	assert.ErrorContains(t, err, "list products")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RowError(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(listProductsSQL)).
		WillReturnRows(pgxmock.NewRows(productColumns()).
			AddRow("1", "a", "c", 1, "", int64(1)).
			RowError(0, errors.New("broken row")))

	_, err = NewPostgres(mock, discardLogger()).Products(context.Background())
	assert.Error(t, err)
}

func TestSQLite_Products(t *testing.T) {
	db, err := sql.Open(SQLiteDriver, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		product_name TEXT NOT NULL,
		category TEXT NOT NULL,
		category_id INTEGER NOT NULL,
		description TEXT NOT NULL,
		price INTEGER NOT NULL
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO products VALUES
		('2', '비건 만두', '비건식품', 9, '콩고기 만두', 6900),
		('1', '사과 과일칩', '과일/간식', 4, '바삭한 사과칩', 3500)`)
	require.NoError(t, err)

	src := NewSQLite(db, discardLogger())
	t.Cleanup(func() { _ = src.Close() })

	products, err := src.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "1", products[0].ID)
	assert.Equal(t, int64(6900), products[1].Price)
}

func TestOpenSQLite_MissingTable(t *testing.T) {
	src, err := OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	_, err = src.Products(context.Background())
	assert.ErrorContains(t, err, "list products")
}
