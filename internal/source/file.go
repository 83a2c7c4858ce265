package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/utafrali/aisearch/internal/domain"
)

// File reads products from a JSON array on disk.
type File struct {
	path string
}

var _ ProductSource = (*File)(nil)

// NewFile creates a source for path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Products decodes and validates the file.
func (f *File) Products(_ context.Context) ([]domain.Product, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read product file %s: %w", f.path, err)
	}

	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode product file %s: %w", f.path, err)
	}
	if err := validateProducts(products); err != nil {
		return nil, fmt.Errorf("product file %s: %w", f.path, err)
	}
	return products, nil
}
