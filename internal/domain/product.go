package domain

import "strconv"

// Product is a catalog entry as read from a product source.
type Product struct {
	ID          string `json:"id" validate:"required"`
	ProductName string `json:"productName" validate:"required"`
	Category    string `json:"category"`
	CategoryID  int    `json:"categoryId" validate:"gte=0"`
	Description string `json:"description"`
	Price       int64  `json:"price" validate:"gte=0"`
}

// EmbeddingText is the text embedded for a product.
func (p Product) EmbeddingText() string {
	return p.ProductName + " " + p.Category + " " + p.Description
}

// Index document field names.
const (
	DocFieldProductName = "product_name"
	DocFieldCategory    = "category"
	DocFieldDescription = "description"
	DocFieldVector      = "product_vector"
)

// ProductDocument is the shape written to the search index.
type ProductDocument struct {
	ID          string    `json:"id"`
	ProductName string    `json:"product_name"`
	Category    string    `json:"category"`
	CategoryID  int       `json:"categoryId"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Vector      []float32 `json:"product_vector"`
}

// NewProductDocument pairs p with its embedding.
func NewProductDocument(p Product, vector []float32) ProductDocument {
	return ProductDocument{
		ID:          p.ID,
		ProductName: p.ProductName,
		Category:    p.Category,
		CategoryID:  p.CategoryID,
		Description: p.Description,
		Price:       p.Price,
		Vector:      vector,
	}
}

// CategoryKey is the string form of a category id used in boost maps.
func CategoryKey(categoryID int) string {
	return strconv.Itoa(categoryID)
}
