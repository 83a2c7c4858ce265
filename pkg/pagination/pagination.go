package pagination

import (
	apperrors "github.com/utafrali/aisearch/pkg/errors"
)

const (
	DefaultPage = 1
	DefaultSize = 5
	MaxSize     = 40

	// MaxResultWindow matches the engine's index.max_result_window: a page
	// may not reach past this many hits.
	MaxResultWindow = 10000
)

// Params is a validated 1-based page request.
type Params struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// New validates page and size. A nil value means the parameter was absent
// and takes its default; a present value must be >= 1 (page) or within
// 1..MaxSize (size), and the page must end inside MaxResultWindow.
func New(page, size *int) (Params, error) {
	p := Params{Page: DefaultPage, Size: DefaultSize}

	if page != nil {
		if *page < 1 {
			return Params{}, apperrors.InvalidInputf("page must be >= 1, got %d", *page)
		}
		p.Page = *page
	}
	if size != nil {
		if *size < 1 || *size > MaxSize {
			return Params{}, apperrors.InvalidInputf("size must be between 1 and %d, got %d", MaxSize, *size)
		}
		p.Size = *size
	}
	if p.Page > MaxResultWindow/p.Size {
		return Params{}, apperrors.InvalidInputf("page %d of size %d reaches past the first %d results", p.Page, p.Size, MaxResultWindow)
	}
	return p, nil
}

// Offset returns the zero-based index of the first element of the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Size
}

// TotalPages returns ceil(total/size), 0 when either is non-positive.
func TotalPages(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	pages := total / int64(size)
	if total%int64(size) > 0 {
		pages++
	}
	return int(pages)
}
