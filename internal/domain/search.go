package domain

import (
	"strings"

	apperrors "github.com/utafrali/aisearch/pkg/errors"
	"github.com/utafrali/aisearch/pkg/pagination"
)

// SortOption selects the ordering of search results.
type SortOption string

const (
	SortRelevanceDesc        SortOption = "RELEVANCE_DESC"
	SortPriceAsc             SortOption = "PRICE_ASC"
	SortPriceDesc            SortOption = "PRICE_DESC"
	SortCategoryBoostingDesc SortOption = "CATEGORY_BOOSTING_DESC"
)

// ValidSortOptions returns every accepted sort option.
func ValidSortOptions() []SortOption {
	return []SortOption{SortRelevanceDesc, SortPriceAsc, SortPriceDesc, SortCategoryBoostingDesc}
}

// ParseSortOption parses s case-insensitively. Blank means RELEVANCE_DESC.
func ParseSortOption(s string) (SortOption, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return SortRelevanceDesc, nil
	}
	for _, opt := range ValidSortOptions() {
		if string(opt) == s {
			return opt, nil
		}
	}
	return "", apperrors.InvalidInputf("unknown sort option %q", s)
}

// SortOrder is the direction of a sort clause.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Document fields referenced by sort clauses and filters.
const (
	FieldScore      = "_score"
	FieldID         = "id"
	FieldPrice      = "price"
	FieldCategoryID = "categoryId"
)

// SortClause is one field/direction pair of an ordered sort.
type SortClause struct {
	Field string
	Order SortOrder
}

// SortClauses maps a sort option to its ordered clauses. Every option ends
// with id asc so that equal scores page deterministically.
func (s SortOption) SortClauses() []SortClause {
	switch s {
	case SortPriceAsc:
		return []SortClause{{FieldPrice, OrderAsc}, {FieldScore, OrderDesc}, {FieldID, OrderAsc}}
	case SortPriceDesc:
		return []SortClause{{FieldPrice, OrderDesc}, {FieldScore, OrderDesc}, {FieldID, OrderAsc}}
	default:
		return []SortClause{{FieldScore, OrderDesc}, {FieldID, OrderAsc}}
	}
}

// PriceRange bounds the price filter. Nil bounds are open.
type PriceRange struct {
	Min *int64 `json:"minPrice,omitempty"`
	Max *int64 `json:"maxPrice,omitempty"`
}

// NewPriceRange validates both bounds are >= 0 and min <= max.
func NewPriceRange(minPrice, maxPrice *int64) (PriceRange, error) {
	if minPrice != nil && *minPrice < 0 {
		return PriceRange{}, apperrors.InvalidInputf("minPrice must be >= 0, got %d", *minPrice)
	}
	if maxPrice != nil && *maxPrice < 0 {
		return PriceRange{}, apperrors.InvalidInputf("maxPrice must be >= 0, got %d", *maxPrice)
	}
	if minPrice != nil && maxPrice != nil && *minPrice > *maxPrice {
		return PriceRange{}, apperrors.InvalidInputf("minPrice (%d) must not exceed maxPrice (%d)", *minPrice, *maxPrice)
	}
	return PriceRange{Min: minPrice, Max: maxPrice}, nil
}

// IsEmpty reports whether neither bound is set.
func (p PriceRange) IsEmpty() bool {
	return p.Min == nil && p.Max == nil
}

// SearchRequest is a validated, normalized search call.
type SearchRequest struct {
	Query       string
	Price       PriceRange
	CategoryIDs []int
	Sort        SortOption
	Paging      pagination.Params
}

// SearchRequestInput carries the raw parameters of a search call.
type SearchRequestInput struct {
	Query       string
	Page        *int
	Size        *int
	MinPrice    *int64
	MaxPrice    *int64
	CategoryIDs []int
	Sort        string
}

// NewSearchRequest validates in and normalizes it: the query is trimmed,
// category ids are deduplicated in first-seen order, and
// CATEGORY_BOOSTING_DESC without query text becomes RELEVANCE_DESC.
func NewSearchRequest(in SearchRequestInput) (SearchRequest, error) {
	paging, err := pagination.New(in.Page, in.Size)
	if err != nil {
		return SearchRequest{}, err
	}

	price, err := NewPriceRange(in.MinPrice, in.MaxPrice)
	if err != nil {
		return SearchRequest{}, err
	}

	sortOpt, err := ParseSortOption(in.Sort)
	if err != nil {
		return SearchRequest{}, err
	}

	req := SearchRequest{
		Query:       strings.TrimSpace(in.Query),
		Price:       price,
		CategoryIDs: dedupeInts(in.CategoryIDs),
		Sort:        sortOpt,
		Paging:      paging,
	}
	if !req.HasQuery() && req.Sort == SortCategoryBoostingDesc {
		req.Sort = SortRelevanceDesc
	}
	return req, nil
}

// HasQuery reports whether the request carries query text.
func (r SearchRequest) HasQuery() bool {
	return strings.TrimSpace(r.Query) != ""
}

// HasPriceCondition reports whether a price bound is set.
func (r SearchRequest) HasPriceCondition() bool {
	return !r.Price.IsEmpty()
}

// HasCategoryCondition reports whether category ids are set.
func (r SearchRequest) HasCategoryCondition() bool {
	return len(r.CategoryIDs) > 0
}

func dedupeInts(in []int) []int {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SearchHit is one scored result. Source never carries the embedding.
type SearchHit struct {
	ID     string         `json:"id"`
	Score  float64        `json:"score"`
	Source map[string]any `json:"source"`
}

// PageResult is one page of hits.
type PageResult struct {
	Page          int         `json:"page"`
	Size          int         `json:"size"`
	TotalElements int64       `json:"totalElements"`
	TotalPages    int         `json:"totalPages"`
	Results       []SearchHit `json:"results"`
}

// NewPageResult fills the paging fields of a result page from req.
func NewPageResult(req SearchRequest, total int64, hits []SearchHit) PageResult {
	if hits == nil {
		hits = []SearchHit{}
	}
	return PageResult{
		Page:          req.Paging.Page,
		Size:          req.Paging.Size,
		TotalElements: total,
		TotalPages:    pagination.TotalPages(total, req.Paging.Size),
		Results:       hits,
	}
}
