package search

import "github.com/utafrali/aisearch/internal/domain"

// Envelope echoes the normalized request alongside one result page. It is
// the response shape shared by the HTTP and MCP surfaces.
type Envelope struct {
	Query         string             `json:"query"`
	Page          int                `json:"page"`
	Size          int                `json:"size"`
	MinPrice      *int64             `json:"minPrice"`
	MaxPrice      *int64             `json:"maxPrice"`
	CategoryIDs   []int              `json:"categoryIds"`
	Sort          domain.SortOption  `json:"sort"`
	TotalElements int64              `json:"totalElements"`
	TotalPages    int                `json:"totalPages"`
	Count         int                `json:"count"`
	Results       []domain.SearchHit `json:"results"`
}

// NewEnvelope pairs req with page.
func NewEnvelope(req domain.SearchRequest, page domain.PageResult) Envelope {
	categoryIDs := req.CategoryIDs
	if categoryIDs == nil {
		categoryIDs = []int{}
	}
	results := page.Results
	if results == nil {
		results = []domain.SearchHit{}
	}
	return Envelope{
		Query:         req.Query,
		Page:          page.Page,
		Size:          page.Size,
		MinPrice:      req.Price.Min,
		MaxPrice:      req.Price.Max,
		CategoryIDs:   categoryIDs,
		Sort:          req.Sort,
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
		Count:         len(results),
		Results:       results,
	}
}
