// Package search turns a validated search request into an engine query,
// executes it and maps the raw hits back to a result page.
package search

import (
	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/engine/dsl"
)

// LexicalFields are the full-text fields of the hybrid query. Product
// names weigh twice as much as descriptions.
var LexicalFields = []string{domain.DocFieldProductName + "^2", domain.DocFieldDescription}

// FilterQuery returns a bool query holding only filter clauses, or false
// when the request has neither a price nor a category condition.
func FilterQuery(req domain.SearchRequest) (dsl.Query, bool) {
	filters := filterClauses(req)
	if len(filters) == 0 {
		return nil, false
	}
	return dsl.Bool{Filter: filters}, true
}

// RootQuery is the filter query, or match_all when there are no filters.
func RootQuery(req domain.SearchRequest) dsl.Query {
	if q, ok := FilterQuery(req); ok {
		return q
	}
	return dsl.MatchAll{}
}

// HybridBaseQuery is the candidate query scored by the hybrid script. The
// multi_match clause is optional (minimum_should_match 0) so documents
// with no lexical overlap stay candidates for vector similarity.
func HybridBaseQuery(req domain.SearchRequest) dsl.Query {
	return dsl.Bool{
		Filter: filterClauses(req),
		Should: []dsl.Query{
			dsl.MultiMatch{Query: req.Query, Fields: LexicalFields},
		},
		MinimumShouldMatch: "0",
	}
}

func filterClauses(req domain.SearchRequest) []dsl.Query {
	var filters []dsl.Query
	if req.HasPriceCondition() {
		filters = append(filters, dsl.Range{
			Field: domain.FieldPrice,
			GTE:   req.Price.Min,
			LTE:   req.Price.Max,
		})
	}
	if req.HasCategoryCondition() {
		filters = append(filters, dsl.Terms{
			Field:  domain.FieldCategoryID,
			Values: req.CategoryIDs,
		})
	}
	return filters
}
