// Package dsl is a typed subset of the Elasticsearch query DSL. Values
// marshal to the exact JSON the engine expects, and the in-memory engine
// evaluates the same tree.
package dsl

import (
	"encoding/json"
)

// Query is any query clause.
type Query interface {
	json.Marshaler
	queryNode()
}

// MatchAll matches every document with score 1.
type MatchAll struct{}

func (MatchAll) queryNode() {}

func (MatchAll) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"match_all": map[string]any{}})
}

// Bool combines clauses. Filter clauses do not score.
type Bool struct {
	Filter             []Query
	Should             []Query
	MinimumShouldMatch string
}

func (Bool) queryNode() {}

func (b Bool) MarshalJSON() ([]byte, error) {
	body := map[string]any{}
	if len(b.Filter) > 0 {
		body["filter"] = b.Filter
	}
	if len(b.Should) > 0 {
		body["should"] = b.Should
	}
	if b.MinimumShouldMatch != "" {
		body["minimum_should_match"] = b.MinimumShouldMatch
	}
	return json.Marshal(map[string]any{"bool": body})
}

// Range bounds a numeric field inclusively. Nil bounds are open.
type Range struct {
	Field string
	GTE   *int64
	LTE   *int64
}

func (Range) queryNode() {}

func (r Range) MarshalJSON() ([]byte, error) {
	bounds := map[string]any{}
	if r.GTE != nil {
		bounds["gte"] = *r.GTE
	}
	if r.LTE != nil {
		bounds["lte"] = *r.LTE
	}
	return json.Marshal(map[string]any{"range": map[string]any{r.Field: bounds}})
}

// Terms matches documents whose field equals any of Values.
type Terms struct {
	Field  string
	Values []int
}

func (Terms) queryNode() {}

func (t Terms) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"terms": map[string]any{t.Field: t.Values}})
}

// MultiMatch runs a full-text match over several fields. A field may carry
// a "^boost" suffix.
type MultiMatch struct {
	Query  string
	Fields []string
}

func (MultiMatch) queryNode() {}

func (m MultiMatch) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"multi_match": map[string]any{
		"query":  m.Query,
		"fields": m.Fields,
	}})
}

// Script is an engine-side script with named parameters.
type Script struct {
	Source string         `json:"source"`
	Lang   string         `json:"lang"`
	Params map[string]any `json:"params"`
}

// ScriptScore rescores the documents matched by Query with Script.
type ScriptScore struct {
	Query  Query
	Script Script
}

func (ScriptScore) queryNode() {}

func (s ScriptScore) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"script_score": map[string]any{
		"query":  s.Query,
		"script": s.Script,
	}})
}

// SortField orders by one field.
type SortField struct {
	Field string
	Order string
}

func (s SortField) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{s.Field: map[string]any{"order": s.Order}})
}

// SearchRequest is a search body.
type SearchRequest struct {
	Query       Query
	Sort        []SortField
	From        int
	Size        int
	MinScore    *float64
	TrackScores bool
}

func (r SearchRequest) MarshalJSON() ([]byte, error) {
	body := map[string]any{
		"query": r.Query,
		"from":  r.From,
		"size":  r.Size,
	}
	if len(r.Sort) > 0 {
		body["sort"] = r.Sort
	}
	if r.MinScore != nil {
		body["min_score"] = *r.MinScore
	}
	if r.TrackScores {
		body["track_scores"] = true
	}
	return json.Marshal(body)
}

// Hit is one raw search hit. Score is nil when the engine did not score.
type Hit struct {
	ID     string
	Score  *float64
	Source map[string]any
}

// SearchResponse is the raw engine result. Total is nil when the engine
// did not report a total.
type SearchResponse struct {
	Total *int64
	Hits  []Hit
}
