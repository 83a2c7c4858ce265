package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/engine/dsl"
)

func int64p(v int64) *int64 { return &v }
func intp(v int) *int       { return &v }

func mustRequest(t *testing.T, in domain.SearchRequestInput) domain.SearchRequest {
	t.Helper()
	req, err := domain.NewSearchRequest(in)
	require.NoError(t, err)
	return req
}

func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestRootQuery_MatchAllWithoutFilters(t *testing.T) {
	req := mustRequest(t, domain.SearchRequestInput{})
	_, ok := FilterQuery(req)
	assert.False(t, ok)
	assert.JSONEq(t, `{"match_all":{}}`, marshal(t, RootQuery(req)))
}

func TestRootQuery_Filters(t *testing.T) {
	req := mustRequest(t, domain.SearchRequestInput{
		MinPrice:    int64p(1000),
		CategoryIDs: []int{4, 9, 4},
	})
	assert.JSONEq(t, `{"bool":{"filter":[
		{"range":{"price":{"gte":1000}}},
		{"terms":{"categoryId":[4,9]}}
	]}}`, marshal(t, RootQuery(req)))
}

func TestHybridBaseQuery(t *testing.T) {
	req := mustRequest(t, domain.SearchRequestInput{Query: " 사과 ", MaxPrice: int64p(5000)})
	assert.JSONEq(t, `{"bool":{
		"filter":[{"range":{"price":{"lte":5000}}}],
		"should":[{"multi_match":{"query":"사과","fields":["product_name^2","description"]}}],
		"minimum_should_match":"0"
	}}`, marshal(t, HybridBaseQuery(req)))

	noFilter := mustRequest(t, domain.SearchRequestInput{Query: "사과"})
	assert.NotContains(t, marshal(t, HybridBaseQuery(noFilter)), "filter")
}

func TestScriptSource(t *testing.T) {
	plain := ScriptSource(false)
	assert.Contains(t, plain, "cosineSimilarity(params.query_vector, 'product_vector') + 1.0) / 2.0")
	assert.Contains(t, plain, "Math.min(_score, 5.0) / 5.0")
	assert.Contains(t, plain, "0.9 * vectorScore + 0.1 * lexicalScore")
	assert.Contains(t, plain, "if (base < params.min_score_threshold)")
	assert.NotContains(t, plain, "category_boost_by_id")

	boosted := ScriptSource(true)
	assert.Contains(t, boosted, "params.category_boost_by_id.get(categoryKey)")
	assert.Contains(t, boosted, "base * (1.0 + params.beta * categoryBoost)")
}

func TestAssembler_Hybrid(t *testing.T) {
	a := NewAssembler("food-products-read", 0.55)
	req := mustRequest(t, domain.SearchRequestInput{Query: "사과", Page: intp(2), Size: intp(10), Sort: "category_boosting_desc"})
	decision := domain.CategoryBoostingDecision{
		ApplyBoost:        true,
		EffectiveSort:     domain.SortCategoryBoostingDesc,
		BoostByCategoryID: map[string]float64{"4": 0.2},
	}

	body := a.Hybrid(req, HybridBaseQuery(req), []float32{0.6, 0.8}, decision, 1.5)

	assert.Equal(t, 10, body.From)
	assert.Equal(t, 10, body.Size)
	require.NotNil(t, body.MinScore)
	assert.Equal(t, 0.55, *body.MinScore)
	assert.True(t, body.TrackScores)
	assert.Equal(t, []dsl.SortField{{Field: "_score", Order: "desc"}, {Field: "id", Order: "asc"}}, body.Sort)

	ss, ok := body.Query.(dsl.ScriptScore)
	require.True(t, ok)
	assert.Equal(t, "painless", ss.Script.Lang)
	assert.Equal(t, ScriptSource(true), ss.Script.Source)
	assert.Equal(t, []float32{0.6, 0.8}, ss.Script.Params[ParamQueryVector])
	assert.Equal(t, 0.55, ss.Script.Params[ParamMinScoreThreshold])
	assert.Equal(t, 1.5, ss.Script.Params[ParamBeta])
	assert.Equal(t, map[string]float64{"4": 0.2}, ss.Script.Params[ParamCategoryBoostByID])
}

func TestAssembler_HybridWithoutBoostOmitsRuleMap(t *testing.T) {
	a := NewAssembler("idx", 0.5)
	req := mustRequest(t, domain.SearchRequestInput{Query: "사과", Sort: "PRICE_DESC"})

	body := a.Hybrid(req, HybridBaseQuery(req), []float32{1}, domain.NoBoost(req.Sort), 1)

	ss := body.Query.(dsl.ScriptScore)
	_, has := ss.Script.Params[ParamCategoryBoostByID]
	assert.False(t, has)
	assert.Equal(t, ScriptSource(false), ss.Script.Source)
	assert.Equal(t, "price", body.Sort[0].Field)
	assert.Equal(t, "desc", body.Sort[0].Order)
}

func TestAssembler_Filter(t *testing.T) {
	a := NewAssembler("idx", 0.55)
	req := mustRequest(t, domain.SearchRequestInput{Sort: "PRICE_ASC", Size: intp(3)})

	body := a.Filter(req, RootQuery(req))

	assert.Nil(t, body.MinScore)
	assert.True(t, body.TrackScores)
	assert.JSONEq(t, `{
		"query":{"match_all":{}},
		"sort":[{"price":{"order":"asc"}},{"_score":{"order":"desc"}},{"id":{"order":"asc"}}],
		"from":0,"size":3,"track_scores":true
	}`, marshal(t, body))
}

func TestMapResponse(t *testing.T) {
	req := mustRequest(t, domain.SearchRequestInput{Size: intp(2)})
	score := 0.91
	total := int64(5)
	resp := &dsl.SearchResponse{
		Total: &total,
		Hits: []dsl.Hit{
			{ID: "1", Score: &score, Source: map[string]any{"product_name": "사과칩", "product_vector": []any{0.1}}},
			{ID: "2", Source: map[string]any{"product_name": "배칩"}},
		},
	}

	page := MapResponse(req, resp)
	assert.Equal(t, int64(5), page.TotalElements)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Results, 2)
	assert.Equal(t, 0.91, page.Results[0].Score)
	assert.NotContains(t, page.Results[0].Source, "product_vector")
	assert.Equal(t, "사과칩", page.Results[0].Source["product_name"])
	assert.Zero(t, page.Results[1].Score)

	// the raw hit is not mutated
	assert.Contains(t, resp.Hits[0].Source, "product_vector")
}

func TestMapResponse_MissingTotal(t *testing.T) {
	req := mustRequest(t, domain.SearchRequestInput{})
	page := MapResponse(req, &dsl.SearchResponse{})
	assert.Zero(t, page.TotalElements)
	assert.Zero(t, page.TotalPages)
	assert.NotNil(t, page.Results)
}

type fakeSearcher struct {
	target string
	last   dsl.SearchRequest
	resp   *dsl.SearchResponse
	err    error
	calls  int
}

func (f *fakeSearcher) Search(_ context.Context, target string, req dsl.SearchRequest) (*dsl.SearchResponse, error) {
	f.calls++
	f.target = target
	f.last = req
	return f.resp, f.err
}

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	return f.vec, f.err
}

type fixedDecider domain.CategoryBoostingDecision

func (d fixedDecider) Decide(context.Context, domain.SearchRequest) domain.CategoryBoostingDecision {
	return domain.CategoryBoostingDecision(d)
}

type fixedBeta float64

func (b fixedBeta) Get() float64 { return float64(b) }

func newStrategy(s *fakeSearcher, e *fakeEmbedder, d fixedDecider) *Strategy {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStrategy(s, e, d, fixedBeta(1), NewAssembler("food-products-read", 0.55), logger)
}

func TestStrategy_HybridPath(t *testing.T) {
	total := int64(1)
	searcher := &fakeSearcher{resp: &dsl.SearchResponse{Total: &total, Hits: []dsl.Hit{{ID: "7"}}}}
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	strategy := newStrategy(searcher, embedder, fixedDecider{
		ApplyBoost: true, EffectiveSort: domain.SortCategoryBoostingDesc, BoostByCategoryID: map[string]float64{"4": 0.2},
	})
	req := mustRequest(t, domain.SearchRequestInput{Query: "사과", Sort: "CATEGORY_BOOSTING_DESC"})

	page, err := strategy.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "food-products-read", searcher.target)
	assert.Equal(t, 1, embedder.calls)
	_, scripted := searcher.last.Query.(dsl.ScriptScore)
	assert.True(t, scripted)
	assert.Equal(t, "7", page.Results[0].ID)
}

func TestStrategy_FilterPathSkipsEmbedding(t *testing.T) {
	searcher := &fakeSearcher{resp: &dsl.SearchResponse{}}
	embedder := &fakeEmbedder{}
	strategy := newStrategy(searcher, embedder, fixedDecider{})
	req := mustRequest(t, domain.SearchRequestInput{CategoryIDs: []int{4}})

	_, err := strategy.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Zero(t, embedder.calls)
	assert.Nil(t, searcher.last.MinScore)
	_, isBool := searcher.last.Query.(dsl.Bool)
	assert.True(t, isBool)
}

func TestStrategy_EngineFailureIsSearchError(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("connection refused")}
	strategy := newStrategy(searcher, &fakeEmbedder{vec: []float32{1}}, fixedDecider{EffectiveSort: domain.SortRelevanceDesc})

	_, err := strategy.Search(context.Background(), mustRequest(t, domain.SearchRequestInput{Query: "사과"}))
	assert.ErrorIs(t, err, domain.ErrSearch)
	assert.Equal(t, 1, searcher.calls, "no retry")

	_, err = strategy.Search(context.Background(), mustRequest(t, domain.SearchRequestInput{}))
	assert.ErrorIs(t, err, domain.ErrSearch)
}

func TestStrategy_EmbeddingFailureSkipsEngine(t *testing.T) {
	searcher := &fakeSearcher{}
	strategy := newStrategy(searcher, &fakeEmbedder{err: errors.New("quota")}, fixedDecider{})

	_, err := strategy.Search(context.Background(), mustRequest(t, domain.SearchRequestInput{Query: "사과"}))
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Zero(t, searcher.calls)
}

func TestNewEnvelope(t *testing.T) {
	req := mustRequest(t, domain.SearchRequestInput{
		Query: "  만두 ", Page: intp(2), Size: intp(3), MinPrice: int64p(1000),
		CategoryIDs: []int{6, 9, 6}, Sort: "category_boosting_desc",
	})
	page := domain.NewPageResult(req, 7, []domain.SearchHit{{ID: "75", Score: 1.2}})

	env := NewEnvelope(req, page)
	assert.Equal(t, "만두", env.Query)
	assert.Equal(t, 2, env.Page)
	assert.Equal(t, 3, env.Size)
	assert.Equal(t, []int{6, 9}, env.CategoryIDs)
	assert.Equal(t, domain.SortCategoryBoostingDesc, env.Sort)
	assert.Equal(t, 3, env.TotalPages)
	assert.Equal(t, 1, env.Count)
	require.NotNil(t, env.MinPrice)
	assert.Nil(t, env.MaxPrice)
}

func TestNewEnvelope_EmptyShape(t *testing.T) {
	req := mustRequest(t, domain.SearchRequestInput{})
	env := NewEnvelope(req, domain.PageResult{Page: 1, Size: 10})

	assert.JSONEq(t, `{"query":"","page":1,"size":10,"minPrice":null,"maxPrice":null,
		"categoryIds":[],"sort":"RELEVANCE_DESC","totalElements":0,"totalPages":0,"count":0,"results":[]}`,
		marshal(t, env))
}
