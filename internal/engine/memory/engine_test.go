package memory

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/engine"
	"github.com/utafrali/aisearch/internal/engine/dsl"
	apperrors "github.com/utafrali/aisearch/pkg/errors"
)

const synonymIndexBody = `{
  "settings": {"analysis": {"filter": {"product_synonyms": {"type": "synonym_graph", "synonyms_set": "food-synonyms", "updateable": true}}}},
  "mappings": {"properties": {"product_vector": {"type": "dense_vector", "dims": 2}}}
}`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func seed(t *testing.T, e *Engine, index string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.CreateIndex(ctx, index, nil))
	require.NoError(t, e.BulkIndex(ctx, index, []domain.ProductDocument{
		{ID: "1", ProductName: "사과 과일칩", Description: "바삭한 사과", CategoryID: 4, Price: 5000, Vector: []float32{1, 0}},
		{ID: "2", ProductName: "배 과일칩", Description: "달콤한 배", CategoryID: 4, Price: 7000, Vector: []float32{0, 1}},
		{ID: "3", ProductName: "비건 만두", Description: "채소 만두", CategoryID: 9, Price: 12000, Vector: []float32{1, 1}},
		{ID: "10", ProductName: "한우 불고기", Description: "양념 불고기", CategoryID: 2, Price: 25000, Vector: []float32{-1, 0}},
	}))
}

func ids(resp *dsl.SearchResponse) []string {
	out := make([]string, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		out = append(out, h.ID)
	}
	return out
}

func TestSearch_FiltersAndSort(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e, "products")

	gte, lte := int64(5000), int64(15000)
	resp, err := e.Search(context.Background(), "products", dsl.SearchRequest{
		Query: dsl.Bool{Filter: []dsl.Query{
			dsl.Range{Field: "price", GTE: &gte, LTE: &lte},
			dsl.Terms{Field: "categoryId", Values: []int{4, 9}},
		}},
		Sort: []dsl.SortField{{Field: "price", Order: "desc"}, {Field: "id", Order: "asc"}},
		Size: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2", "1"}, ids(resp))
	assert.Equal(t, int64(3), *resp.Total)
	assert.Equal(t, "비건 만두", resp.Hits[0].Source["product_name"])
}

func TestSearch_IDSortIsLexicographic(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e, "products")

	resp, err := e.Search(context.Background(), "products", dsl.SearchRequest{
		Query: dsl.MatchAll{},
		Sort:  []dsl.SortField{{Field: "_score", Order: "desc"}, {Field: "id", Order: "asc"}},
		Size:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "10", "2", "3"}, ids(resp))
}

func TestSearch_Paging(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e, "products")

	resp, err := e.Search(context.Background(), "products", dsl.SearchRequest{
		Query: dsl.MatchAll{},
		Sort:  []dsl.SortField{{Field: "price", Order: "asc"}},
		From:  2,
		Size:  5,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "10"}, ids(resp))
	assert.Equal(t, int64(4), *resp.Total)
}

func TestSearch_OutOfRangeWindow(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e, "products")

	tests := []struct {
		name       string
		from, size int
		want       []string
	}{
		{"negative from starts at zero", -10, 2, []string{"1", "2"}},
		{"from past the end", 100, 5, []string{}},
		{"negative size", 0, -3, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := e.Search(context.Background(), "products", dsl.SearchRequest{
				Query: dsl.MatchAll{},
				Sort:  []dsl.SortField{{Field: "price", Order: "asc"}},
				From:  tt.from,
				Size:  tt.size,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(resp))
			assert.Equal(t, int64(4), *resp.Total)
		})
	}
}

func TestSearch_HybridScript(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e, "products")

	minScore := 0.5
	resp, err := e.Search(context.Background(), "products", dsl.SearchRequest{
		Query: dsl.ScriptScore{
			Query: dsl.Bool{Should: []dsl.Query{dsl.MultiMatch{Query: "사과", Fields: []string{"product_name^2", "description"}}}, MinimumShouldMatch: "0"},
			Script: dsl.Script{Lang: "painless", Params: map[string]any{
				"query_vector":        []float32{1, 0},
				"min_score_threshold": minScore,
				"beta":                1.0,
			}},
		},
		Sort:     []dsl.SortField{{Field: "_score", Order: "desc"}, {Field: "id", Order: "asc"}},
		MinScore: &minScore,
		Size:     10,
	})
	require.NoError(t, err)

	require.NotEmpty(t, resp.Hits)
	assert.Equal(t, "1", resp.Hits[0].ID)
	assert.Greater(t, *resp.Hits[0].Score, 0.9)
	assert.NotContains(t, ids(resp), "10", "opposite vector falls below the threshold")
}

func TestHybridScore_Boost(t *testing.T) {
	doc := domain.ProductDocument{CategoryID: 4, Vector: []float32{1, 0}}
	params := map[string]any{
		"query_vector":         []float32{1, 0},
		"min_score_threshold":  0.0,
		"beta":                 0.5,
		"category_boost_by_id": map[string]float64{"4": 0.2},
	}

	score, err := hybridScore(params, doc, 10)
	require.NoError(t, err)
	assert.InDelta(t, 1.0*(1+0.5*0.2), score, 1e-9)

	delete(params, "category_boost_by_id")
	score, err = hybridScore(params, doc, 2.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.9+0.1*0.5, score, 1e-9)
}

func TestAliases_AtomicSwap(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.CreateIndex(ctx, "v1", nil))
	require.NoError(t, e.CreateIndex(ctx, "v2", nil))
	require.NoError(t, e.UpdateAliases(ctx, []engine.AliasAction{{Type: engine.AliasAdd, Index: "v1", Alias: "read"}}))

	err := e.UpdateAliases(ctx, []engine.AliasAction{
		{Type: engine.AliasRemove, Index: "v1", Alias: "read"},
		{Type: engine.AliasAdd, Index: "missing", Alias: "read"},
	})
	require.Error(t, err)
	indices, _ := e.AliasIndices(ctx, "read")
	assert.Equal(t, []string{"v1"}, indices, "failed update must not apply partially")

	require.NoError(t, e.UpdateAliases(ctx, []engine.AliasAction{
		{Type: engine.AliasRemove, Index: "v1", Alias: "read"},
		{Type: engine.AliasAdd, Index: "v2", Alias: "read"},
	}))
	indices, _ = e.AliasIndices(ctx, "read")
	assert.Equal(t, []string{"v2"}, indices)
}

func TestAliases_RemoveIndexWithAliasName(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.CreateIndex(ctx, "read", nil))
	require.NoError(t, e.CreateIndex(ctx, "v1", nil))

	err := e.UpdateAliases(ctx, []engine.AliasAction{{Type: engine.AliasAdd, Index: "v1", Alias: "read"}})
	require.Error(t, err)

	require.NoError(t, e.UpdateAliases(ctx, []engine.AliasAction{
		{Type: engine.AliasRemoveIndex, Index: "read"},
		{Type: engine.AliasAdd, Index: "v1", Alias: "read"},
	}))
	ok, _ := e.AliasExists(ctx, "read")
	assert.True(t, ok)
	_, stillIndex := e.indices["read"]
	assert.False(t, stillIndex)
}

func TestCreateIndex_RequiresSynonymSet(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	err := e.CreateIndex(ctx, "v1", []byte(synonymIndexBody))
	assert.ErrorContains(t, err, "synonyms set [food-synonyms] not found")

	require.NoError(t, e.PutSynonymSet(ctx, "food-synonyms", nil))
	require.NoError(t, e.CreateIndex(ctx, "v1", []byte(synonymIndexBody)))

	err = e.IndexDocument(ctx, "v1", domain.ProductDocument{ID: "x", Vector: []float32{1, 2, 3}})
	assert.ErrorContains(t, err, "mapping requires 2")
}

func TestSynonyms_ApplyAfterReload(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.PutSynonymSet(ctx, "food-synonyms", nil))
	require.NoError(t, e.CreateIndex(ctx, "v1", []byte(synonymIndexBody)))
	require.NoError(t, e.UpdateAliases(ctx, []engine.AliasAction{{Type: engine.AliasAdd, Index: "v1", Alias: "read"}}))
	require.NoError(t, e.IndexDocument(ctx, "read", domain.ProductDocument{ID: "3", ProductName: "비건 만두", Vector: []float32{1, 0}}))

	lexical := dsl.Bool{Should: []dsl.Query{dsl.MultiMatch{Query: "떡국", Fields: []string{"product_name^2"}}}}
	resp, err := e.Search(ctx, "read", dsl.SearchRequest{Query: lexical, Size: 5})
	require.NoError(t, err)
	assert.Empty(t, resp.Hits)

	require.NoError(t, e.PutSynonymSet(ctx, "food-synonyms", []engine.SynonymRule{{ID: "rule-1", Synonyms: "만두, 떡국"}}))
	resp, err = e.Search(ctx, "read", dsl.SearchRequest{Query: lexical, Size: 5})
	require.NoError(t, err)
	assert.Empty(t, resp.Hits, "set changes are invisible until analyzers reload")

	require.NoError(t, e.ReloadSearchAnalyzers(ctx, "read"))
	resp, err = e.Search(ctx, "read", dsl.SearchRequest{Query: lexical, Size: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, ids(resp))
}

func TestSynonymTable(t *testing.T) {
	table := newSynonymTable([]engine.SynonymRule{
		{Synonyms: "만두, 떡국"},
		{Synonyms: "귤, 감귤 => 밀감"},
	})
	assert.Equal(t, []string{"만두"}, table.expand("떡국"))
	assert.Equal(t, []string{"떡국"}, table.expand("비건 만두"))
	assert.Equal(t, []string{"밀감"}, table.expand("감귤"))
	assert.Empty(t, table.expand("밀감"))
}

func TestDeleteDocument(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e, "products")
	ctx := context.Background()

	require.NoError(t, e.DeleteDocument(ctx, "products", "1"))
	require.NoError(t, e.DeleteDocument(ctx, "products", "missing"))

	resp, err := e.Search(ctx, "products", dsl.SearchRequest{Query: dsl.MatchAll{}, Size: 10})
	require.NoError(t, err)
	assert.NotContains(t, ids(resp), "1")
}

func TestReloadSearchAnalyzers_UnknownTargetIsNotFound(t *testing.T) {
	e := newTestEngine(t)

	err := e.ReloadSearchAnalyzers(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
	assert.ErrorContains(t, err, "index nope not found")
}

func TestSearch_UnknownTarget(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Search(context.Background(), "nope", dsl.SearchRequest{Query: dsl.MatchAll{}})
	assert.ErrorContains(t, err, "index_not_found_exception")
}
