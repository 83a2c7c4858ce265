package categoryboost

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/aisearch/internal/domain"
	apperrors "github.com/utafrali/aisearch/pkg/errors"
)

func TestBetaTuner(t *testing.T) {
	tuner, err := NewBetaTuner(DefaultBeta)
	require.NoError(t, err)
	assert.Equal(t, 1.0, tuner.Get())

	require.NoError(t, tuner.Set(0))
	assert.Equal(t, 0.0, tuner.Get())

	for _, bad := range []float64{-0.1, math.NaN(), math.Inf(1)} {
		err := tuner.Set(bad)
		assert.True(t, apperrors.IsValidation(err), "beta %v", bad)
	}
	assert.Equal(t, 0.0, tuner.Get())

	_, err = NewBetaTuner(-1)
	assert.Error(t, err)
}

type mapRules map[string]map[string]float64

func (m mapRules) FindByKeyword(_ context.Context, keyword string) (map[string]float64, bool) {
	b, ok := m[keyword]
	return b, ok
}

func TestDecider(t *testing.T) {
	d := NewDecider(mapRules{"사과": {"4": 0.2}})
	ctx := context.Background()

	tests := []struct {
		name      string
		req       domain.SearchRequest
		wantBoost bool
		wantSort  domain.SortOption
	}{
		{"price sort passes through", domain.SearchRequest{Query: "사과", Sort: domain.SortPriceAsc}, false, domain.SortPriceAsc},
		{"relevance passes through", domain.SearchRequest{Query: "사과", Sort: domain.SortRelevanceDesc}, false, domain.SortRelevanceDesc},
		{"boosting without query", domain.SearchRequest{Query: "  ", Sort: domain.SortCategoryBoostingDesc}, false, domain.SortRelevanceDesc},
		{"boosting without rule", domain.SearchRequest{Query: "배", Sort: domain.SortCategoryBoostingDesc}, false, domain.SortRelevanceDesc},
		{"boosting with rule", domain.SearchRequest{Query: "사과", Sort: domain.SortCategoryBoostingDesc}, true, domain.SortCategoryBoostingDesc},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Decide(ctx, tt.req)
			assert.Equal(t, tt.wantBoost, got.ApplyBoost)
			assert.Equal(t, tt.wantSort, got.EffectiveSort)
			if tt.wantBoost {
				assert.Equal(t, map[string]float64{"4": 0.2}, got.BoostByCategoryID)
			} else {
				assert.Empty(t, got.BoostByCategoryID)
			}
		})
	}
}

func TestFileSource_JSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "category_boosting.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"version":" 2025-01 ","rules":[{"keyword":"사과","categoryBoostById":{"4":0.2}}]}`), 0o600))
	yamlPath := filepath.Join(dir, "category_boosting.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("version: y1\nrules:\n  - keyword: 만두\n    categoryBoostById:\n      \"9\": 0.3\n"), 0o600))

	ctx := context.Background()

	js := NewFileSource(jsonPath)
	v, err := js.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-01", v)
	doc, err := js.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Rules, 1)
	assert.Equal(t, 0.2, *doc.Rules[0].CategoryBoostByID["4"])

	ys := NewFileSource(yamlPath)
	v, err = ys.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "y1", v)
	doc, err = ys.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.3, *doc.Rules[0].CategoryBoostByID["9"])

	_, err = NewFileSource(filepath.Join(dir, "missing.json")).Version(ctx)
	assert.Error(t, err)
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestRedisSource_PublishThenLoad(t *testing.T) {
	client, mr := setupTestRedis(t)
	src := NewRedisSource(client, "")
	ctx := context.Background()

	_, err := src.Version(ctx)
	assert.Error(t, err)

	require.NoError(t, src.Publish(ctx, ruleDoc("r1", "사과", "4", 0.2)))
	assert.Equal(t, "r1", mr.HGet(DefaultRedisKey, "version"))

	v, err := src.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r1", v)

	doc, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "사과", doc.Rules[0].Keyword)

	assert.ErrorIs(t, src.Publish(ctx, domain.CategoryBoostDocument{}), domain.ErrInvalidRuleDocument)
}

func TestRedisSource_Errors(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	mr.HSet("k", "version", "v1")
	mr.HSet("k", "document", "{")
	_, err := NewRedisSource(client, "k").Load(ctx)
	assert.ErrorContains(t, err, "decode rules")

	mr.SetError("connection refused")
	_, err = NewRedisSource(client, "k").Version(ctx)
	assert.ErrorContains(t, err, "connection refused")
}

func TestStore_OverRedisPicksUpPublishedRules(t *testing.T) {
	client, _ := setupTestRedis(t)
	src := NewRedisSource(client, "")
	ctx := context.Background()
	require.NoError(t, src.Publish(ctx, ruleDoc("r1", "사과", "4", 0.2)))

	store := NewStore(ctx, src, time.Minute, discardLogger())
	boosts, ok := store.FindByKeyword(ctx, "사과")
	require.True(t, ok)
	assert.Equal(t, map[string]float64{"4": 0.2}, boosts)

	require.NoError(t, src.Publish(ctx, ruleDoc("r2", "만두", "9", 0.3)))
	require.NoError(t, store.Reload(ctx))
	version, count := store.Snapshot()
	assert.Equal(t, "r2", version)
	assert.Equal(t, 1, count)
}
