package rollout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/embedding"
	"github.com/utafrali/aisearch/internal/engine"
	"github.com/utafrali/aisearch/internal/engine/memory"
	"github.com/utafrali/aisearch/internal/synonym"
	apperrors "github.com/utafrali/aisearch/pkg/errors"
)

const (
	baseIndex = "food-products"
	readAlias = "food-products-read"
	setID     = "food-synonyms"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type staticProducts []domain.Product

func (s staticProducts) Products(context.Context) ([]domain.Product, error) {
	return s, nil
}

type staticRules []string

func (s staticRules) LoadRules(context.Context, domain.SynonymMode) ([]string, error) {
	return s, nil
}

func catalog(n int) staticProducts {
	out := make(staticProducts, n)
	for i := range out {
		out[i] = domain.Product{
			ID:          string(rune('a' + i)),
			ProductName: "사과 과일칩",
			Category:    "과일/간식",
			CategoryID:  4,
			Price:       int64(1000 * (i + 1)),
		}
	}
	return out
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	eng      *memory.Engine
	clock    *clock
	embedder embedding.Embedder
	orch     *Orchestrator
	notified []domain.IndexRolloutResult
}

func (f *fixture) NotifyRolledOut(_ context.Context, r domain.IndexRolloutResult) error {
	f.notified = append(f.notified, r)
	return nil
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	embedder embedding.Embedder
	admin    func(*memory.Engine) adminEngine
}

type adminEngine interface {
	engine.IndexAdmin
	AliasIndexAdmin
}

func withEmbedder(e embedding.Embedder) fixtureOption {
	return func(c *fixtureConfig) { c.embedder = e }
}

func withAdmin(wrap func(*memory.Engine) adminEngine) fixtureOption {
	return func(c *fixtureConfig) { c.admin = wrap }
}

func newFixture(t *testing.T, products staticProducts, opts ...fixtureOption) *fixture {
	t.Helper()
	hashing, err := embedding.NewHashing(8)
	require.NoError(t, err)

	cfg := fixtureConfig{
		embedder: hashing,
		admin:    func(e *memory.Engine) adminEngine { return e },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := discardLogger()
	eng := memory.New(logger)
	admin := cfg.admin(eng)
	clk := &clock{t: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	names, err := NewNameGenerator(clk.now)
	require.NoError(t, err)

	synonyms := synonym.NewService(eng, staticRules{"만두, 떡국"}, synonym.Config{
		BaseIndex: baseIndex, ReadAlias: readAlias, DefaultSetID: setID,
	}, logger)

	f := &fixture{eng: eng, clock: clk, embedder: cfg.embedder}
	f.orch = NewOrchestrator(
		NewAliasSwitcher(admin, readAlias, baseIndex),
		NewCreator(admin, synonyms, cfg.embedder, names, baseIndex, logger),
		NewIndexer(products, cfg.embedder, eng, IndexerConfig{Workers: 2, BatchSize: 2}, logger),
		NewCleaner(admin),
		f,
		logger,
	)
	return f
}

func aliasIndices(t *testing.T, e *memory.Engine) []string {
	t.Helper()
	got, err := e.AliasIndices(context.Background(), readAlias)
	require.NoError(t, err)
	return got
}

func TestNameGenerator(t *testing.T) {
	clk := &clock{t: time.Date(2025, 3, 1, 15, 4, 5, 0, time.UTC)}
	g, err := NewNameGenerator(clk.now)
	require.NoError(t, err)

	assert.Equal(t, "food-products-v20250302000405", g.Generate(baseIndex), "Asia/Seoul is UTC+9")
	assert.Equal(t, "food-products-v20250302000405-1", g.Generate(baseIndex))
	assert.Equal(t, "food-products-v20250302000405-2", g.Generate(baseIndex))

	clk.advance(time.Second)
	assert.Equal(t, "food-products-v20250302000406", g.Generate(baseIndex))
}

func TestBuildMapping(t *testing.T) {
	body := BuildMapping(384, "food-synonyms")

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(body, &parsed), "rendered template is valid JSON")
	assert.Contains(t, string(body), `"dims": 384`)
	assert.Contains(t, string(body), `"synonyms_set": "food-synonyms"`)
	assert.NotContains(t, string(body), "__")
}

func TestRollout_FirstAndSecond(t *testing.T) {
	f := newFixture(t, catalog(5))
	ctx := context.Background()

	first, err := f.orch.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, first.OldIndex)
	assert.Equal(t, "food-products-v20250301090000", first.NewIndex)
	assert.Equal(t, 5, first.IndexedCount)
	assert.Equal(t, []string{first.NewIndex}, aliasIndices(t, f.eng))

	f.clock.advance(time.Minute)
	second, err := f.orch.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.NewIndex, second.OldIndex)
	assert.Equal(t, []string{second.NewIndex}, aliasIndices(t, f.eng))

	exists, err := f.eng.IndexExists(ctx, first.NewIndex)
	require.NoError(t, err)
	assert.False(t, exists, "old index is cleaned up")
	assert.Len(t, f.notified, 2)
}

func TestRollout_SameSecondGetsSuffix(t *testing.T) {
	f := newFixture(t, catalog(1))
	ctx := context.Background()

	first, err := f.orch.Run(ctx)
	require.NoError(t, err)
	second, err := f.orch.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.NewIndex+"-1", second.NewIndex)
	assert.Equal(t, first.NewIndex, second.OldIndex)
}

func TestRollout_EmptyCatalog(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.IndexedCount)
	assert.Equal(t, []string{res.NewIndex}, aliasIndices(t, f.eng))
}

func TestRollout_ReplacesPhysicalIndexNamedLikeAlias(t *testing.T) {
	f := newFixture(t, catalog(2))
	ctx := context.Background()
	require.NoError(t, f.eng.CreateIndex(ctx, readAlias, nil))

	res, err := f.orch.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.OldIndex)
	assert.Equal(t, []string{res.NewIndex}, aliasIndices(t, f.eng))
}

func TestRollout_AliasOnTwoIndicesFailsLookup(t *testing.T) {
	f := newFixture(t, catalog(1))
	ctx := context.Background()
	require.NoError(t, f.eng.CreateIndex(ctx, "a", nil))
	require.NoError(t, f.eng.CreateIndex(ctx, "b", nil))
	require.NoError(t, f.eng.UpdateAliases(ctx, []engine.AliasAction{
		{Type: engine.AliasAdd, Index: "a", Alias: readAlias},
		{Type: engine.AliasAdd, Index: "b", Alias: readAlias},
	}))

	_, err := f.orch.Run(ctx)
	assert.ErrorIs(t, err, domain.ErrAliasLookup)
	assert.Equal(t, []string{"a", "b"}, aliasIndices(t, f.eng), "alias untouched")
}

type failingEmbedder struct {
	embedding.Embedder
	err     error
	gate    chan struct{}
	entered chan struct{}
}

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.gate != nil {
		f.entered <- struct{}{}
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.Embedder.Embed(ctx, text)
}

func TestRollout_BulkFailureKeepsOldIndexServing(t *testing.T) {
	hashing, _ := embedding.NewHashing(8)
	flaky := &failingEmbedder{Embedder: hashing}
	f := newFixture(t, catalog(3), withEmbedder(flaky))
	ctx := context.Background()

	first, err := f.orch.Run(ctx)
	require.NoError(t, err)

	flaky.err = errors.New("provider unavailable")
	f.clock.advance(time.Minute)
	_, err = f.orch.Run(ctx)
	assert.ErrorIs(t, err, domain.ErrBulkIndex)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Equal(t, []string{first.NewIndex}, aliasIndices(t, f.eng))
	assert.Len(t, f.notified, 1)
}

func TestRollout_ConcurrentRunIsRejected(t *testing.T) {
	hashing, _ := embedding.NewHashing(8)
	slow := &failingEmbedder{Embedder: hashing, gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	f := newFixture(t, catalog(1), withEmbedder(slow))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Run(ctx)
		done <- err
	}()

	<-slow.entered

	_, err := f.orch.Run(ctx)
	assert.ErrorIs(t, err, domain.ErrRolloutInProgress)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	close(slow.gate)
	require.NoError(t, <-done)
}

type failingDelete struct {
	*memory.Engine
}

func (f failingDelete) DeleteIndex(context.Context, string) error {
	return errors.New("cluster_block_exception")
}

func TestRollout_CleanupFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, catalog(1), withAdmin(func(e *memory.Engine) adminEngine { return failingDelete{e} }))
	ctx := context.Background()

	first, err := f.orch.Run(ctx)
	require.NoError(t, err)
	f.clock.advance(time.Second)
	second, err := f.orch.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{second.NewIndex}, aliasIndices(t, f.eng))
	exists, _ := f.eng.IndexExists(ctx, first.NewIndex)
	assert.True(t, exists, "old index left in place")
}

type swapFailure struct {
	*memory.Engine
}

func (s swapFailure) UpdateAliases(context.Context, []engine.AliasAction) error {
	return errors.New("timeout")
}

func TestRollout_SwapFailureLeavesOrphan(t *testing.T) {
	f := newFixture(t, catalog(1), withAdmin(func(e *memory.Engine) adminEngine { return swapFailure{e} }))
	ctx := context.Background()

	_, err := f.orch.Run(ctx)
	assert.ErrorIs(t, err, domain.ErrAliasSwap)

	exists, _ := f.eng.IndexExists(ctx, "food-products-v20250301090000")
	assert.True(t, exists, "new index is not rolled back")
	assert.Empty(t, aliasIndices(t, f.eng))
}

func TestCleaner_BlankAndMissing(t *testing.T) {
	c := NewCleaner(memory.New(discardLogger()))
	assert.NoError(t, c.DeleteIfExists(context.Background(), ""))
	assert.NoError(t, c.DeleteIfExists(context.Background(), "nope"))
}

func TestAliasSwitcher_FallsBackToBaseIndex(t *testing.T) {
	s := NewAliasSwitcher(memory.New(discardLogger()), " ", baseIndex)
	assert.Equal(t, baseIndex, s.Alias())
}
