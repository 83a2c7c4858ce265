package rollout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/embedding"
	"github.com/utafrali/aisearch/internal/engine"
	"github.com/utafrali/aisearch/internal/source"
)

// Indexer defaults.
const (
	DefaultWorkers   = 4
	DefaultBatchSize = 100
)

// IndexerConfig tunes reindexing.
type IndexerConfig struct {
	Workers   int
	BatchSize int
}

// Indexer embeds every source product and bulk-writes the documents.
type Indexer struct {
	source   source.ProductSource
	embedder embedding.Embedder
	writer   engine.DocumentWriter
	cfg      IndexerConfig
	logger   *slog.Logger
}

// NewIndexer creates an indexer. Zero config values take the defaults.
func NewIndexer(src source.ProductSource, embedder embedding.Embedder, writer engine.DocumentWriter, cfg IndexerConfig, logger *slog.Logger) *Indexer {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Indexer{source: src, embedder: embedder, writer: writer, cfg: cfg, logger: logger}
}

// Reindex loads the catalog into index and returns the document count.
// Each batch waits for a refresh, so the index is searchable on return.
// Any failure aborts the whole run.
func (ix *Indexer) Reindex(ctx context.Context, index string) (int, error) {
	products, err := ix.source.Products(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: load products: %w", domain.ErrBulkIndex, err)
	}
	if len(products) == 0 {
		return 0, nil
	}

	docs, err := ix.embedAll(ctx, products)
	if err != nil {
		return 0, fmt.Errorf("%w: %w: %w", domain.ErrBulkIndex, domain.ErrEmbedding, err)
	}

	for start := 0; start < len(docs); start += ix.cfg.BatchSize {
		end := min(start+ix.cfg.BatchSize, len(docs))
		if err := ix.writer.BulkIndex(ctx, index, docs[start:end]); err != nil {
			return 0, fmt.Errorf("%w: %s documents %d-%d: %w", domain.ErrBulkIndex, index, start, end-1, err)
		}
		ix.logger.DebugContext(ctx, "batch indexed",
			slog.String("index", index),
			slog.Int("from", start),
			slog.Int("count", end-start),
		)
	}
	return len(docs), nil
}

// embedAll embeds products on a bounded worker pool. The first failure
// cancels the remaining work.
func (ix *Indexer) embedAll(ctx context.Context, products []domain.Product) ([]domain.ProductDocument, error) {
	pool, err := ants.NewPool(ix.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		wg       sync.WaitGroup
		failOnce sync.Once
		firstErr error
	)
	fail := func(err error) {
		failOnce.Do(func() {
			firstErr = err
			cancel(err)
		})
	}

	docs := make([]domain.ProductDocument, len(products))
	for i, p := range products {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			vec, err := ix.embedder.Embed(ctx, p.EmbeddingText())
			if err != nil {
				fail(fmt.Errorf("product %s: %w", p.ID, err))
				return
			}
			docs[i] = domain.NewProductDocument(p, vec)
		})
		if submitErr != nil {
			wg.Done()
			fail(fmt.Errorf("submit product %s: %w", p.ID, submitErr))
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := context.Cause(ctx); err != nil {
		return nil, err
	}
	return docs, nil
}
