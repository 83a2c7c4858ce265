package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/aisearch/internal/categoryboost"
	"github.com/utafrali/aisearch/internal/config"
	"github.com/utafrali/aisearch/internal/embedding"
	"github.com/utafrali/aisearch/internal/engine"
	esengine "github.com/utafrali/aisearch/internal/engine/elasticsearch"
	"github.com/utafrali/aisearch/internal/engine/memory"
	"github.com/utafrali/aisearch/internal/rollout"
	"github.com/utafrali/aisearch/internal/search"
	"github.com/utafrali/aisearch/internal/source"
	"github.com/utafrali/aisearch/internal/synonym"
	"github.com/utafrali/aisearch/pkg/database"
	"github.com/utafrali/aisearch/pkg/health"
	"github.com/utafrali/aisearch/pkg/httpclient"
)

// Components holds the dependencies shared by the server, the indexer CLI
// and the MCP server.
type Components struct {
	Config   *config.Config
	Engine   engine.Engine
	Redis    *redis.Client
	Embedder embedding.Embedder
	Synonyms *synonym.Service
	Rules    *categoryboost.Store
	Beta     *categoryboost.BetaTuner
	Search   *search.Strategy

	logger  *slog.Logger
	closers []func() error
}

// NewComponents builds every shared dependency from cfg. Close releases
// whatever was opened, also after a partial failure.
func NewComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Components, err error) {
	c := &Components{Config: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	if c.Engine, err = newEngine(cfg, logger); err != nil {
		return nil, err
	}

	if cfg.NeedsRedis() {
		c.Redis, err = database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		c.closers = append(c.closers, c.Redis.Close)
		logger.Info("redis client initialized", slog.String("addr", fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort)))
	}

	if c.Embedder, err = c.newEmbedder(); err != nil {
		return nil, err
	}

	c.Synonyms = synonym.NewService(
		c.Engine,
		synonym.NewFileRuleSource(cfg.SynonymsFile, cfg.SynonymsRegressionFile),
		synonym.Config{BaseIndex: cfg.IndexName, ReadAlias: cfg.ReadAlias, DefaultSetID: cfg.SynonymSetID},
		logger,
	)

	var rules categoryboost.RuleSource
	switch cfg.CategoryBoostSource {
	case config.BoostSourceRedis:
		rules = categoryboost.NewRedisSource(c.Redis, cfg.CategoryBoostRedisKey)
	default:
		rules = categoryboost.NewFileSource(cfg.CategoryBoostFile)
	}
	c.Rules = categoryboost.NewStore(ctx, rules, cfg.CategoryBoostCacheTTL(), logger)

	if c.Beta, err = categoryboost.NewBetaTuner(cfg.CategoryBoostBeta); err != nil {
		return nil, fmt.Errorf("init category boost beta: %w", err)
	}

	c.Search = search.NewStrategy(
		c.Engine,
		c.Embedder,
		categoryboost.NewDecider(c.Rules),
		c.Beta,
		search.NewAssembler(cfg.ReadAlias, cfg.MinScoreThreshold),
		logger,
	)
	return c, nil
}

// RegisterHealth adds readiness checks for the remote dependencies in use.
func (c *Components) RegisterHealth(h *health.Handler) {
	if c.Config.SearchEngine == config.EngineElasticsearch {
		h.Register("elasticsearch", c.Engine.Ping)
	}
	if c.Redis != nil {
		h.Register("redis", func(ctx context.Context) error {
			return c.Redis.Ping(ctx).Err()
		})
	}
}

// NewOrchestrator builds the blue-green rollout pipeline over the
// configured product source. notifier may be nil.
func (c *Components) NewOrchestrator(ctx context.Context, notifier rollout.Notifier) (*rollout.Orchestrator, error) {
	src, err := c.newProductSource(ctx)
	if err != nil {
		return nil, err
	}

	names, err := rollout.NewNameGenerator(time.Now)
	if err != nil {
		return nil, err
	}

	cfg := c.Config
	return rollout.NewOrchestrator(
		rollout.NewAliasSwitcher(c.Engine, cfg.ReadAlias, cfg.IndexName),
		rollout.NewCreator(c.Engine, c.Synonyms, c.Embedder, names, cfg.IndexName, c.logger),
		rollout.NewIndexer(src, c.Embedder, c.Engine, rollout.IndexerConfig{
			Workers:   cfg.IndexingWorkers,
			BatchSize: cfg.IndexingBatchSize,
		}, c.logger),
		rollout.NewCleaner(c.Engine),
		notifier,
		c.logger,
	), nil
}

// Bootstrap rolls the catalog out once when the engine is the in-memory
// one, which starts empty. It does nothing for Elasticsearch.
func (c *Components) Bootstrap(ctx context.Context) error {
	if c.Config.SearchEngine != config.EngineMemory {
		return nil
	}
	orchestrator, err := c.NewOrchestrator(ctx, nil)
	if err != nil {
		return err
	}
	result, err := orchestrator.Run(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap memory index: %w", err)
	}
	c.logger.Info("memory index bootstrapped",
		slog.String("index", result.NewIndex),
		slog.Int("indexed", result.IndexedCount),
	)
	return nil
}

// Close releases connections in reverse order of opening.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func newEngine(cfg *config.Config, logger *slog.Logger) (engine.Engine, error) {
	switch cfg.SearchEngine {
	case config.EngineElasticsearch:
		eng, err := esengine.New(esengine.Config{
			URL:      cfg.ElasticsearchURL,
			Username: cfg.ElasticsearchUsername,
			Password: cfg.ElasticsearchPassword,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		logger.Info("elasticsearch search engine initialized", slog.String("url", cfg.ElasticsearchURL))
		return eng, nil
	default:
		logger.Info("in-memory search engine initialized")
		return memory.New(logger), nil
	}
}

func (c *Components) newEmbedder() (embedding.Embedder, error) {
	cfg := c.Config

	var (
		inner embedding.Embedder
		err   error
	)
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		breaker := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("openai-embeddings"),
			c.logger,
		)
		inner, err = embedding.NewOpenAI(embedding.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
			HTTPClient: breaker.Doer(),
		})
	case config.ProviderLangChain:
		inner, err = embedding.NewLangChain(embedding.LangChainConfig{
			BaseURL:    cfg.OpenAIBaseURL,
			Token:      cfg.OpenAIAPIKey,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
		})
	default:
		inner, err = embedding.NewHashing(cfg.EmbeddingDimensions)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s embedder: %w", cfg.EmbeddingProvider, err)
	}

	if cfg.EmbeddingRateLimit > 0 && cfg.EmbeddingProvider != config.ProviderHashing {
		inner = embedding.NewRateLimited(inner, cfg.EmbeddingRateLimit, cfg.EmbeddingRateBurst)
	}

	namespace := cfg.EmbeddingProvider + ":" + cfg.EmbeddingModel + ":" + strconv.Itoa(cfg.EmbeddingDimensions)
	switch cfg.EmbeddingCache {
	case config.CacheRedis:
		cache := embedding.NewRedisCache(c.Redis, embedding.DefaultRedisPrefix, cfg.EmbeddingCacheTTL)
		return embedding.NewCached(inner, cache, config.CacheRedis, namespace, c.logger), nil
	case config.CacheBadger:
		cache, err := embedding.OpenBadgerCache(cfg.EmbeddingCacheDir, cfg.EmbeddingCacheTTL, c.logger)
		if err != nil {
			return nil, fmt.Errorf("init badger embedding cache: %w", err)
		}
		c.closers = append(c.closers, cache.Close)
		return embedding.NewCached(inner, cache, config.CacheBadger, namespace, c.logger), nil
	default:
		return inner, nil
	}
}

func (c *Components) newProductSource(ctx context.Context) (source.ProductSource, error) {
	cfg := c.Config
	switch cfg.ProductSource {
	case config.ProductSourcePostgres:
		pool, err := database.NewPostgresPool(ctx, database.DefaultPostgresConfig(cfg.DatabaseURL), c.logger)
		if err != nil {
			return nil, fmt.Errorf("init postgres product source: %w", err)
		}
		unregister, err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, "catalog")
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("register catalog pool metrics: %w", err)
		}
		c.closers = append(c.closers, func() error {
			unregister()
			pool.Close()
			return nil
		})
		return source.NewPostgres(pool, c.logger), nil
	case config.ProductSourceSQLite:
		src, err := source.OpenSQLite(cfg.SQLitePath, c.logger)
		if err != nil {
			return nil, fmt.Errorf("init sqlite product source: %w", err)
		}
		c.closers = append(c.closers, src.Close)
		return src, nil
	default:
		return source.NewFile(cfg.ProductSourceFile), nil
	}
}
