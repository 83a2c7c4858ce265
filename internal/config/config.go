package config

import (
	"fmt"
	"strings"
	"time"

	pkgconfig "github.com/utafrali/aisearch/pkg/config"
)

// Engine, provider, cache and source selectors.
const (
	EngineElasticsearch = "elasticsearch"
	EngineMemory        = "memory"

	ProviderOpenAI    = "openai"
	ProviderLangChain = "langchain"
	ProviderHashing   = "hashing"

	CacheNone   = "none"
	CacheRedis  = "redis"
	CacheBadger = "badger"

	BoostSourceFile  = "file"
	BoostSourceRedis = "redis"

	ProductSourceFile     = "file"
	ProductSourcePostgres = "postgres"
	ProductSourceSQLite   = "sqlite"
)

// Config holds all configuration for the search service, the indexer and
// the MCP server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort   int    `env:"AISEARCH_HTTP_PORT" envDefault:"8010"`
	AdminToken string `env:"AISEARCH_ADMIN_TOKEN"`

	// Search engine selection (elasticsearch or memory)
	SearchEngine          string `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`
	ElasticsearchURL      string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchUsername string `env:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPassword string `env:"ELASTICSEARCH_PASSWORD"`

	// Index layout
	IndexName    string `env:"AISEARCH_INDEX_NAME" envDefault:"food-products"`
	ReadAlias    string `env:"AISEARCH_READ_ALIAS" envDefault:"food-products-read"`
	SynonymSetID string `env:"AISEARCH_SYNONYMS_SET" envDefault:"food-synonyms"`

	SynonymsFile           string `env:"AISEARCH_SYNONYMS_FILE" envDefault:"data/synonyms/synonyms.txt"`
	SynonymsRegressionFile string `env:"AISEARCH_SYNONYMS_REGRESSION_FILE" envDefault:"data/synonyms/synonyms-regression.txt"`

	// Scoring
	MinScoreThreshold float64 `env:"AISEARCH_MIN_SCORE_THRESHOLD" envDefault:"0.55"`

	// Category boosting
	CategoryBoostSource          string  `env:"AISEARCH_CATEGORY_BOOST_SOURCE" envDefault:"file"`
	CategoryBoostFile            string  `env:"AISEARCH_CATEGORY_BOOST_FILE" envDefault:"data/category_boosting.json"`
	CategoryBoostRedisKey        string  `env:"AISEARCH_CATEGORY_BOOST_REDIS_KEY" envDefault:"aisearch:category-boost"`
	CategoryBoostCacheTTLSeconds int     `env:"AISEARCH_CATEGORY_BOOST_CACHE_TTL_SECONDS" envDefault:"60"`
	CategoryBoostBeta            float64 `env:"AISEARCH_CATEGORY_BOOST_BETA" envDefault:"1.0"`

	// Embeddings
	EmbeddingProvider   string        `env:"EMBEDDING_PROVIDER" envDefault:"hashing"`
	EmbeddingModel      string        `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDimensions int           `env:"EMBEDDING_DIMENSIONS" envDefault:"1536"`
	OpenAIAPIKey        string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL       string        `env:"OPENAI_BASE_URL"`
	EmbeddingCache      string        `env:"EMBEDDING_CACHE" envDefault:"none"`
	EmbeddingCacheDir   string        `env:"EMBEDDING_CACHE_DIR"`
	EmbeddingCacheTTL   time.Duration `env:"EMBEDDING_CACHE_TTL" envDefault:"168h"`
	EmbeddingRateLimit  float64       `env:"EMBEDDING_RATE_LIMIT" envDefault:"0"`
	EmbeddingRateBurst  int           `env:"EMBEDDING_RATE_BURST" envDefault:"10"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Product catalog for rollouts
	ProductSource     string `env:"PRODUCT_SOURCE" envDefault:"file"`
	ProductSourceFile string `env:"PRODUCT_SOURCE_FILE" envDefault:"data/food-products.json"`
	DatabaseURL       string `env:"DATABASE_URL"`
	SQLitePath        string `env:"SQLITE_PATH"`

	IndexingWorkers   int `env:"INDEXING_WORKERS" envDefault:"4"`
	IndexingBatchSize int `env:"INDEXING_BATCH_SIZE" envDefault:"100"`

	// Kafka is disabled when no brokers are set.
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"aisearch-indexer"`

	// Tracing is disabled when no endpoint is set.
	OTLPEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TraceSampleRate float64 `env:"OTEL_TRACES_SAMPLER_ARG" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load aisearch config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CategoryBoostCacheTTL is the rule cache TTL as a duration.
func (c *Config) CategoryBoostCacheTTL() time.Duration {
	return time.Duration(c.CategoryBoostCacheTTLSeconds) * time.Second
}

// KafkaEnabled reports whether product events and rollout notifications
// go through Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// NeedsRedis reports whether any component reads from Redis.
func (c *Config) NeedsRedis() bool {
	return c.EmbeddingCache == CacheRedis || c.CategoryBoostSource == BoostSourceRedis
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if err := oneOf("SEARCH_ENGINE", c.SearchEngine, EngineElasticsearch, EngineMemory); err != nil {
		return err
	}
	if c.SearchEngine == EngineElasticsearch && strings.TrimSpace(c.ElasticsearchURL) == "" {
		return fmt.Errorf("ELASTICSEARCH_URL is required for the elasticsearch engine")
	}
	if strings.TrimSpace(c.IndexName) == "" || strings.TrimSpace(c.ReadAlias) == "" {
		return fmt.Errorf("AISEARCH_INDEX_NAME and AISEARCH_READ_ALIAS are required")
	}
	if c.IndexName == c.ReadAlias {
		return fmt.Errorf("AISEARCH_READ_ALIAS must differ from AISEARCH_INDEX_NAME")
	}
	if strings.TrimSpace(c.SynonymSetID) == "" {
		return fmt.Errorf("AISEARCH_SYNONYMS_SET is required")
	}
	if c.MinScoreThreshold < 0 || c.MinScoreThreshold > 1 {
		return fmt.Errorf("AISEARCH_MIN_SCORE_THRESHOLD must be in [0,1], got %v", c.MinScoreThreshold)
	}

	if err := oneOf("AISEARCH_CATEGORY_BOOST_SOURCE", c.CategoryBoostSource, BoostSourceFile, BoostSourceRedis); err != nil {
		return err
	}
	if c.CategoryBoostCacheTTLSeconds < 1 {
		return fmt.Errorf("AISEARCH_CATEGORY_BOOST_CACHE_TTL_SECONDS must be >= 1, got %d", c.CategoryBoostCacheTTLSeconds)
	}
	if c.CategoryBoostBeta < 0 {
		return fmt.Errorf("AISEARCH_CATEGORY_BOOST_BETA must be >= 0, got %v", c.CategoryBoostBeta)
	}

	if err := oneOf("EMBEDDING_PROVIDER", c.EmbeddingProvider, ProviderOpenAI, ProviderLangChain, ProviderHashing); err != nil {
		return err
	}
	if c.EmbeddingDimensions < 1 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be >= 1, got %d", c.EmbeddingDimensions)
	}
	if c.EmbeddingProvider == ProviderOpenAI && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
	}
	if c.EmbeddingProvider == ProviderLangChain && c.OpenAIBaseURL == "" {
		return fmt.Errorf("OPENAI_BASE_URL is required for the langchain provider")
	}
	if err := oneOf("EMBEDDING_CACHE", c.EmbeddingCache, CacheNone, CacheRedis, CacheBadger); err != nil {
		return err
	}
	if c.EmbeddingRateLimit < 0 {
		return fmt.Errorf("EMBEDDING_RATE_LIMIT must be >= 0, got %v", c.EmbeddingRateLimit)
	}
	if c.EmbeddingCache != CacheNone && c.EmbeddingCacheTTL <= 0 {
		return fmt.Errorf("EMBEDDING_CACHE_TTL must be positive, got %s", c.EmbeddingCacheTTL)
	}

	if err := oneOf("PRODUCT_SOURCE", c.ProductSource, ProductSourceFile, ProductSourcePostgres, ProductSourceSQLite); err != nil {
		return err
	}
	if c.ProductSource == ProductSourcePostgres && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the postgres product source")
	}
	if c.ProductSource == ProductSourceSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite product source")
	}
	if c.IndexingWorkers < 1 || c.IndexingBatchSize < 1 {
		return fmt.Errorf("INDEXING_WORKERS and INDEXING_BATCH_SIZE must be >= 1")
	}
	if c.RedisPort < 1 || c.RedisPort > 65535 {
		return fmt.Errorf("invalid Redis port: %d", c.RedisPort)
	}
	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, "|"), value)
}
