package categoryboost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/aisearch/internal/domain"
)

// Hash fields of the rule document key.
const (
	redisFieldVersion  = "version"
	redisFieldDocument = "document"
)

// DefaultRedisKey is the hash holding the shared rule document.
const DefaultRedisKey = "aisearch:category-boost"

// hashClient is the subset of redis.Cmdable used by RedisSource.
type hashClient interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisSource keeps the rule document in a Redis hash so that every search
// replica sees the same rules. The version field is read on its own so a
// check costs one small round trip.
type RedisSource struct {
	client hashClient
	key    string
}

var _ RuleSource = (*RedisSource)(nil)

// NewRedisSource creates a source over key.
func NewRedisSource(client hashClient, key string) *RedisSource {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSource{client: client, key: key}
}

// Version reads the version field.
func (r *RedisSource) Version(ctx context.Context) (string, error) {
	v, err := r.client.HGet(ctx, r.key, redisFieldVersion).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("rule key %s has no %s field", r.key, redisFieldVersion)
	}
	if err != nil {
		return "", fmt.Errorf("read rule version from %s: %w", r.key, err)
	}
	return strings.TrimSpace(v), nil
}

// Load reads and decodes the document field.
func (r *RedisSource) Load(ctx context.Context) (domain.CategoryBoostDocument, error) {
	raw, err := r.client.HGet(ctx, r.key, redisFieldDocument).Result()
	if errors.Is(err, redis.Nil) {
		return domain.CategoryBoostDocument{}, fmt.Errorf("rule key %s has no %s field", r.key, redisFieldDocument)
	}
	if err != nil {
		return domain.CategoryBoostDocument{}, fmt.Errorf("read rules from %s: %w", r.key, err)
	}

	var doc domain.CategoryBoostDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return domain.CategoryBoostDocument{}, fmt.Errorf("decode rules from %s: %w", r.key, err)
	}
	return doc, nil
}

// Publish writes doc and its version in one HSET so readers never see a
// version without its document.
func (r *RedisSource) Publish(ctx context.Context, doc domain.CategoryBoostDocument) error {
	if strings.TrimSpace(doc.Version) == "" {
		return domain.ErrInvalidRuleDocument
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	if err := r.client.HSet(ctx, r.key, redisFieldVersion, doc.Version, redisFieldDocument, string(raw)).Err(); err != nil {
		return fmt.Errorf("publish rules to %s: %w", r.key, err)
	}
	return nil
}
