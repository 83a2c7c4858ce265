package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/engine"
	pkgkafka "github.com/utafrali/aisearch/pkg/kafka"
	"github.com/utafrali/aisearch/pkg/validator"
)

// Kafka topics for catalog changes consumed by the indexer.
var (
	TopicProductUpserted = pkgkafka.Topic("product", "upserted")
	TopicProductDeleted  = pkgkafka.Topic("product", "deleted")
)

// ProductDeletedData is the payload of a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id" validate:"required"`
}

// Embedder turns product text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Consumer applies product events to the index behind the read alias.
type Consumer struct {
	embedder Embedder
	writer   engine.DocumentWriter
	target   string
	logger   *slog.Logger
}

// NewConsumer creates a consumer that writes to target, normally the read alias.
func NewConsumer(embedder Embedder, writer engine.DocumentWriter, target string, logger *slog.Logger) *Consumer {
	return &Consumer{
		embedder: embedder,
		writer:   writer,
		target:   target,
		logger:   logger,
	}
}

// Topics lists the topics Handle understands.
func (c *Consumer) Topics() []string {
	return []string{TopicProductUpserted, TopicProductDeleted}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductUpserted:
		return c.handleProductUpserted(ctx, event)
	case TopicProductDeleted:
		return c.handleProductDeleted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) handleProductUpserted(ctx context.Context, event *pkgkafka.Event) error {
	var p domain.Product
	if err := event.UnmarshalData(&p); err != nil {
		return fmt.Errorf("unmarshal product.upserted data: %w", err)
	}
	// A malformed product never becomes valid on retry.
	if err := validator.Validate(p); err != nil {
		c.logger.WarnContext(ctx, "dropping invalid product event",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	vec, err := c.embedder.Embed(ctx, p.EmbeddingText())
	if err != nil {
		return fmt.Errorf("%w: product %s: %w", domain.ErrEmbedding, p.ID, err)
	}

	if err := c.writer.IndexDocument(ctx, c.target, domain.NewProductDocument(p, vec)); err != nil {
		return fmt.Errorf("index product from upserted event: %w", err)
	}

	c.logger.InfoContext(ctx, "indexed product from upserted event",
		slog.String("product_id", p.ID),
		slog.String("target", c.target),
	)
	return nil
}

func (c *Consumer) handleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductDeletedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal product.deleted data: %w", err)
	}
	if err := validator.Validate(data); err != nil {
		c.logger.WarnContext(ctx, "dropping invalid delete event",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	if err := c.writer.DeleteDocument(ctx, c.target, data.ID); err != nil {
		return fmt.Errorf("delete product from deleted event: %w", err)
	}

	c.logger.InfoContext(ctx, "deleted product from deleted event",
		slog.String("product_id", data.ID),
	)
	return nil
}
