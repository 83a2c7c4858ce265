package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/aisearch/internal/domain"
	pkgkafka "github.com/utafrali/aisearch/pkg/kafka"
)

// TopicIndexRolledOut carries an IndexRolloutResult after every alias swap.
var TopicIndexRolledOut = pkgkafka.Topic("index", "rolled_out")

// Publisher is the subset of *pkgkafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// RolloutPublisher announces finished rollouts on Kafka.
type RolloutPublisher struct {
	publisher Publisher
	source    string
	logger    *slog.Logger
}

// NewRolloutPublisher creates a publisher tagging events with source.
func NewRolloutPublisher(publisher Publisher, source string, logger *slog.Logger) *RolloutPublisher {
	return &RolloutPublisher{publisher: publisher, source: source, logger: logger}
}

// NotifyRolledOut publishes result keyed by the new index name.
func (p *RolloutPublisher) NotifyRolledOut(ctx context.Context, result domain.IndexRolloutResult) error {
	evt, err := pkgkafka.NewEvent(TopicIndexRolledOut, result.NewIndex, p.source, result)
	if err != nil {
		return err
	}
	if err := p.publisher.Publish(ctx, TopicIndexRolledOut, evt); err != nil {
		return fmt.Errorf("publish rollout of %s: %w", result.NewIndex, err)
	}

	p.logger.InfoContext(ctx, "rollout event published",
		slog.String("new_index", result.NewIndex),
		slog.String("event_id", evt.EventID),
	)
	return nil
}
