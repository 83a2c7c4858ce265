package rollout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/aisearch/internal/domain"
	apperrors "github.com/utafrali/aisearch/pkg/errors"
)

var (
	rolloutDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aisearch_rollout_duration_seconds",
			Help:    "Duration of index rollouts by result.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"result"},
	)

	rolloutIndexedDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aisearch_rollout_indexed_documents",
		Help: "Documents indexed by the last successful rollout.",
	})
)

// Notifier is told about completed rollouts.
type Notifier interface {
	NotifyRolledOut(ctx context.Context, result domain.IndexRolloutResult) error
}

// Orchestrator runs blue-green rollouts: find the current index, create a
// new one, reindex into it, move the alias, delete the old index. The
// alias changes only in the swap step, so a failure before it leaves the
// old index serving. A failed swap can leave the new index orphaned; it is
// not rolled back.
type Orchestrator struct {
	switcher *AliasSwitcher
	creator  *Creator
	indexer  *Indexer
	cleaner  *Cleaner
	notifier Notifier
	logger   *slog.Logger

	running sync.Mutex
}

// NewOrchestrator wires an orchestrator. notifier may be nil.
func NewOrchestrator(switcher *AliasSwitcher, creator *Creator, indexer *Indexer, cleaner *Cleaner, notifier Notifier, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		switcher: switcher,
		creator:  creator,
		indexer:  indexer,
		cleaner:  cleaner,
		notifier: notifier,
		logger:   logger,
	}
}

// Run performs one rollout. A concurrent Run in the same process fails
// with domain.ErrRolloutInProgress; rollouts from separate processes are
// not coordinated.
func (o *Orchestrator) Run(ctx context.Context) (domain.IndexRolloutResult, error) {
	if !o.running.TryLock() {
		return domain.IndexRolloutResult{}, fmt.Errorf("%w: %w", domain.ErrRolloutInProgress, apperrors.ErrConflict)
	}
	defer o.running.Unlock()

	start := time.Now()
	result, err := o.run(ctx)
	if err != nil {
		rolloutDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		o.logger.ErrorContext(ctx, "index rollout failed",
			slog.String("alias", o.switcher.Alias()),
			slog.String("error", err.Error()),
		)
		return domain.IndexRolloutResult{}, err
	}

	rolloutDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	rolloutIndexedDocuments.Set(float64(result.IndexedCount))
	o.logger.InfoContext(ctx, "index rollout completed",
		slog.String("alias", o.switcher.Alias()),
		slog.String("old_index", result.OldIndex),
		slog.String("new_index", result.NewIndex),
		slog.Int("indexed", result.IndexedCount),
		slog.Duration("duration", time.Since(start)),
	)

	if o.notifier != nil {
		if err := o.notifier.NotifyRolledOut(ctx, result); err != nil {
			o.logger.WarnContext(ctx, "rollout notification failed", slog.String("error", err.Error()))
		}
	}
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context) (domain.IndexRolloutResult, error) {
	oldIndex, err := o.switcher.CurrentIndex(ctx)
	if err != nil {
		return domain.IndexRolloutResult{}, err
	}

	newIndex, err := o.creator.CreateVersionedIndex(ctx)
	if err != nil {
		return domain.IndexRolloutResult{}, err
	}

	count, err := o.indexer.Reindex(ctx, newIndex)
	if err != nil {
		return domain.IndexRolloutResult{}, err
	}

	if err := o.switcher.Swap(ctx, oldIndex, newIndex); err != nil {
		return domain.IndexRolloutResult{}, err
	}

	if oldIndex != newIndex {
		if err := o.cleaner.DeleteIfExists(ctx, oldIndex); err != nil {
			o.logger.WarnContext(ctx, "old index cleanup failed, leaving it in place",
				slog.String("index", oldIndex),
				slog.String("error", err.Error()),
			)
		}
	}

	return domain.IndexRolloutResult{OldIndex: oldIndex, NewIndex: newIndex, IndexedCount: count}, nil
}
