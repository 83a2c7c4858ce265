package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/engine"
)

const tracerName = "github.com/utafrali/aisearch/internal/search"

// Search modes, used as the metric label.
const (
	modeHybrid = "hybrid"
	modeFilter = "filter"
)

var searchDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "aisearch_search_duration_seconds",
		Help:    "Latency of search executions by mode and outcome.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"mode", "outcome"},
)

// QueryEmbedder turns query text into a normalized vector.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BoostDecider decides whether a request gets category boosts.
type BoostDecider interface {
	Decide(ctx context.Context, req domain.SearchRequest) domain.CategoryBoostingDecision
}

// BetaSource supplies the current boost strength.
type BetaSource interface {
	Get() float64
}

// Strategy executes searches. Requests with query text are scored by the
// hybrid script; requests without are filter-only and sorted as asked.
type Strategy struct {
	searcher  engine.Searcher
	embedder  QueryEmbedder
	decider   BoostDecider
	beta      BetaSource
	assembler *Assembler
	logger    *slog.Logger
}

// NewStrategy wires a strategy.
func NewStrategy(searcher engine.Searcher, embedder QueryEmbedder, decider BoostDecider, beta BetaSource, assembler *Assembler, logger *slog.Logger) *Strategy {
	return &Strategy{
		searcher:  searcher,
		embedder:  embedder,
		decider:   decider,
		beta:      beta,
		assembler: assembler,
		logger:    logger,
	}
}

// Search runs req and returns one page of results. Engine failures are
// wrapped in domain.ErrSearch and are not retried.
func (s *Strategy) Search(ctx context.Context, req domain.SearchRequest) (domain.PageResult, error) {
	mode := modeFilter
	if req.HasQuery() {
		mode = modeHybrid
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "search."+mode)
	defer span.End()
	span.SetAttributes(
		attribute.String("search.sort", string(req.Sort)),
		attribute.Int("search.page", req.Paging.Page),
		attribute.Int("search.size", req.Paging.Size),
	)

	start := time.Now()
	var (
		result domain.PageResult
		err    error
	)
	if mode == modeHybrid {
		result, err = s.hybrid(ctx, req)
	} else {
		result, err = s.filter(ctx, req)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	searchDuration.WithLabelValues(mode, outcome).Observe(time.Since(start).Seconds())
	return result, err
}

func (s *Strategy) hybrid(ctx context.Context, req domain.SearchRequest) (domain.PageResult, error) {
	base := HybridBaseQuery(req)

	vector, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return domain.PageResult{}, fmt.Errorf("%w: embed query: %w", domain.ErrEmbedding, err)
	}

	decision := s.decider.Decide(ctx, req)
	body := s.assembler.Hybrid(req, base, vector, decision, s.beta.Get())

	resp, err := s.searcher.Search(ctx, s.assembler.Target(), body)
	if err != nil {
		return domain.PageResult{}, fmt.Errorf("%w: hybrid query on %s: %w", domain.ErrSearch, s.assembler.Target(), err)
	}

	page := MapResponse(req, resp)
	s.logger.DebugContext(ctx, "hybrid search executed",
		slog.String("query", req.Query),
		slog.Bool("boosted", decision.ApplyBoost),
		slog.String("sort", string(decision.EffectiveSort)),
		slog.Int64("total", page.TotalElements),
	)
	return page, nil
}

func (s *Strategy) filter(ctx context.Context, req domain.SearchRequest) (domain.PageResult, error) {
	body := s.assembler.Filter(req, RootQuery(req))

	resp, err := s.searcher.Search(ctx, s.assembler.Target(), body)
	if err != nil {
		return domain.PageResult{}, fmt.Errorf("%w: filter query on %s: %w", domain.ErrSearch, s.assembler.Target(), err)
	}

	page := MapResponse(req, resp)
	s.logger.DebugContext(ctx, "filter search executed",
		slog.String("sort", string(req.Sort)),
		slog.Int64("total", page.TotalElements),
	)
	return page, nil
}
