package categoryboost

import (
	"context"

	"github.com/utafrali/aisearch/internal/domain"
)

// Decider turns a search request into a boosting decision.
type Decider struct {
	rules Rules
}

// NewDecider creates a decider backed by rules.
func NewDecider(rules Rules) *Decider {
	return &Decider{rules: rules}
}

// Decide applies boosting only for CATEGORY_BOOSTING_DESC requests whose
// query exactly matches a rule keyword. Every other boosting request falls
// back to RELEVANCE_DESC.
func (d *Decider) Decide(ctx context.Context, req domain.SearchRequest) domain.CategoryBoostingDecision {
	if req.Sort != domain.SortCategoryBoostingDesc {
		decisions.WithLabelValues("not_requested").Inc()
		return domain.NoBoost(req.Sort)
	}
	if !req.HasQuery() {
		decisions.WithLabelValues("no_query").Inc()
		return domain.NoBoost(domain.SortRelevanceDesc)
	}

	boosts, ok := d.rules.FindByKeyword(ctx, req.Query)
	if !ok {
		decisions.WithLabelValues("no_rule").Inc()
		return domain.NoBoost(domain.SortRelevanceDesc)
	}

	decisions.WithLabelValues("boost").Inc()
	return domain.CategoryBoostingDecision{
		ApplyBoost:        true,
		EffectiveSort:     domain.SortCategoryBoostingDesc,
		BoostByCategoryID: boosts,
	}
}
