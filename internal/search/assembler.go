package search

import (
	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/engine/dsl"
)

// Assembler builds the final engine request for a target index or alias.
type Assembler struct {
	target            string
	minScoreThreshold float64
}

// NewAssembler creates an assembler for target. minScoreThreshold is the
// global floor applied to hybrid scores.
func NewAssembler(target string, minScoreThreshold float64) *Assembler {
	return &Assembler{target: target, minScoreThreshold: minScoreThreshold}
}

// Target returns the index or alias searched.
func (a *Assembler) Target() string {
	return a.target
}

// Hybrid wraps base in a script_score query. The boost map is passed only
// when the decision applies a boost.
func (a *Assembler) Hybrid(req domain.SearchRequest, base dsl.Query, queryVector []float32, decision domain.CategoryBoostingDecision, beta float64) dsl.SearchRequest {
	params := map[string]any{
		ParamQueryVector:       queryVector,
		ParamMinScoreThreshold: a.minScoreThreshold,
		ParamBeta:              beta,
	}
	if decision.ApplyBoost {
		params[ParamCategoryBoostByID] = decision.BoostByCategoryID
	}

	minScore := a.minScoreThreshold
	return dsl.SearchRequest{
		Query: dsl.ScriptScore{
			Query: base,
			Script: dsl.Script{
				Source: ScriptSource(decision.ApplyBoost),
				Lang:   ScriptLang,
				Params: params,
			},
		},
		Sort:        sortFields(decision.EffectiveSort),
		From:        req.Paging.Offset(),
		Size:        req.Paging.Size,
		MinScore:    &minScore,
		TrackScores: true,
	}
}

// Filter builds an unscored request sorted by the request's own option.
func (a *Assembler) Filter(req domain.SearchRequest, root dsl.Query) dsl.SearchRequest {
	return dsl.SearchRequest{
		Query:       root,
		Sort:        sortFields(req.Sort),
		From:        req.Paging.Offset(),
		Size:        req.Paging.Size,
		TrackScores: true,
	}
}

func sortFields(opt domain.SortOption) []dsl.SortField {
	clauses := opt.SortClauses()
	fields := make([]dsl.SortField, 0, len(clauses))
	for _, c := range clauses {
		fields = append(fields, dsl.SortField{Field: c.Field, Order: string(c.Order)})
	}
	return fields
}
