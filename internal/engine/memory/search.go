package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/engine/dsl"
)

// Script parameter names understood by the evaluator.
const (
	paramQueryVector       = "query_vector"
	paramMinScoreThreshold = "min_score_threshold"
	paramBeta              = "beta"
	paramCategoryBoostByID = "category_boost_by_id"
	lexicalScoreSaturation = 5.0
	vectorWeight           = 0.9
	lexicalWeight          = 0.1
)

type scoredDoc struct {
	doc   domain.ProductDocument
	score float64
}

// evaluator scores documents of one index against a query tree.
type evaluator struct {
	idx     *memIndex
	lexical map[string]map[string]float64
}

// Search evaluates req over every index behind target.
func (e *Engine) Search(ctx context.Context, target string, req dsl.SearchRequest) (*dsl.SearchResponse, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	indices, err := e.resolve(target)
	if err != nil {
		return nil, err
	}

	var matched []scoredDoc
	for _, idx := range indices {
		ev := &evaluator{idx: idx, lexical: map[string]map[string]float64{}}
		for _, doc := range idx.docs {
			ok, score, err := ev.eval(ctx, req.Query, doc)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if req.MinScore != nil && score < *req.MinScore {
				continue
			}
			matched = append(matched, scoredDoc{doc: doc, score: score})
		}
	}

	sortDocs(matched, req.Sort)

	total := int64(len(matched))
	resp := &dsl.SearchResponse{Total: &total, Hits: []dsl.Hit{}}

	from := min(max(req.From, 0), len(matched))
	end := min(from+max(req.Size, 0), len(matched))
	for _, sd := range matched[from:end] {
		src, err := sourceOf(sd.doc)
		if err != nil {
			return nil, fmt.Errorf("memory engine: render source of %s: %w", sd.doc.ID, err)
		}
		score := sd.score
		resp.Hits = append(resp.Hits, dsl.Hit{ID: sd.doc.ID, Score: &score, Source: src})
	}
	return resp, nil
}

func (ev *evaluator) eval(ctx context.Context, q dsl.Query, doc domain.ProductDocument) (bool, float64, error) {
	switch q := q.(type) {
	case nil, dsl.MatchAll:
		return true, 1, nil

	case dsl.Range:
		value, ok := numericField(doc, q.Field)
		if !ok {
			return false, 0, nil
		}
		if q.GTE != nil && value < float64(*q.GTE) {
			return false, 0, nil
		}
		if q.LTE != nil && value > float64(*q.LTE) {
			return false, 0, nil
		}
		return true, 1, nil

	case dsl.Terms:
		value, ok := numericField(doc, q.Field)
		if !ok {
			return false, 0, nil
		}
		for _, v := range q.Values {
			if float64(v) == value {
				return true, 1, nil
			}
		}
		return false, 0, nil

	case dsl.MultiMatch:
		scores, err := ev.lexicalScores(ctx, q)
		if err != nil {
			return false, 0, err
		}
		score, ok := scores[doc.ID]
		return ok, score, nil

	case dsl.Bool:
		for _, f := range q.Filter {
			ok, _, err := ev.eval(ctx, f, doc)
			if err != nil || !ok {
				return false, 0, err
			}
		}
		var score float64
		matchedShould := 0
		for _, s := range q.Should {
			ok, sc, err := ev.eval(ctx, s, doc)
			if err != nil {
				return false, 0, err
			}
			if ok {
				matchedShould++
				score += sc
			}
		}
		if matchedShould < minimumShouldMatch(q) {
			return false, 0, nil
		}
		return true, score, nil

	case dsl.ScriptScore:
		ok, inner, err := ev.eval(ctx, q.Query, doc)
		if err != nil || !ok {
			return false, 0, err
		}
		score, err := hybridScore(q.Script.Params, doc, inner)
		if err != nil {
			return false, 0, err
		}
		return true, score, nil

	default:
		return false, 0, fmt.Errorf("memory engine: unsupported query %T", q)
	}
}

func minimumShouldMatch(b dsl.Bool) int {
	if b.MinimumShouldMatch == "" {
		if len(b.Filter) == 0 && len(b.Should) > 0 {
			return 1
		}
		return 0
	}
	n, err := strconv.Atoi(b.MinimumShouldMatch)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// lexicalScores runs q through bleve once per search and caches the result.
func (ev *evaluator) lexicalScores(ctx context.Context, q dsl.MultiMatch) (map[string]float64, error) {
	key := q.Query + "\x00" + strings.Join(q.Fields, ",")
	if scores, ok := ev.lexical[key]; ok {
		return scores, nil
	}

	phrases := append([]string{q.Query}, ev.idx.synonyms.expand(q.Query)...)
	var clauses []query.Query
	for _, spec := range q.Fields {
		field, boost := parseFieldBoost(spec)
		for _, phrase := range phrases {
			mq := bleve.NewMatchQuery(phrase)
			mq.SetField(field)
			mq.SetBoost(boost)
			clauses = append(clauses, mq)
		}
	}

	scores := map[string]float64{}
	if len(clauses) > 0 && len(ev.idx.docs) > 0 {
		req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(clauses...), len(ev.idx.docs), 0, false)
		res, err := ev.idx.text.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("memory engine: lexical search: %w", err)
		}
		for _, hit := range res.Hits {
			scores[hit.ID] = hit.Score
		}
	}
	ev.lexical[key] = scores
	return scores, nil
}

func parseFieldBoost(spec string) (string, float64) {
	field, boostStr, ok := strings.Cut(spec, "^")
	if !ok {
		return field, 1
	}
	boost, err := strconv.ParseFloat(boostStr, 64)
	if err != nil {
		return field, 1
	}
	return field, boost
}

// hybridScore evaluates the hybrid scoring script from its parameters:
// base = 0.9*vector + 0.1*lexical, zero below the threshold, then
// multiplied by 1 + beta*boost when a boost map is present.
func hybridScore(params map[string]any, doc domain.ProductDocument, rawLexical float64) (float64, error) {
	queryVector, err := floatSlice(params[paramQueryVector])
	if err != nil {
		return 0, fmt.Errorf("memory engine: script param %s: %w", paramQueryVector, err)
	}
	threshold, _ := toFloat(params[paramMinScoreThreshold])

	vectorScore := (cosineSimilarity(queryVector, doc.Vector) + 1.0) / 2.0
	lexicalScore := math.Min(rawLexical, lexicalScoreSaturation) / lexicalScoreSaturation
	base := vectorWeight*vectorScore + lexicalWeight*lexicalScore
	if base < threshold {
		return 0, nil
	}

	rawBoosts, ok := params[paramCategoryBoostByID]
	if !ok {
		return base, nil
	}
	beta, _ := toFloat(params[paramBeta])
	var categoryBoost float64
	switch boosts := rawBoosts.(type) {
	case map[string]float64:
		categoryBoost = boosts[domain.CategoryKey(doc.CategoryID)]
	case map[string]any:
		categoryBoost, _ = toFloat(boosts[domain.CategoryKey(doc.CategoryID)])
	}
	return base * (1.0 + beta*categoryBoost), nil
}

func cosineSimilarity(a []float64, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		bv := float64(b[i])
		dot += a[i] * bv
		na += a[i] * a[i]
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func floatSlice(v any) ([]float64, error) {
	switch vec := v.(type) {
	case []float64:
		return vec, nil
	case []float32:
		out := make([]float64, len(vec))
		for i, f := range vec {
			out[i] = float64(f)
		}
		return out, nil
	case []any:
		out := make([]float64, len(vec))
		for i, f := range vec {
			fv, ok := toFloat(f)
			if !ok {
				return nil, fmt.Errorf("element %d is %T", i, f)
			}
			out[i] = fv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func numericField(doc domain.ProductDocument, field string) (float64, bool) {
	switch field {
	case domain.FieldPrice:
		return float64(doc.Price), true
	case domain.FieldCategoryID:
		return float64(doc.CategoryID), true
	default:
		return 0, false
	}
}

func sortDocs(docs []scoredDoc, clauses []dsl.SortField) {
	if len(clauses) == 0 {
		clauses = []dsl.SortField{{Field: domain.FieldScore, Order: string(domain.OrderDesc)}}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, c := range clauses {
			cmp := compareField(docs[i], docs[j], c.Field)
			if cmp == 0 {
				continue
			}
			if c.Order == string(domain.OrderDesc) {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareField(a, b scoredDoc, field string) int {
	switch field {
	case domain.FieldScore:
		return compareFloat(a.score, b.score)
	case domain.FieldID:
		return strings.Compare(a.doc.ID, b.doc.ID)
	default:
		av, _ := numericField(a.doc, field)
		bv, _ := numericField(b.doc, field)
		return compareFloat(av, bv)
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
