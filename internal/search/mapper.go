package search

import (
	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/engine/dsl"
)

// MapResponse converts raw hits into a result page. The embedding field is
// removed from every source and a missing total counts as zero.
func MapResponse(req domain.SearchRequest, resp *dsl.SearchResponse) domain.PageResult {
	if resp == nil {
		return domain.NewPageResult(req, 0, nil)
	}

	var total int64
	if resp.Total != nil {
		total = *resp.Total
	}

	hits := make([]domain.SearchHit, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		hits = append(hits, mapHit(h))
	}
	return domain.NewPageResult(req, total, hits)
}

func mapHit(h dsl.Hit) domain.SearchHit {
	source := make(map[string]any, len(h.Source))
	for k, v := range h.Source {
		if k == domain.DocFieldVector {
			continue
		}
		source[k] = v
	}

	var score float64
	if h.Score != nil {
		score = *h.Score
	}
	return domain.SearchHit{ID: h.ID, Score: score, Source: source}
}
