package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/search"
	"github.com/utafrali/aisearch/pkg/httputil"
)

// Searcher runs a validated search.
type Searcher interface {
	Search(ctx context.Context, req domain.SearchRequest) (domain.PageResult, error)
}

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(searcher Searcher, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		logger:   logger,
	}
}

// Search handles GET /api/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := domain.SearchRequestInput{
		Query: q.Get("q"),
		Sort:  q.Get("sort"),
	}

	var ok bool
	if in.Page, ok = intParam(w, q.Get("page"), "page"); !ok {
		return
	}
	if in.Size, ok = intParam(w, q.Get("size"), "size"); !ok {
		return
	}
	if in.MinPrice, ok = priceParam(w, q.Get("minPrice"), "minPrice"); !ok {
		return
	}
	if in.MaxPrice, ok = priceParam(w, q.Get("maxPrice"), "maxPrice"); !ok {
		return
	}
	if in.CategoryIDs, ok = categoryParam(w, q["categoryId"]); !ok {
		return
	}

	req, err := domain.NewSearchRequest(in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	page, err := h.searcher.Search(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, search.NewEnvelope(req, page))
}

// intParam parses an optional integer. Blank yields nil so the default applies.
func intParam(w http.ResponseWriter, raw, name string) (*int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		httputil.WriteBadParameter(w, name, "must be an integer")
		return nil, false
	}
	return &v, true
}

func priceParam(w http.ResponseWriter, raw, name string) (*int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		httputil.WriteBadParameter(w, name, "must be a valid number")
		return nil, false
	}
	return &v, true
}

// categoryParam accepts both repeated and comma-separated categoryId values.
func categoryParam(w http.ResponseWriter, values []string) ([]int, bool) {
	var ids []int
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil {
				httputil.WriteBadParameter(w, "categoryId", "must be a list of integers")
				return nil, false
			}
			ids = append(ids, id)
		}
	}
	return ids, true
}
