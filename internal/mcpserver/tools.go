package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/search"
	apperrors "github.com/utafrali/aisearch/pkg/errors"
)

// handleSearchProducts handles the search_products tool invocation
func (s *Server) handleSearchProducts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	in := domain.SearchRequestInput{
		Query: getStringDefault(args, "q", ""),
		Page:  getIntPtr(args, "page"),
		Size:  getIntPtr(args, "size"),
		Sort:  getStringDefault(args, "sort", ""),
	}
	in.MinPrice = getInt64Ptr(args, "minPrice")
	in.MaxPrice = getInt64Ptr(args, "maxPrice")

	ids, err := getIntSlice(args, "categoryIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in.CategoryIDs = ids

	req, err := domain.NewSearchRequest(in)
	if err != nil {
		return s.toolError(ctx, "search_products", err), nil
	}

	page, err := s.searcher.Search(ctx, req)
	if err != nil {
		return s.toolError(ctx, "search_products", err), nil
	}

	return jsonResult(search.NewEnvelope(req, page))
}

// handleReloadSynonyms handles the reload_synonyms tool invocation
func (s *Server) handleReloadSynonyms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	result, err := s.synonyms.Reload(ctx, domain.SynonymReloadRequest{
		Mode:         domain.SynonymMode(getStringDefault(args, "mode", "")),
		Index:        getStringDefault(args, "index", ""),
		SynonymSetID: getStringDefault(args, "synonymsSet", ""),
	})
	if err != nil {
		return s.toolError(ctx, "reload_synonyms", err), nil
	}

	return jsonResult(result)
}

// handleGetCategoryBoostBeta handles the get_category_boost_beta tool invocation
func (s *Server) handleGetCategoryBoostBeta(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]float64{"beta": s.beta.Get()})
}

// toolError reports validation failures verbatim and everything else
// generically, logging the detail.
func (s *Server) toolError(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	if apperrors.IsValidation(err) || errors.Is(err, apperrors.ErrNotFound) {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return mcp.NewToolResultError(appErr.Message)
		}
		return mcp.NewToolResultError(err.Error())
	}

	s.logger.ErrorContext(ctx, "mcp tool failed",
		slog.String("tool", tool),
		slog.String("error", err.Error()),
	)
	return mcp.NewToolResultError(tool + " failed: " + apperrors.Internal(err).Message)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// Argument helpers. JSON numbers arrive as float64.

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

func getIntPtr(args map[string]interface{}, key string) *int {
	switch val := args[key].(type) {
	case float64:
		v := int(val)
		return &v
	case int:
		return &val
	}
	return nil
}

func getInt64Ptr(args map[string]interface{}, key string) *int64 {
	switch val := args[key].(type) {
	case float64:
		v := int64(val)
		return &v
	case int:
		v := int64(val)
		return &v
	}
	return nil
}

func getIntSlice(args map[string]interface{}, key string) ([]int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be an array of integers", key)
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		n, ok := item.(float64)
		if !ok || n != float64(int(n)) {
			return nil, fmt.Errorf("%s must be an array of integers", key)
		}
		out = append(out, int(n))
	}
	return out, nil
}
