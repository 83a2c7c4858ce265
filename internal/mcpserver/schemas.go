package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/pkg/pagination"
)

// searchProductsTool returns the tool definition for search_products
func searchProductsTool() mcp.Tool {
	sorts := make([]string, 0, len(domain.ValidSortOptions()))
	for _, opt := range domain.ValidSortOptions() {
		sorts = append(sorts, string(opt))
	}

	return mcp.Tool{
		Name:        "search_products",
		Description: "Hybrid semantic and keyword search over the food product catalog",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"q": map[string]interface{}{
					"type":        "string",
					"description": "Query text. Blank runs a filter-only search",
				},
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "1-based page number",
					"default":     pagination.DefaultPage,
					"minimum":     1,
				},
				"size": map[string]interface{}{
					"type":        "integer",
					"description": "Page size",
					"default":     pagination.DefaultSize,
					"minimum":     1,
					"maximum":     pagination.MaxSize,
				},
				"minPrice": map[string]interface{}{
					"type":        "integer",
					"description": "Inclusive lower price bound",
					"minimum":     0,
				},
				"maxPrice": map[string]interface{}{
					"type":        "integer",
					"description": "Inclusive upper price bound",
					"minimum":     0,
				},
				"categoryIds": map[string]interface{}{
					"type":        "array",
					"description": "Restrict results to these category ids",
					"items":       map[string]interface{}{"type": "integer"},
				},
				"sort": map[string]interface{}{
					"type":        "string",
					"description": "Result ordering",
					"enum":        sorts,
					"default":     string(domain.SortRelevanceDesc),
				},
			},
		},
	}
}

// reloadSynonymsTool returns the tool definition for reload_synonyms
func reloadSynonymsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reload_synonyms",
		Description: "Push the production or regression synonym rules and reload search analyzers",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Which rule file to load",
					"enum":        []string{string(domain.SynonymModeProduction), string(domain.SynonymModeRegression)},
					"default":     string(domain.SynonymModeProduction),
				},
				"index": map[string]interface{}{
					"type":        "string",
					"description": "Index or alias whose analyzers are reloaded. Defaults to the read alias",
				},
				"synonymsSet": map[string]interface{}{
					"type":        "string",
					"description": "Synonym set id. Defaults to the configured set",
				},
			},
		},
	}
}

// getCategoryBoostBetaTool returns the tool definition for get_category_boost_beta
func getCategoryBoostBetaTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_category_boost_beta",
		Description: "Report the current category boost strength",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
