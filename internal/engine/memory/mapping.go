package memory

import (
	"encoding/json"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/utafrali/aisearch/internal/domain"
)

// indexSettings are the parts of a create-index body the engine honours.
type indexSettings struct {
	SynonymSetID string
	VectorDims   int
}

type createBody struct {
	Settings struct {
		Analysis struct {
			Filter map[string]struct {
				Type        string `json:"type"`
				SynonymsSet string `json:"synonyms_set"`
			} `json:"filter"`
		} `json:"analysis"`
	} `json:"settings"`
	Mappings struct {
		Properties map[string]struct {
			Type string `json:"type"`
			Dims int    `json:"dims"`
		} `json:"properties"`
	} `json:"mappings"`
}

func parseIndexSettings(body []byte) (indexSettings, error) {
	var out indexSettings
	if len(body) == 0 {
		return out, nil
	}

	var cb createBody
	if err := json.Unmarshal(body, &cb); err != nil {
		return out, fmt.Errorf("parse index body: %w", err)
	}
	for _, f := range cb.Settings.Analysis.Filter {
		if f.SynonymsSet != "" {
			out.SynonymSetID = f.SynonymsSet
			break
		}
	}
	if p, ok := cb.Mappings.Properties[domain.DocFieldVector]; ok {
		out.VectorDims = p.Dims
	}
	return out, nil
}

// textDocument is what the lexical index stores per product.
type textDocument struct {
	ProductName string `json:"product_name"`
	Description string `json:"description"`
}

func buildTextMapping() mapping.IndexMapping {
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = "standard"
	textField.Store = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt(domain.DocFieldProductName, textField)
	docMapping.AddFieldMappingsAt(domain.DocFieldDescription, textField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = "standard"
	indexMapping.IndexDynamic = false
	indexMapping.StoreDynamic = false
	indexMapping.ScoringModel = "bm25"
	return indexMapping
}
