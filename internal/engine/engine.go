package engine

import (
	"context"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/engine/dsl"
)

// Searcher executes a search against an index or alias.
type Searcher interface {
	Search(ctx context.Context, target string, req dsl.SearchRequest) (*dsl.SearchResponse, error)
}

// DocumentWriter writes product documents. Writes wait for a refresh so
// that they are searchable on return.
type DocumentWriter interface {
	BulkIndex(ctx context.Context, index string, docs []domain.ProductDocument) error
	IndexDocument(ctx context.Context, index string, doc domain.ProductDocument) error
	DeleteDocument(ctx context.Context, index, id string) error
}

// IndexAdmin manages physical indices.
type IndexAdmin interface {
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, name string, body []byte) error
	DeleteIndex(ctx context.Context, name string) error
}

// AliasActionType is one kind of update_aliases action.
type AliasActionType string

const (
	AliasAdd         AliasActionType = "add"
	AliasRemove      AliasActionType = "remove"
	AliasRemoveIndex AliasActionType = "remove_index"
)

// AliasAction is one step of an atomic alias update. Alias is empty for
// AliasRemoveIndex.
type AliasAction struct {
	Type  AliasActionType
	Index string
	Alias string
}

// AliasAdmin reads and atomically updates aliases.
type AliasAdmin interface {
	AliasExists(ctx context.Context, alias string) (bool, error)
	AliasIndices(ctx context.Context, alias string) ([]string, error)
	UpdateAliases(ctx context.Context, actions []AliasAction) error
}

// SynonymRule is one rule of a synonym set, e.g. "만두, 떡국".
type SynonymRule struct {
	ID       string `json:"id"`
	Synonyms string `json:"synonyms"`
}

// SynonymAdmin manages synonym sets and search-time analyzers.
type SynonymAdmin interface {
	PutSynonymSet(ctx context.Context, setID string, rules []SynonymRule) error
	ReloadSearchAnalyzers(ctx context.Context, index string) error
}

// Engine is the full capability surface required by the application.
type Engine interface {
	Searcher
	DocumentWriter
	IndexAdmin
	AliasAdmin
	SynonymAdmin
	Ping(ctx context.Context) error
}
